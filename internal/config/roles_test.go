package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRolePolicyHolderDefaultsWithoutFile(t *testing.T) {
	holder, err := NewRolePolicyHolder(Config{
		RolePolicyDirs: []string{t.TempDir()},
	}, zap.NewNop())
	require.NoError(t, err)

	policy := holder.Get()
	assert.Equal(t, DefaultRolePolicy().DefaultRole, policy.DefaultRole)
	assert.Equal(t, DefaultRolePolicy().AdminRoles, policy.AdminRoles)
	assert.NotEmpty(t, policy.Keywords)
}

func TestNewRolePolicyHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	contents := `roles:
  defaultRole: VISITOR
  adminRoles:
    - ADMIN
  keywords:
    - role: ADMIN
      match:
        - admin
    - role: SECURITY
      match:
        - guard
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roles.yml"), []byte(contents), 0o644))

	holder, err := NewRolePolicyHolder(Config{
		RolePolicyDirs: []string{dir},
	}, zap.NewNop())
	require.NoError(t, err)

	policy := holder.Get()
	assert.Equal(t, "VISITOR", policy.DefaultRole)
	assert.Equal(t, []string{"ADMIN"}, policy.AdminRoles)
	require.Len(t, policy.Keywords, 2)
	assert.Equal(t, "SECURITY", policy.Keywords[1].Role)
}

func TestValidateRolePolicy(t *testing.T) {
	assert.Error(t, validateRolePolicy(RolePolicy{}))
	assert.Error(t, validateRolePolicy(RolePolicy{
		Keywords: []RoleKeywords{{Role: "  "}},
	}))
	assert.NoError(t, validateRolePolicy(DefaultRolePolicy()))
}

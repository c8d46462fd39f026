package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RolePolicy maps free-text designations onto canonical role tokens. The
// keyword lists are policy, not code: deployments override them via roles.yml
// without a rebuild.
type RolePolicy struct {
	Keywords    []RoleKeywords `mapstructure:"keywords"`
	DefaultRole string         `mapstructure:"defaultRole"`
	AdminRoles  []string       `mapstructure:"adminRoles"`
}

type RoleKeywords struct {
	Role  string   `mapstructure:"role"`
	Match []string `mapstructure:"match"`
}

// DefaultRolePolicy mirrors the keyword table the system shipped with.
func DefaultRolePolicy() RolePolicy {
	return RolePolicy{
		Keywords: []RoleKeywords{
			{Role: "ADMIN", Match: []string{"admin"}},
			{Role: "APPROVER", Match: []string{
				"approver", "approval", "hr", "manager", "lead", "supervisor",
				"director", "vice president", "vp", "ceo", "cto",
			}},
			{Role: "SECURITY", Match: []string{"security", "guard"}},
			{Role: "DEPT_HEAD", Match: []string{"hod", "head of department", "head"}},
			{Role: "EMPLOYEE", Match: []string{"employee", "engineer", "developer", "staff", "intern"}},
		},
		DefaultRole: "EMPLOYEE",
		AdminRoles:  []string{"ADMIN", "DEPT_HEAD"},
	}
}

// RolePolicyHolder serves the current policy and hot-reloads it on change.
type RolePolicyHolder struct {
	current atomic.Value // holds RolePolicy
}

func NewRolePolicyHolder(cfg Config, log *zap.Logger) (*RolePolicyHolder, error) {
	log = log.Named("config.roles")
	v := viper.New()

	v.SetConfigName("roles")
	v.SetConfigType("yml")
	for _, dir := range cfg.RolePolicyDirs {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("/etc/visitgate")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VISITGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &RolePolicyHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultRolePolicy())
		return holder, nil
	}

	var policy RolePolicy
	if err := v.UnmarshalKey("roles", &policy); err != nil {
		return nil, err
	}
	if err := validateRolePolicy(policy); err != nil {
		return nil, err
	}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RolePolicy
		if err := v.UnmarshalKey("roles", &updated); err != nil {
			log.Warn("role policy reload failed", zap.Error(err))
			return
		}
		if err := validateRolePolicy(updated); err != nil {
			log.Warn("invalid role policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("role policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticRolePolicyHolder pins a policy without file watching.
func NewStaticRolePolicyHolder(policy RolePolicy) *RolePolicyHolder {
	holder := &RolePolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *RolePolicyHolder) Get() RolePolicy {
	return h.current.Load().(RolePolicy)
}

func validateRolePolicy(policy RolePolicy) error {
	if len(policy.Keywords) == 0 {
		return errors.New("roles.keywords cannot be empty")
	}
	for _, kw := range policy.Keywords {
		if strings.TrimSpace(kw.Role) == "" {
			return errors.New("roles.keywords entries need a role token")
		}
	}
	return nil
}

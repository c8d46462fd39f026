package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sentrilane/visitgate/internal/config"
	"github.com/sentrilane/visitgate/internal/identity/domain"
	"github.com/sentrilane/visitgate/internal/identity/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Department{},
		&domain.Employee{},
		&domain.UserAccount{},
	))

	svc := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Repo:   repository.Provide(),
		Policy: config.NewStaticRolePolicyHolder(config.DefaultRolePolicy()),
	})
	return svc, db
}

func seedDirectory(t *testing.T, db *gorm.DB) {
	t.Helper()

	require.NoError(t, db.Create(&domain.Department{
		DepartmentID:   10,
		DepartmentName: "Engineering",
		IsActive:       true,
	}).Error)
	require.NoError(t, db.Create(&domain.Employee{
		EmpID:        1,
		EmpCode:      "EMP001",
		FirstName:    "Asha",
		LastName:     "Nair",
		Email:        "asha@example.com",
		Designation:  "Head of Department",
		DepartmentID: 10,
		IsActive:     true,
	}).Error)
	require.NoError(t, db.Create(&domain.Employee{
		EmpID:        2,
		EmpCode:      "EMP002",
		FirstName:    "Rohan",
		Designation:  "Engineer",
		DepartmentID: 10,
		IsActive:     false,
	}).Error)
	require.NoError(t, db.Create(&domain.UserAccount{
		UserID:       100,
		UserCode:     "EMP001",
		Name:         "Asha Nair",
		Email:        "asha@example.com",
		Role:         "DEPT_HEAD",
		DepartmentID: 10,
		IsActive:     true,
	}).Error)
	require.NoError(t, db.Create(&domain.UserAccount{
		UserID:   101,
		Name:     "Front Desk",
		Role:     "RECEPTION",
		IsActive: true,
	}).Error)
}

func TestGetEmployee(t *testing.T) {
	svc, db := newTestService(t)
	seedDirectory(t, db)

	emp, err := svc.GetEmployee(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Asha Nair", emp.FullName())
	assert.Equal(t, int64(10), emp.DepartmentID)

	_, err = svc.GetEmployee(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrInactive)

	_, err = svc.GetEmployee(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetEmployee(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestResolveNotifyTarget_EmployeeWins(t *testing.T) {
	svc, db := newTestService(t)
	seedDirectory(t, db)

	target, err := svc.ResolveNotifyTarget(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, target.EmpID)
	assert.Equal(t, int64(1), *target.EmpID)
	assert.Empty(t, target.Role)
}

func TestResolveNotifyTarget_UserCodeLink(t *testing.T) {
	svc, db := newTestService(t)
	seedDirectory(t, db)

	// 100 is not an emp_id; the user account's user_code links to EMP001.
	target, err := svc.ResolveNotifyTarget(context.Background(), 100)
	require.NoError(t, err)
	require.NotNil(t, target.EmpID)
	assert.Equal(t, int64(1), *target.EmpID)
}

func TestResolveNotifyTarget_FallbackToAdminRole(t *testing.T) {
	svc, db := newTestService(t)
	seedDirectory(t, db)

	// 101 has no user_code: nothing to link through.
	target, err := svc.ResolveNotifyTarget(context.Background(), 101)
	require.NoError(t, err)
	assert.Nil(t, target.EmpID)
	assert.Equal(t, "ADMIN", target.Role)

	// Unknown everywhere.
	target, err = svc.ResolveNotifyTarget(context.Background(), 555)
	require.NoError(t, err)
	assert.Nil(t, target.EmpID)
	assert.Equal(t, "ADMIN", target.Role)
}

func TestResolveNotifyTarget_InactiveEmployeeFallsThrough(t *testing.T) {
	svc, db := newTestService(t)
	seedDirectory(t, db)

	target, err := svc.ResolveNotifyTarget(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, target.EmpID)
	assert.Equal(t, "ADMIN", target.Role)
}

func TestResolveDepartment(t *testing.T) {
	svc, db := newTestService(t)
	seedDirectory(t, db)

	dept, err := svc.ResolveDepartment(context.Background(), domain.HostRefs{EmpID: 1})
	require.NoError(t, err)
	assert.Equal(t, "Engineering", dept.DepartmentName)

	require.NoError(t, db.Create(&domain.Employee{
		EmpID:     3,
		EmpCode:   "EMP003",
		FirstName: "Priya",
		IsActive:  true,
	}).Error)
	_, err = svc.ResolveDepartment(context.Background(), domain.HostRefs{EmpID: 3})
	assert.ErrorIs(t, err, domain.ErrNoDepartment)
}

func TestResolveDepartmentPriority(t *testing.T) {
	svc, db := newTestService(t)
	seedDirectory(t, db)

	require.NoError(t, db.Create(&domain.Department{
		DepartmentID:   20,
		DepartmentName: "Facilities",
		IsActive:       true,
	}).Error)
	require.NoError(t, db.Create(&domain.Department{
		DepartmentID:   30,
		DepartmentName: "Archived",
		IsActive:       false,
	}).Error)

	// An explicit department id beats the employee's own department.
	dept, err := svc.ResolveDepartment(context.Background(), domain.HostRefs{EmpID: 1, DepartmentID: 20})
	require.NoError(t, err)
	assert.Equal(t, "Facilities", dept.DepartmentName)

	// An inactive explicit department falls through to the employee.
	dept, err = svc.ResolveDepartment(context.Background(), domain.HostRefs{EmpID: 1, DepartmentID: 30})
	require.NoError(t, err)
	assert.Equal(t, "Engineering", dept.DepartmentName)

	// A user-account reference resolves through the account's department.
	dept, err = svc.ResolveDepartment(context.Background(), domain.HostRefs{UserID: 100})
	require.NoError(t, err)
	assert.Equal(t, "Engineering", dept.DepartmentName)

	_, err = svc.ResolveDepartment(context.Background(), domain.HostRefs{})
	assert.ErrorIs(t, err, domain.ErrNoDepartment)
}

func TestResolveDepartmentAdmin(t *testing.T) {
	svc, db := newTestService(t)
	seedDirectory(t, db)

	admin, err := svc.ResolveDepartmentAdmin(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, admin.EmpID)
	assert.Equal(t, int64(1), *admin.EmpID)
	assert.Equal(t, "DEPT_HEAD", admin.Role)
	assert.Equal(t, "asha@example.com", admin.Email)

	// Department with no admin account falls back to the role audience.
	admin, err = svc.ResolveDepartmentAdmin(context.Background(), 77)
	require.NoError(t, err)
	assert.Nil(t, admin.EmpID)
	assert.Equal(t, "ADMIN", admin.Role)
}

func TestMapDesignationToRole(t *testing.T) {
	svc, _ := newTestService(t)

	cases := map[string]string{
		"System Admin":        "ADMIN",
		"HR Manager":          "APPROVER",
		"Vice President":      "APPROVER",
		"Security Guard":      "SECURITY",
		"HOD":                 "DEPT_HEAD",
		"Head of Department":  "DEPT_HEAD",
		"Senior Engineer":     "EMPLOYEE",
		"intern":              "EMPLOYEE",
		"":                    "EMPLOYEE",
		"Chief Gardener":      "EMPLOYEE",
	}
	for designation, want := range cases {
		assert.Equal(t, want, svc.MapDesignationToRole(designation), "designation %q", designation)
	}
}

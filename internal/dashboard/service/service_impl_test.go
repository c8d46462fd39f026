package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sentrilane/visitgate/internal/clock"
	"github.com/sentrilane/visitgate/internal/dashboard/domain"
	gatepassdomain "github.com/sentrilane/visitgate/internal/gatepass/domain"
	identitydomain "github.com/sentrilane/visitgate/internal/identity/domain"
	inoutdomain "github.com/sentrilane/visitgate/internal/inout/domain"
	prebookingdomain "github.com/sentrilane/visitgate/internal/prebooking/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newDashboard(t *testing.T) domain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&identitydomain.Department{},
		&identitydomain.Employee{},
		&prebookingdomain.Prebooking{},
		&gatepassdomain.Gatepass{},
		&inoutdomain.InoutRecord{},
	))

	require.NoError(t, db.Exec(
		`INSERT INTO departments (department_id, department_name, is_active) VALUES (10, 'Engineering', ?), (11, 'Finance', ?), (12, 'Closed Wing', ?)`,
		true, true, false,
	).Error)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2025, 6, 12, 8, 0, 0, 0, time.UTC)),
	})
}

func TestDepartmentsToday(t *testing.T) {
	svc := newDashboard(t)

	resp, err := svc.DepartmentsToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-06-12", resp.Date)

	// Inactive departments stay off the board; the rest show zeroed
	// counters when nothing is scheduled.
	require.Len(t, resp.Departments, 2)
	assert.Equal(t, "Engineering", resp.Departments[0].DepartmentName)
	assert.Equal(t, "Finance", resp.Departments[1].DepartmentName)
	for _, dept := range resp.Departments {
		assert.Zero(t, dept.Pending)
		assert.Zero(t, dept.Expected)
		assert.Zero(t, dept.CheckedIn)
	}
}

func TestDepartmentToday(t *testing.T) {
	svc := newDashboard(t)

	resp, err := svc.DepartmentToday(context.Background(), domain.DepartmentTodayRequest{DepartmentID: 10})
	require.NoError(t, err)
	assert.Equal(t, "Engineering", resp.DepartmentName)
	assert.Empty(t, resp.Visitors)

	_, err = svc.DepartmentToday(context.Background(), domain.DepartmentTodayRequest{DepartmentID: 404})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.DepartmentToday(context.Background(), domain.DepartmentTodayRequest{DepartmentID: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

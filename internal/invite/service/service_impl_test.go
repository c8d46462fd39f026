package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/sentrilane/visitgate/internal/authctx"
	"github.com/sentrilane/visitgate/internal/clock"
	"github.com/sentrilane/visitgate/internal/config"
	identitydomain "github.com/sentrilane/visitgate/internal/identity/domain"
	"github.com/sentrilane/visitgate/internal/invite/domain"
	"github.com/sentrilane/visitgate/internal/invite/repository"
	notifdomain "github.com/sentrilane/visitgate/internal/notification/domain"
	"github.com/sentrilane/visitgate/internal/providers/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type hostDirectory struct{}

func (hostDirectory) GetEmployee(ctx context.Context, empID int64) (identitydomain.Employee, error) {
	if empID != 7 {
		return identitydomain.Employee{}, identitydomain.ErrNotFound
	}
	return identitydomain.Employee{EmpID: 7, FirstName: "Asha", LastName: "Nair", DepartmentID: 10, IsActive: true}, nil
}

func (hostDirectory) ResolveDepartment(ctx context.Context, refs identitydomain.HostRefs) (identitydomain.Department, error) {
	return identitydomain.Department{}, identitydomain.ErrNoDepartment
}

func (hostDirectory) ResolveNotifyTarget(ctx context.Context, candidateID int64) (identitydomain.NotifyTarget, error) {
	id := candidateID
	return identitydomain.NotifyTarget{EmpID: &id}, nil
}

func (hostDirectory) ResolveDepartmentAdmin(ctx context.Context, departmentID int64) (identitydomain.DepartmentAdmin, error) {
	return identitydomain.DepartmentAdmin{Role: "ADMIN"}, nil
}

func (hostDirectory) MapDesignationToRole(designation string) string { return "EMPLOYEE" }

type silentNotifier struct {
	mu        sync.Mutex
	published []notifdomain.PublishRequest
}

func (n *silentNotifier) Publish(ctx context.Context, req notifdomain.PublishRequest) (notifdomain.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, req)
	return notifdomain.Notification{}, nil
}

func (n *silentNotifier) List(ctx context.Context, req notifdomain.ListRequest) (notifdomain.ListResponse, error) {
	return notifdomain.ListResponse{}, nil
}

func (n *silentNotifier) MarkRead(ctx context.Context, req notifdomain.MarkReadRequest) error {
	return nil
}

type templateRecorder struct {
	email.NoOpProvider
	mu   sync.Mutex
	data []map[string]interface{}
}

func (r *templateRecorder) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payload, ok := data.(map[string]interface{}); ok {
		r.data = append(r.data, payload)
	}
	return nil
}

type inviteFixture struct {
	svc      domain.Service
	db       *gorm.DB
	genID    *snowflake.Node
	notifier *silentNotifier
	email    *templateRecorder
	clock    *clock.FakeClock
}

func newInviteFixture(t *testing.T) *inviteFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Invite{}))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	notifier := &silentNotifier{}
	mail := &templateRecorder{}
	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Cfg:           config.Config{AppBaseURL: "https://visit.example.com"},
		Repo:          repository.Provide(),
		Identity:      hostDirectory{},
		Notifications: notifier,
		Email:         mail,
		Clock:         fakeClock,
	})

	return &inviteFixture{svc: svc, db: db, genID: node, notifier: notifier, email: mail, clock: fakeClock}
}

func hostContext() context.Context {
	return authctx.WithPrincipal(context.Background(), authctx.Principal{
		UserID: 101, EmpID: 7, Role: "EMPLOYEE", Name: "Asha Nair",
	})
}

func TestCreateInvite(t *testing.T) {
	f := newInviteFixture(t)

	invite, err := f.svc.Create(hostContext(), domain.CreateRequest{
		VisitorName:  "Ravi Kumar",
		VisitorEmail: "ravi@example.com",
		VisitDate:    "2025-06-12",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, invite.Token)
	assert.Equal(t, domain.StatusSent, invite.Status)
	assert.Equal(t, int64(7), invite.HostEmpID)
	assert.Equal(t, int64(10), invite.DepartmentID)
	assert.True(t, invite.EmailSent)
	require.NotNil(t, invite.ExpiresAt)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), *invite.ExpiresAt)

	// The mail carries the self-service link.
	require.Len(t, f.email.data, 1)
	assert.Equal(t, "https://visit.example.com/invite/"+invite.Token, f.email.data[0]["invite_url"])
}

func TestCreateInviteValidation(t *testing.T) {
	f := newInviteFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{VisitorEmail: "ravi@example.com"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	// An account with no employee link cannot host visits.
	noEmp := authctx.WithPrincipal(context.Background(), authctx.Principal{UserID: 102, Role: "RECEPTION"})
	_, err = f.svc.Create(noEmp, domain.CreateRequest{VisitorEmail: "ravi@example.com"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = f.svc.Create(hostContext(), domain.CreateRequest{VisitorEmail: "not-an-address"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = f.svc.Create(hostContext(), domain.CreateRequest{
		VisitorEmail: "ravi@example.com",
		VisitDate:    "12/06/2025",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestGetByToken(t *testing.T) {
	f := newInviteFixture(t)

	invite, err := f.svc.Create(hostContext(), domain.CreateRequest{VisitorEmail: "ravi@example.com"})
	require.NoError(t, err)

	found, err := f.svc.GetByToken(context.Background(), domain.GetByTokenRequest{Token: invite.Token})
	require.NoError(t, err)
	assert.Equal(t, invite.InviteID, found.InviteID)

	_, err = f.svc.GetByToken(context.Background(), domain.GetByTokenRequest{Token: "unknown"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetByToken(context.Background(), domain.GetByTokenRequest{Token: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestGetByTokenExpired(t *testing.T) {
	f := newInviteFixture(t)

	invite, err := f.svc.Create(hostContext(), domain.CreateRequest{VisitorEmail: "ravi@example.com"})
	require.NoError(t, err)

	f.clock.Advance(7*24*time.Hour + time.Minute)

	_, err = f.svc.GetByToken(context.Background(), domain.GetByTokenRequest{Token: invite.Token})
	assert.ErrorIs(t, err, domain.ErrExpired)
}

func TestCompleteSingleUse(t *testing.T) {
	f := newInviteFixture(t)

	invite, err := f.svc.Create(hostContext(), domain.CreateRequest{VisitorEmail: "ravi@example.com"})
	require.NoError(t, err)

	prebookingID := f.genID.Generate()
	completed, err := f.svc.Complete(context.Background(), domain.CompleteRequest{
		Token:        invite.Token,
		PrebookingID: prebookingID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	require.NotNil(t, completed.PrebookingID)
	assert.Equal(t, prebookingID, *completed.PrebookingID)

	_, err = f.svc.Complete(context.Background(), domain.CompleteRequest{
		Token:        invite.Token,
		PrebookingID: f.genID.Generate(),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyUsed)

	_, err = f.svc.GetByToken(context.Background(), domain.GetByTokenRequest{Token: invite.Token})
	assert.ErrorIs(t, err, domain.ErrAlreadyUsed)
}

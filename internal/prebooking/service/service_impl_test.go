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
	gatepassdomain "github.com/sentrilane/visitgate/internal/gatepass/domain"
	identitydomain "github.com/sentrilane/visitgate/internal/identity/domain"
	notifdomain "github.com/sentrilane/visitgate/internal/notification/domain"
	"github.com/sentrilane/visitgate/internal/prebooking/domain"
	"github.com/sentrilane/visitgate/internal/prebooking/repository"
	"github.com/sentrilane/visitgate/internal/providers/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeIdentity struct {
	employees map[int64]identitydomain.Employee
	userEmp   map[int64]int64 // user account id -> linked employee id
}

func (f *fakeIdentity) GetEmployee(ctx context.Context, empID int64) (identitydomain.Employee, error) {
	emp, ok := f.employees[empID]
	if !ok {
		return identitydomain.Employee{}, identitydomain.ErrNotFound
	}
	return emp, nil
}

func (f *fakeIdentity) ResolveDepartment(ctx context.Context, refs identitydomain.HostRefs) (identitydomain.Department, error) {
	if refs.DepartmentID > 0 {
		return identitydomain.Department{DepartmentID: refs.DepartmentID, DepartmentName: "Explicit"}, nil
	}
	if emp, ok := f.employees[refs.EmpID]; ok && emp.DepartmentID > 0 {
		return identitydomain.Department{DepartmentID: emp.DepartmentID, DepartmentName: "Engineering"}, nil
	}
	if empID, ok := f.userEmp[refs.UserID]; ok {
		if emp, ok := f.employees[empID]; ok && emp.DepartmentID > 0 {
			return identitydomain.Department{DepartmentID: emp.DepartmentID, DepartmentName: "Engineering"}, nil
		}
	}
	return identitydomain.Department{}, identitydomain.ErrNoDepartment
}

func (f *fakeIdentity) ResolveNotifyTarget(ctx context.Context, candidateID int64) (identitydomain.NotifyTarget, error) {
	if _, ok := f.employees[candidateID]; ok {
		id := candidateID
		return identitydomain.NotifyTarget{EmpID: &id}, nil
	}
	if empID, ok := f.userEmp[candidateID]; ok {
		id := empID
		return identitydomain.NotifyTarget{EmpID: &id}, nil
	}
	return identitydomain.NotifyTarget{Role: "ADMIN"}, nil
}

func (f *fakeIdentity) ResolveDepartmentAdmin(ctx context.Context, departmentID int64) (identitydomain.DepartmentAdmin, error) {
	adminID := int64(99)
	return identitydomain.DepartmentAdmin{EmpID: &adminID, Role: "DEPT_HEAD"}, nil
}

func (f *fakeIdentity) MapDesignationToRole(designation string) string {
	return "EMPLOYEE"
}

type fakeNotifier struct {
	mu        sync.Mutex
	published []notifdomain.PublishRequest
}

func (f *fakeNotifier) Publish(ctx context.Context, req notifdomain.PublishRequest) (notifdomain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, req)
	return notifdomain.Notification{}, nil
}

func (f *fakeNotifier) List(ctx context.Context, req notifdomain.ListRequest) (notifdomain.ListResponse, error) {
	return notifdomain.ListResponse{}, nil
}

func (f *fakeNotifier) MarkRead(ctx context.Context, req notifdomain.MarkReadRequest) error {
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func (f *fakeNotifier) all() []notifdomain.PublishRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notifdomain.PublishRequest, len(f.published))
	copy(out, f.published)
	return out
}

type fakeIssuer struct {
	issued chan string
}

func (f *fakeIssuer) Issue(ctx context.Context, req gatepassdomain.IssueRequest) (gatepassdomain.Gatepass, error) {
	f.issued <- req.PrebookingID
	return gatepassdomain.Gatepass{}, nil
}

func (f *fakeIssuer) GetByPrebooking(ctx context.Context, req gatepassdomain.GetByPrebookingRequest) (gatepassdomain.Gatepass, error) {
	return gatepassdomain.Gatepass{}, gatepassdomain.ErrNotFound
}

func (f *fakeIssuer) GetByCode(ctx context.Context, req gatepassdomain.GetByCodeRequest) (gatepassdomain.Gatepass, error) {
	return gatepassdomain.Gatepass{}, gatepassdomain.ErrNotFound
}

func (f *fakeIssuer) PDF(ctx context.Context, req gatepassdomain.GetByCodeRequest) ([]byte, error) {
	return nil, gatepassdomain.ErrNotFound
}

type fakeEmail struct {
	email.NoOpProvider
	mu        sync.Mutex
	templates []string
}

func (f *fakeEmail) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templates = append(f.templates, templateName)
	return nil
}

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	notifier *fakeNotifier
	issuer   *fakeIssuer
	email    *fakeEmail
	clock    *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Prebooking{}, &domain.Belonging{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	issuer := &fakeIssuer{issued: make(chan string, 4)}
	mail := &fakeEmail{}
	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))

	identity := &fakeIdentity{
		employees: map[int64]identitydomain.Employee{
			7: {EmpID: 7, EmpCode: "EMP007", FirstName: "Asha", DepartmentID: 10, IsActive: true},
		},
		userEmp: map[int64]int64{880: 7},
	}

	svc := New(Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          repository.Provide(),
		Identity:      identity,
		Notifications: notifier,
		Gatepasses:    issuer,
		Email:         mail,
		Policy:        config.NewStaticRolePolicyHolder(config.DefaultRolePolicy()),
		Clock:         fakeClock,
	})

	return &fixture{svc: svc, db: db, notifier: notifier, issuer: issuer, email: mail, clock: fakeClock}
}

func validCreateRequest() domain.CreateRequest {
	return domain.CreateRequest{
		VisitorName:  "Ravi Kumar",
		VisitorEmail: "ravi@example.com",
		VisitorPhone: "9000000001",
		Company:      "Acme",
		Purpose:      "Vendor meeting",
		HostEmpID:    7,
		VisitDate:    "2025-06-12",
		TimeFrom:     "10:00",
		TimeTo:       "11:00",
		Belongings: []domain.BelongingInput{
			{ItemName: "Laptop", Quantity: 1, SerialNo: "SN-1"},
			{ItemName: "  "},
		},
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, int64(10), created.DepartmentID)

	// Pending is stored as the empty string.
	var stored string
	require.NoError(t, f.db.Raw(
		`SELECT status FROM prebookings WHERE prebooking_id = ?`, created.PrebookingID,
	).Scan(&stored).Error)
	assert.Equal(t, "", stored)

	detail, err := f.svc.GetByID(context.Background(), domain.GetRequest{ID: created.PrebookingID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, detail.Status)
	require.Len(t, detail.Belongings, 1)
	assert.Equal(t, "Laptop", detail.Belongings[0].ItemName)

	// Host and department admin each get a notification.
	assert.Equal(t, 2, f.notifier.count())
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	req := validCreateRequest()
	req.VisitorName = "  "
	_, err := f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidVisitorName)

	req = validCreateRequest()
	req.HostEmpID = 404
	_, err = f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidHost)

	req = validCreateRequest()
	req.VisitDate = "2025-06-09"
	_, err = f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidVisitDate)

	req = validCreateRequest()
	req.VisitDate = "12/06/2025"
	_, err = f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidVisitDate)
}

func TestCreateWithUserHost(t *testing.T) {
	f := newFixture(t)

	req := validCreateRequest()
	req.HostEmpID = 0
	req.HostUserID = 880
	created, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), created.HostEmpID)
	assert.Equal(t, int64(880), created.HostUserID)
	assert.Equal(t, int64(10), created.DepartmentID)

	var stored int64
	require.NoError(t, f.db.Raw(
		`SELECT host_user_id FROM prebookings WHERE prebooking_id = ?`, created.PrebookingID,
	).Scan(&stored).Error)
	assert.Equal(t, int64(880), stored)

	// The user account resolves to its linked employee for delivery.
	published := f.notifier.all()
	require.Len(t, published, 2)
	require.NotNil(t, published[0].TargetEmpID)
	assert.Equal(t, int64(7), *published[0].TargetEmpID)
}

func TestCreateWithDepartmentHost(t *testing.T) {
	f := newFixture(t)

	req := validCreateRequest()
	req.HostEmpID = 0
	req.HostDeptID = 22
	created, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(22), created.DepartmentID)
}

func TestCreateRequiresHostReference(t *testing.T) {
	f := newFixture(t)

	req := validCreateRequest()
	req.HostEmpID = 0
	_, err := f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidHost)
}

func TestCreateRecordsClientIP(t *testing.T) {
	f := newFixture(t)

	req := validCreateRequest()
	req.CreatedIP = "203.0.113.7"
	created, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", created.CreatedIP)

	var stored string
	require.NoError(t, f.db.Raw(
		`SELECT created_ip FROM prebookings WHERE prebooking_id = ?`, created.PrebookingID,
	).Scan(&stored).Error)
	assert.Equal(t, "203.0.113.7", stored)
}

func TestCreateRollsBackBookingWhenBelongingsFail(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Migrator().DropTable(&domain.Belonging{}))

	_, err := f.svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)

	// The booking insert must not survive the failed belongings insert.
	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM prebookings`).Scan(&count).Error)
	assert.Equal(t, int64(0), count)
}

func adminContext() context.Context {
	return authctx.WithPrincipal(context.Background(), authctx.Principal{
		UserID: 500,
		EmpID:  0,
		Role:   "ADMIN",
		Name:   "Site Admin",
	})
}

func TestTransitionApprove(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	decided, err := f.svc.Transition(adminContext(), domain.TransitionRequest{
		ID:     created.PrebookingID.String(),
		Action: "approve",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedBy)
	assert.Equal(t, int64(500), *decided.DecidedBy)

	select {
	case issuedID := <-f.issuer.issued:
		assert.Equal(t, created.PrebookingID.String(), issuedID)
	case <-time.After(2 * time.Second):
		t.Fatal("gatepass issuance never fired")
	}

	detail, err := f.svc.GetByID(context.Background(), domain.GetRequest{ID: created.PrebookingID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, detail.Status)
}

func TestTransitionReject(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	decided, err := f.svc.Transition(adminContext(), domain.TransitionRequest{
		ID:      created.PrebookingID.String(),
		Action:  "REJECT",
		Remarks: "No slots available",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, decided.Status)
	assert.Equal(t, "No slots available", decided.Remarks)

	// The visitor gets the decision email; no issuance happens.
	assert.Contains(t, f.email.templates, "prebooking_decision")
	select {
	case <-f.issuer.issued:
		t.Fatal("rejected booking must not issue a gatepass")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDecisionNotifiesHostAndDepartmentAdmin(t *testing.T) {
	cases := []struct {
		name   string
		action string
	}{
		{"approve", "APPROVE"},
		{"reject", "REJECT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)

			created, err := f.svc.Create(context.Background(), validCreateRequest())
			require.NoError(t, err)
			creationCount := f.notifier.count()

			_, err = f.svc.Transition(adminContext(), domain.TransitionRequest{
				ID:     created.PrebookingID.String(),
				Action: tc.action,
			})
			require.NoError(t, err)

			published := f.notifier.all()[creationCount:]
			require.Len(t, published, 2)

			require.NotNil(t, published[0].TargetEmpID)
			assert.Equal(t, int64(7), *published[0].TargetEmpID)
			require.NotNil(t, published[1].TargetEmpID)
			assert.Equal(t, int64(99), *published[1].TargetEmpID)
			for _, req := range published {
				assert.NotEqual(t, "RECEPTION", req.TargetRole)
			}
		})
	}
}

func TestTransitionAlreadyDecided(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = f.svc.Transition(adminContext(), domain.TransitionRequest{
		ID:     created.PrebookingID.String(),
		Action: "REJECT",
	})
	require.NoError(t, err)

	_, err = f.svc.Transition(adminContext(), domain.TransitionRequest{
		ID:     created.PrebookingID.String(),
		Action: "APPROVE",
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyDecided)
}

func TestTransitionAuthorization(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	// A random employee cannot decide someone else's booking.
	outsider := authctx.WithPrincipal(context.Background(), authctx.Principal{
		UserID: 600, EmpID: 42, Role: "EMPLOYEE",
	})
	_, err = f.svc.Transition(outsider, domain.TransitionRequest{
		ID:     created.PrebookingID.String(),
		Action: "APPROVE",
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// The host can.
	host := authctx.WithPrincipal(context.Background(), authctx.Principal{
		UserID: 601, EmpID: 7, Role: "EMPLOYEE",
	})
	decided, err := f.svc.Transition(host, domain.TransitionRequest{
		ID:     created.PrebookingID.String(),
		Action: "APPROVE",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, decided.Status)

	select {
	case <-f.issuer.issued:
	case <-time.After(2 * time.Second):
		t.Fatal("gatepass issuance never fired")
	}
}

func TestTransitionUserHostCanDecide(t *testing.T) {
	f := newFixture(t)

	req := validCreateRequest()
	req.HostEmpID = 0
	req.HostUserID = 880
	created, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	host := authctx.WithPrincipal(context.Background(), authctx.Principal{
		UserID: 880, Role: "EMPLOYEE",
	})
	decided, err := f.svc.Transition(host, domain.TransitionRequest{
		ID:     created.PrebookingID.String(),
		Action: "APPROVE",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, decided.Status)
}

func TestTransitionUnauthenticated(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = f.svc.Transition(context.Background(), domain.TransitionRequest{
		ID:     created.PrebookingID.String(),
		Action: "APPROVE",
	})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestTransitionInvalidAction(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = f.svc.Transition(adminContext(), domain.TransitionRequest{
		ID:     created.PrebookingID.String(),
		Action: "ESCALATE",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAction)
}

func TestListFiltersAndNormalizesStatus(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	second := validCreateRequest()
	second.VisitorName = "Meera Shah"
	createdSecond, err := f.svc.Create(context.Background(), second)
	require.NoError(t, err)

	_, err = f.svc.Transition(adminContext(), domain.TransitionRequest{
		ID:     createdSecond.PrebookingID.String(),
		Action: "REJECT",
	})
	require.NoError(t, err)

	pending, err := f.svc.List(context.Background(), domain.ListRequest{Status: "PENDING"})
	require.NoError(t, err)
	require.Len(t, pending.Prebookings, 1)
	assert.Equal(t, first.PrebookingID, pending.Prebookings[0].PrebookingID)
	assert.Equal(t, domain.StatusPending, pending.Prebookings[0].Status)

	rejected, err := f.svc.List(context.Background(), domain.ListRequest{Status: "rejected"})
	require.NoError(t, err)
	require.Len(t, rejected.Prebookings, 1)
	assert.Equal(t, createdSecond.PrebookingID, rejected.Prebookings[0].PrebookingID)

	_, err = f.svc.List(context.Background(), domain.ListRequest{Status: "BOGUS"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/sentrilane/visitgate/internal/clock"
	"github.com/sentrilane/visitgate/internal/config"
	"github.com/sentrilane/visitgate/internal/gatepass/domain"
	"github.com/sentrilane/visitgate/internal/gatepass/repository"
	identitydomain "github.com/sentrilane/visitgate/internal/identity/domain"
	notifdomain "github.com/sentrilane/visitgate/internal/notification/domain"
	prebookingdomain "github.com/sentrilane/visitgate/internal/prebooking/domain"
	prebookingrepo "github.com/sentrilane/visitgate/internal/prebooking/repository"
	"github.com/sentrilane/visitgate/internal/providers/email"
	"github.com/sentrilane/visitgate/internal/providers/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type stubIdentity struct{}

func (stubIdentity) GetEmployee(ctx context.Context, empID int64) (identitydomain.Employee, error) {
	if empID != 7 {
		return identitydomain.Employee{}, identitydomain.ErrNotFound
	}
	return identitydomain.Employee{EmpID: 7, FirstName: "Asha", LastName: "Nair", DepartmentID: 10, IsActive: true}, nil
}

func (stubIdentity) ResolveDepartment(ctx context.Context, refs identitydomain.HostRefs) (identitydomain.Department, error) {
	return identitydomain.Department{DepartmentID: 10, DepartmentName: "Engineering"}, nil
}

func (stubIdentity) ResolveNotifyTarget(ctx context.Context, candidateID int64) (identitydomain.NotifyTarget, error) {
	id := candidateID
	if candidateID == 880 {
		// User account 880 links back to employee 7.
		id = 7
	}
	return identitydomain.NotifyTarget{EmpID: &id}, nil
}

func (stubIdentity) ResolveDepartmentAdmin(ctx context.Context, departmentID int64) (identitydomain.DepartmentAdmin, error) {
	return identitydomain.DepartmentAdmin{Role: "ADMIN"}, nil
}

func (stubIdentity) MapDesignationToRole(designation string) string { return "EMPLOYEE" }

type recordingNotifier struct {
	mu        sync.Mutex
	published []notifdomain.PublishRequest
}

func (r *recordingNotifier) Publish(ctx context.Context, req notifdomain.PublishRequest) (notifdomain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, req)
	return notifdomain.Notification{}, nil
}

func (r *recordingNotifier) List(ctx context.Context, req notifdomain.ListRequest) (notifdomain.ListResponse, error) {
	return notifdomain.ListResponse{}, nil
}

func (r *recordingNotifier) MarkRead(ctx context.Context, req notifdomain.MarkReadRequest) error {
	return nil
}

func (r *recordingNotifier) roles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.published))
	for _, req := range r.published {
		out = append(out, req.TargetRole)
	}
	return out
}

type stubPDF struct {
	err   error
	calls int
}

func (s *stubPDF) GenerateGatepass(ctx context.Context, data pdf.GatepassData) (io.Reader, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return bytes.NewReader([]byte("%PDF-1.4 " + data.PassCode)), nil
}

type recordingEmail struct {
	email.NoOpProvider
	mu    sync.Mutex
	err   error
	sent  []string
	files []string
}

func (r *recordingEmail) SendTemplateWithAttachments(ctx context.Context, to []string, templateName string, data interface{}, attachments []email.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, templateName)
	for _, a := range attachments {
		r.files = append(r.files, a.Filename)
	}
	return nil
}

func (r *recordingEmail) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type passFixture struct {
	svc      domain.Service
	db       *gorm.DB
	genID    *snowflake.Node
	notifier *recordingNotifier
	pdf      *stubPDF
	email    *recordingEmail
}

func newPassFixture(t *testing.T) *passFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Gatepass{},
		&prebookingdomain.Prebooking{},
		&prebookingdomain.Belonging{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	pdfProvider := &stubPDF{}
	mail := &recordingEmail{}

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Cfg: config.Config{
			GatepassPrefix: "GP",
			UploadsDir:     t.TempDir(),
		},
		Repo:          repository.Provide(),
		Prebookings:   prebookingrepo.Provide(),
		Identity:      stubIdentity{},
		Notifications: notifier,
		PDF:           pdfProvider,
		Email:         mail,
		Clock:         clock.NewFakeClock(time.Date(2025, 6, 12, 8, 0, 0, 0, time.UTC)),
	})

	return &passFixture{svc: svc, db: db, genID: node, notifier: notifier, pdf: pdfProvider, email: mail}
}

func (f *passFixture) seedPrebooking(t *testing.T, status string) prebookingdomain.Prebooking {
	t.Helper()

	prebooking := prebookingdomain.Prebooking{
		PrebookingID: f.genID.Generate(),
		VisitorName:  "Ravi Kumar",
		VisitorEmail: "ravi@example.com",
		VisitorPhone: "9000000001",
		Company:      "Acme",
		Purpose:      "Vendor meeting",
		HostEmpID:    7,
		DepartmentID: 10,
		VisitDate:    datatypes.Date(time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)),
		Status:       status,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, prebookingrepo.Provide().Insert(context.Background(), f.db, &prebooking))
	return prebooking
}

func TestIssueSequentialPassNumbers(t *testing.T) {
	f := newPassFixture(t)

	first := f.seedPrebooking(t, prebookingdomain.StatusApproved)
	second := f.seedPrebooking(t, prebookingdomain.StatusApproved)

	passOne, err := f.svc.Issue(context.Background(), domain.IssueRequest{PrebookingID: first.PrebookingID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), passOne.PassNumber)
	assert.Equal(t, "GP-1", passOne.PassCode)
	assert.Equal(t, first.VisitorName, passOne.VisitorName)

	passTwo, err := f.svc.Issue(context.Background(), domain.IssueRequest{PrebookingID: second.PrebookingID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), passTwo.PassNumber)
	assert.Equal(t, "GP-2", passTwo.PassCode)

	// Visitor email carries the rendered pass, host and reception are notified.
	assert.Equal(t, 2, f.email.count())
	assert.Contains(t, f.email.files, "GP-1.pdf")
	assert.Contains(t, f.notifier.roles(), "RECEPTION")
}

func TestIssueIdempotent(t *testing.T) {
	f := newPassFixture(t)

	prebooking := f.seedPrebooking(t, prebookingdomain.StatusApproved)

	passOne, err := f.svc.Issue(context.Background(), domain.IssueRequest{PrebookingID: prebooking.PrebookingID.String()})
	require.NoError(t, err)

	passTwo, err := f.svc.Issue(context.Background(), domain.IssueRequest{PrebookingID: prebooking.PrebookingID.String()})
	require.NoError(t, err)
	assert.Equal(t, passOne.GatepassID, passTwo.GatepassID)
	assert.Equal(t, passOne.PassCode, passTwo.PassCode)

	// The second call returns the stored pass without re-rendering or re-sending.
	assert.Equal(t, 1, f.pdf.calls)
	assert.Equal(t, 1, f.email.count())
}

func TestIssueResolvesUserHostedBooking(t *testing.T) {
	f := newPassFixture(t)

	prebooking := prebookingdomain.Prebooking{
		PrebookingID: f.genID.Generate(),
		VisitorName:  "Meera Shah",
		VisitorEmail: "meera@example.com",
		HostUserID:   880,
		DepartmentID: 10,
		VisitDate:    datatypes.Date(time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)),
		Status:       prebookingdomain.StatusApproved,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, prebookingrepo.Provide().Insert(context.Background(), f.db, &prebooking))

	pass, err := f.svc.Issue(context.Background(), domain.IssueRequest{PrebookingID: prebooking.PrebookingID.String()})
	require.NoError(t, err)

	// The pass pins the employee the user account links to.
	assert.Equal(t, int64(7), pass.HostEmpID)
}

func TestIssueRequiresApproval(t *testing.T) {
	f := newPassFixture(t)

	pending := f.seedPrebooking(t, "")
	_, err := f.svc.Issue(context.Background(), domain.IssueRequest{PrebookingID: pending.PrebookingID.String()})
	assert.ErrorIs(t, err, domain.ErrNotApproved)

	rejected := f.seedPrebooking(t, prebookingdomain.StatusRejected)
	_, err = f.svc.Issue(context.Background(), domain.IssueRequest{PrebookingID: rejected.PrebookingID.String()})
	assert.ErrorIs(t, err, domain.ErrNotApproved)

	_, err = f.svc.Issue(context.Background(), domain.IssueRequest{PrebookingID: f.genID.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Issue(context.Background(), domain.IssueRequest{PrebookingID: "not-a-number"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestIssueSurvivesRenderFailure(t *testing.T) {
	f := newPassFixture(t)
	f.pdf.err = errors.New("renderer down")

	prebooking := f.seedPrebooking(t, prebookingdomain.StatusApproved)

	issued, err := f.svc.Issue(context.Background(), domain.IssueRequest{PrebookingID: prebooking.PrebookingID.String()})
	require.NoError(t, err)
	assert.Equal(t, "GP-1", issued.PassCode)
	assert.Empty(t, issued.PDFPath)
	assert.Equal(t, 0, f.email.count())

	// The pass is still retrievable.
	found, err := f.svc.GetByCode(context.Background(), domain.GetByCodeRequest{Code: "GP-1"})
	require.NoError(t, err)
	assert.False(t, found.EmailSent)
}

func TestIssueSurvivesEmailFailure(t *testing.T) {
	f := newPassFixture(t)
	f.email.err = errors.New("smtp down")

	prebooking := f.seedPrebooking(t, prebookingdomain.StatusApproved)

	issued, err := f.svc.Issue(context.Background(), domain.IssueRequest{PrebookingID: prebooking.PrebookingID.String()})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.PDFPath)

	found, err := f.svc.GetByPrebooking(context.Background(), domain.GetByPrebookingRequest{PrebookingID: prebooking.PrebookingID.String()})
	require.NoError(t, err)
	assert.False(t, found.EmailSent)
}

func TestGetByCode(t *testing.T) {
	f := newPassFixture(t)

	prebooking := f.seedPrebooking(t, prebookingdomain.StatusApproved)
	issued, err := f.svc.Issue(context.Background(), domain.IssueRequest{PrebookingID: prebooking.PrebookingID.String()})
	require.NoError(t, err)

	found, err := f.svc.GetByCode(context.Background(), domain.GetByCodeRequest{Code: issued.PassCode})
	require.NoError(t, err)
	assert.Equal(t, issued.GatepassID, found.GatepassID)
	assert.True(t, found.EmailSent)

	_, err = f.svc.GetByCode(context.Background(), domain.GetByCodeRequest{Code: "GP-404"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetByCode(context.Background(), domain.GetByCodeRequest{Code: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestPDFRegeneratesMissingFile(t *testing.T) {
	f := newPassFixture(t)

	prebooking := f.seedPrebooking(t, prebookingdomain.StatusApproved)
	issued, err := f.svc.Issue(context.Background(), domain.IssueRequest{PrebookingID: prebooking.PrebookingID.String()})
	require.NoError(t, err)
	require.NotEmpty(t, issued.PDFPath)

	document, err := f.svc.PDF(context.Background(), domain.GetByCodeRequest{Code: issued.PassCode})
	require.NoError(t, err)
	assert.Contains(t, string(document), issued.PassCode)
	assert.Equal(t, 1, f.pdf.calls)

	// Drop the stored file; the service renders a fresh copy.
	require.NoError(t, f.db.Exec(
		`UPDATE gatepasses SET pdf_path = ? WHERE gatepass_id = ?`,
		"/nonexistent/"+issued.PassCode+".pdf", issued.GatepassID,
	).Error)

	document, err = f.svc.PDF(context.Background(), domain.GetByCodeRequest{Code: issued.PassCode})
	require.NoError(t, err)
	assert.Contains(t, string(document), issued.PassCode)
	assert.Equal(t, 2, f.pdf.calls)
}

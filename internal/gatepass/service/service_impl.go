package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/internal/clock"
	"github.com/sentrilane/visitgate/internal/config"
	"github.com/sentrilane/visitgate/internal/gatepass/domain"
	identitydomain "github.com/sentrilane/visitgate/internal/identity/domain"
	notifdomain "github.com/sentrilane/visitgate/internal/notification/domain"
	"github.com/sentrilane/visitgate/internal/observability/metrics"
	prebookingdomain "github.com/sentrilane/visitgate/internal/prebooking/domain"
	"github.com/sentrilane/visitgate/internal/providers/email"
	"github.com/sentrilane/visitgate/internal/providers/pdf"
	"github.com/sentrilane/visitgate/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Cfg           config.Config
	Repo          domain.Repository
	Prebookings   prebookingdomain.Repository
	Identity      identitydomain.Service
	Notifications notifdomain.Service
	PDF           pdf.Provider
	Email         email.Provider
	Clock         clock.Clock
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	cfg           config.Config
	repo          domain.Repository
	prebookings   prebookingdomain.Repository
	identity      identitydomain.Service
	notifications notifdomain.Service
	pdf           pdf.Provider
	email         email.Provider
	clock         clock.Clock
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("gatepass.service"),
		genID:         p.GenID,
		cfg:           p.Cfg,
		repo:          p.Repo,
		prebookings:   p.Prebookings,
		identity:      p.Identity,
		notifications: p.Notifications,
		pdf:           p.PDF,
		email:         p.Email,
		clock:         p.Clock,
		metrics:       p.Metrics,
	}
}

func (s *Service) Issue(ctx context.Context, req domain.IssueRequest) (domain.Gatepass, error) {
	prebookingID, err := s.parseID(req.PrebookingID)
	if err != nil {
		return domain.Gatepass{}, err
	}

	existing, err := s.repo.FindByPrebooking(ctx, s.db, prebookingID)
	if err != nil {
		return domain.Gatepass{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	prebooking, err := s.prebookings.FindByID(ctx, s.db, prebookingID)
	if err != nil {
		return domain.Gatepass{}, err
	}
	if prebooking == nil {
		return domain.Gatepass{}, domain.ErrNotFound
	}
	if prebooking.Status != prebookingdomain.StatusApproved {
		return domain.Gatepass{}, domain.ErrNotApproved
	}

	gatepass, err := s.createPass(ctx, prebooking)
	if err != nil {
		return domain.Gatepass{}, err
	}

	hostName, departmentName := s.hostDetails(ctx, gatepass.HostEmpID)
	s.renderAndDeliver(ctx, &gatepass, prebooking, hostName, departmentName)
	s.fanOut(ctx, gatepass)

	s.metrics.RecordGatepassIssued(ctx, "issued")

	return gatepass, nil
}

// createPass allocates the next sequential pass number. A concurrent issuer
// can win the same number; the unique index catches that and one retry with
// a fresh number resolves it.
func (s *Service) createPass(ctx context.Context, prebooking *prebookingdomain.Prebooking) (domain.Gatepass, error) {
	hostEmpID := s.snapshotHostEmp(ctx, prebooking)

	for attempt := 0; attempt < 2; attempt++ {
		max, err := s.repo.MaxPassNumber(ctx, s.db)
		if err != nil {
			return domain.Gatepass{}, err
		}

		now := s.clock.Now()
		gatepass := domain.Gatepass{
			GatepassID:   s.genID.Generate(),
			PassNumber:   max + 1,
			PassCode:     fmt.Sprintf("%s-%d", s.cfg.GatepassPrefix, max+1),
			PrebookingID: prebooking.PrebookingID,
			VisitorName:  prebooking.VisitorName,
			VisitorEmail: prebooking.VisitorEmail,
			VisitorPhone: prebooking.VisitorPhone,
			HostEmpID:    hostEmpID,
			DepartmentID: prebooking.DepartmentID,
			ValidDate:    prebooking.VisitDate,
			PhotoRef:     prebooking.PhotoRef,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		err = s.repo.Insert(ctx, s.db, &gatepass)
		if err == nil {
			return gatepass, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return domain.Gatepass{}, err
		}

		// The prebooking unique index also lands here when a concurrent
		// issuer finished first. Hand back that pass.
		existing, findErr := s.repo.FindByPrebooking(ctx, s.db, prebooking.PrebookingID)
		if findErr == nil && existing != nil {
			return *existing, nil
		}

		s.log.Warn("pass number collision, retrying",
			zap.Int64("pass_number", gatepass.PassNumber),
		)
	}

	return domain.Gatepass{}, fmt.Errorf("could not allocate pass number")
}

// snapshotHostEmp pins the employee the pass names as host. A booking that
// references the host by user account gets its employee id resolved here so
// the pass carries a concrete host.
func (s *Service) snapshotHostEmp(ctx context.Context, prebooking *prebookingdomain.Prebooking) int64 {
	if prebooking.HostEmpID > 0 {
		return prebooking.HostEmpID
	}
	if prebooking.HostUserID <= 0 {
		return 0
	}

	target, err := s.identity.ResolveNotifyTarget(ctx, prebooking.HostUserID)
	if err != nil || target.EmpID == nil {
		return 0
	}
	return *target.EmpID
}

// renderAndDeliver builds the PDF and emails it to the visitor. Both steps
// degrade: a pass without a PDF or an unsent email is still a valid pass.
func (s *Service) renderAndDeliver(ctx context.Context, gatepass *domain.Gatepass, prebooking *prebookingdomain.Prebooking, hostName, departmentName string) {
	belongings, err := s.prebookings.FindBelongings(ctx, s.db, prebooking.PrebookingID)
	if err != nil {
		s.log.Warn("could not load belongings for pass", zap.Error(err))
	}

	lines := make([]pdf.BelongingLine, 0, len(belongings))
	for _, b := range belongings {
		lines = append(lines, pdf.BelongingLine{
			ItemName: b.ItemName,
			Quantity: b.Quantity,
			SerialNo: b.SerialNo,
		})
	}

	validDate := time.Time(gatepass.ValidDate).Format("2006-01-02")
	reader, err := s.pdf.GenerateGatepass(ctx, pdf.GatepassData{
		PassCode:       gatepass.PassCode,
		VisitorName:    gatepass.VisitorName,
		Company:        prebooking.Company,
		VisitorPhone:   gatepass.VisitorPhone,
		VisitorEmail:   gatepass.VisitorEmail,
		HostName:       hostName,
		DepartmentName: departmentName,
		ValidDate:      validDate,
		TimeFrom:       prebooking.TimeFrom,
		TimeTo:         prebooking.TimeTo,
		Purpose:        prebooking.Purpose,
		Belongings:     lines,
		PhotoRef:       gatepass.PhotoRef,
	})
	if err != nil {
		s.log.Error("gatepass pdf generation failed",
			zap.String("pass_code", gatepass.PassCode),
			zap.Error(err),
		)
		s.metrics.RecordGatepassIssued(ctx, "pdf_failed")
		return
	}

	var document []byte
	if reader != nil {
		document, err = io.ReadAll(reader)
		if err != nil {
			s.log.Error("gatepass pdf read failed", zap.Error(err))
			return
		}
	}

	if path, err := s.storePDF(gatepass.PassCode, document); err != nil {
		s.log.Warn("could not store gatepass pdf", zap.Error(err))
	} else {
		gatepass.PDFPath = path
		if err := s.repo.UpdatePDFPath(ctx, s.db, gatepass.GatepassID, path); err != nil {
			s.log.Warn("could not record gatepass pdf path", zap.Error(err))
		}
	}

	s.emailPass(ctx, gatepass, hostName, departmentName, validDate, document)
}

func (s *Service) storePDF(passCode string, document []byte) (string, error) {
	if len(document) == 0 {
		return "", fmt.Errorf("empty document")
	}

	dir := filepath.Join(s.cfg.UploadsDir, "gatepasses")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, passCode+".pdf")
	if err := os.WriteFile(path, document, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Service) emailPass(ctx context.Context, gatepass *domain.Gatepass, hostName, departmentName, validDate string, document []byte) {
	to := strings.TrimSpace(gatepass.VisitorEmail)
	if to == "" {
		return
	}

	var attachments []email.Attachment
	if len(document) > 0 {
		attachments = append(attachments, email.Attachment{
			Filename:    gatepass.PassCode + ".pdf",
			ContentType: "application/pdf",
			Data:        document,
		})
	}

	err := s.email.SendTemplateWithAttachments(ctx, []string{to}, "gatepass_issued", map[string]interface{}{
		"subject":         fmt.Sprintf("Gate pass %s for your visit on %s", gatepass.PassCode, validDate),
		"visitor_name":    gatepass.VisitorName,
		"visit_date":      validDate,
		"pass_code":       gatepass.PassCode,
		"host_name":       hostName,
		"department_name": departmentName,
	}, attachments)
	if err != nil {
		s.log.Error("gatepass email failed",
			zap.String("pass_code", gatepass.PassCode),
			zap.Error(err),
		)
		s.metrics.RecordEmailSent(ctx, "gatepass", "failed")
		return
	}

	s.metrics.RecordEmailSent(ctx, "gatepass", "sent")
	gatepass.EmailSent = true
	if err := s.repo.MarkEmailSent(ctx, s.db, gatepass.GatepassID); err != nil {
		s.log.Warn("could not mark gatepass email sent", zap.Error(err))
	}
}

func (s *Service) fanOut(ctx context.Context, gatepass domain.Gatepass) {
	validDate := time.Time(gatepass.ValidDate).Format("2006-01-02")

	if gatepass.HostEmpID > 0 {
		target, err := s.identity.ResolveNotifyTarget(ctx, gatepass.HostEmpID)
		if err != nil {
			s.log.Warn("host notify target unresolved", zap.Error(err))
		} else {
			s.publish(ctx, notifdomain.PublishRequest{
				Type:        notifdomain.TypeGatepassIssued,
				Title:       fmt.Sprintf("Gate pass %s issued", gatepass.PassCode),
				Body:        fmt.Sprintf("%s is expected on %s", gatepass.VisitorName, validDate),
				TargetEmpID: target.EmpID,
				TargetRole:  target.Role,
				RefType:     "gatepass",
				RefID:       int64(gatepass.GatepassID),
			})
		}
	}

	s.publish(ctx, notifdomain.PublishRequest{
		Type:       notifdomain.TypeGatepassIssued,
		Title:      fmt.Sprintf("Gate pass %s issued", gatepass.PassCode),
		Body:       fmt.Sprintf("%s is expected on %s", gatepass.VisitorName, validDate),
		TargetRole: "RECEPTION",
		RefType:    "gatepass",
		RefID:      int64(gatepass.GatepassID),
	})
}

func (s *Service) publish(ctx context.Context, req notifdomain.PublishRequest) {
	if _, err := s.notifications.Publish(ctx, req); err != nil {
		s.log.Warn("notification publish failed",
			zap.String("type", req.Type),
			zap.Error(err),
		)
	}
}

func (s *Service) hostDetails(ctx context.Context, hostEmpID int64) (string, string) {
	if hostEmpID <= 0 {
		return "", ""
	}

	host, err := s.identity.GetEmployee(ctx, hostEmpID)
	if err != nil {
		s.log.Warn("host lookup failed", zap.Int64("emp_id", hostEmpID), zap.Error(err))
		return "", ""
	}

	department, err := s.identity.ResolveDepartment(ctx, identitydomain.HostRefs{EmpID: hostEmpID})
	if err != nil {
		return host.FullName(), ""
	}
	return host.FullName(), department.DepartmentName
}

func (s *Service) GetByPrebooking(ctx context.Context, req domain.GetByPrebookingRequest) (domain.Gatepass, error) {
	prebookingID, err := s.parseID(req.PrebookingID)
	if err != nil {
		return domain.Gatepass{}, err
	}

	gatepass, err := s.repo.FindByPrebooking(ctx, s.db, prebookingID)
	if err != nil {
		return domain.Gatepass{}, err
	}
	if gatepass == nil {
		return domain.Gatepass{}, domain.ErrNotFound
	}
	return *gatepass, nil
}

func (s *Service) GetByCode(ctx context.Context, req domain.GetByCodeRequest) (domain.Gatepass, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return domain.Gatepass{}, domain.ErrInvalidCode
	}

	gatepass, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.Gatepass{}, err
	}
	if gatepass == nil {
		return domain.Gatepass{}, domain.ErrNotFound
	}
	return *gatepass, nil
}

func (s *Service) PDF(ctx context.Context, req domain.GetByCodeRequest) ([]byte, error) {
	gatepass, err := s.GetByCode(ctx, req)
	if err != nil {
		return nil, err
	}

	if gatepass.PDFPath != "" {
		if document, err := os.ReadFile(gatepass.PDFPath); err == nil {
			return document, nil
		}
	}

	prebooking, err := s.prebookings.FindByID(ctx, s.db, gatepass.PrebookingID)
	if err != nil {
		return nil, err
	}
	if prebooking == nil {
		return nil, domain.ErrNotFound
	}

	hostName, departmentName := s.hostDetails(ctx, gatepass.HostEmpID)

	belongings, err := s.prebookings.FindBelongings(ctx, s.db, prebooking.PrebookingID)
	if err != nil {
		return nil, err
	}
	lines := make([]pdf.BelongingLine, 0, len(belongings))
	for _, b := range belongings {
		lines = append(lines, pdf.BelongingLine{
			ItemName: b.ItemName,
			Quantity: b.Quantity,
			SerialNo: b.SerialNo,
		})
	}

	reader, err := s.pdf.GenerateGatepass(ctx, pdf.GatepassData{
		PassCode:       gatepass.PassCode,
		VisitorName:    gatepass.VisitorName,
		Company:        prebooking.Company,
		VisitorPhone:   gatepass.VisitorPhone,
		VisitorEmail:   gatepass.VisitorEmail,
		HostName:       hostName,
		DepartmentName: departmentName,
		ValidDate:      time.Time(gatepass.ValidDate).Format("2006-01-02"),
		TimeFrom:       prebooking.TimeFrom,
		TimeTo:         prebooking.TimeTo,
		Purpose:        prebooking.Purpose,
		Belongings:     lines,
		PhotoRef:       gatepass.PhotoRef,
	})
	if err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, domain.ErrNotFound
	}

	return io.ReadAll(reader)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

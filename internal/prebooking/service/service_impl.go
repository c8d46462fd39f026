package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/internal/authctx"
	"github.com/sentrilane/visitgate/internal/clock"
	"github.com/sentrilane/visitgate/internal/config"
	gatepassdomain "github.com/sentrilane/visitgate/internal/gatepass/domain"
	identitydomain "github.com/sentrilane/visitgate/internal/identity/domain"
	notifdomain "github.com/sentrilane/visitgate/internal/notification/domain"
	"github.com/sentrilane/visitgate/internal/observability/metrics"
	"github.com/sentrilane/visitgate/internal/prebooking/domain"
	"github.com/sentrilane/visitgate/internal/providers/email"
	"github.com/sentrilane/visitgate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Identity      identitydomain.Service
	Notifications notifdomain.Service
	Gatepasses    gatepassdomain.Service
	Email         email.Provider
	Policy        *config.RolePolicyHolder
	Clock         clock.Clock
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	identity      identitydomain.Service
	notifications notifdomain.Service
	gatepasses    gatepassdomain.Service
	email         email.Provider
	policy        *config.RolePolicyHolder
	clock         clock.Clock
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("prebooking.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		identity:      p.Identity,
		notifications: p.Notifications,
		gatepasses:    p.Gatepasses,
		email:         p.Email,
		policy:        p.Policy,
		clock:         p.Clock,
		metrics:       p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Prebooking, error) {
	visitorName := strings.TrimSpace(req.VisitorName)
	if visitorName == "" {
		return domain.Prebooking{}, domain.ErrInvalidVisitorName
	}

	refs := identitydomain.HostRefs{
		EmpID:        req.HostEmpID,
		UserID:       req.HostUserID,
		DepartmentID: req.HostDeptID,
	}
	if refs.Empty() {
		return domain.Prebooking{}, domain.ErrInvalidHost
	}
	// An employee reference has to name a real active employee. User and
	// department references are resolved lazily and degrade instead.
	if refs.EmpID > 0 {
		if _, err := s.identity.GetEmployee(ctx, refs.EmpID); err != nil {
			if err == identitydomain.ErrNotFound || err == identitydomain.ErrInactive || err == identitydomain.ErrInvalidID {
				return domain.Prebooking{}, domain.ErrInvalidHost
			}
			return domain.Prebooking{}, err
		}
	}

	visitDate, err := s.parseVisitDate(req.VisitDate, true)
	if err != nil {
		return domain.Prebooking{}, err
	}

	departmentID := int64(0)
	department, err := s.identity.ResolveDepartment(ctx, refs)
	switch err {
	case nil:
		departmentID = department.DepartmentID
	case identitydomain.ErrNoDepartment:
	default:
		return domain.Prebooking{}, err
	}

	now := s.clock.Now()
	prebooking := domain.Prebooking{
		PrebookingID: s.genID.Generate(),
		VisitorName:  visitorName,
		VisitorEmail: strings.TrimSpace(req.VisitorEmail),
		VisitorPhone: strings.TrimSpace(req.VisitorPhone),
		Company:      strings.TrimSpace(req.Company),
		Purpose:      strings.TrimSpace(req.Purpose),
		HostEmpID:    refs.EmpID,
		HostUserID:   refs.UserID,
		DepartmentID: departmentID,
		VisitDate:    datatypes.Date(visitDate),
		TimeFrom:     strings.TrimSpace(req.TimeFrom),
		TimeTo:       strings.TrimSpace(req.TimeTo),
		PhotoRef:     strings.TrimSpace(req.PhotoRef),
		CreatedIP:    strings.TrimSpace(req.CreatedIP),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	belongings := make([]domain.Belonging, 0, len(req.Belongings))
	for _, input := range req.Belongings {
		itemName := strings.TrimSpace(input.ItemName)
		if itemName == "" {
			continue
		}
		quantity := input.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		belongings = append(belongings, domain.Belonging{
			BelongingID:  s.genID.Generate(),
			PrebookingID: prebooking.PrebookingID,
			ItemName:     itemName,
			Quantity:     quantity,
			SerialNo:     strings.TrimSpace(input.SerialNo),
		})
	}

	// The booking and its belongings land together or not at all.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &prebooking); err != nil {
			return err
		}
		if len(belongings) > 0 {
			return s.repo.InsertBelongings(ctx, tx, belongings)
		}
		return nil
	})
	if err != nil {
		return domain.Prebooking{}, err
	}

	s.notifyCreated(ctx, prebooking)

	prebooking.Status = prebooking.EffectiveStatus()
	return prebooking, nil
}

func (s *Service) notifyCreated(ctx context.Context, prebooking domain.Prebooking) {
	visitDate := time.Time(prebooking.VisitDate).Format("2006-01-02")
	title := fmt.Sprintf("Visit request from %s", prebooking.VisitorName)
	body := fmt.Sprintf("Requested for %s", visitDate)

	target, err := s.identity.ResolveNotifyTarget(ctx, prebooking.HostCandidateID())
	if err != nil {
		s.log.Warn("host notify target unresolved", zap.Error(err))
	} else {
		s.publish(ctx, notifdomain.PublishRequest{
			Type:        notifdomain.TypePrebookingCreated,
			Title:       title,
			Body:        body,
			TargetEmpID: target.EmpID,
			TargetRole:  target.Role,
			RefType:     "prebooking",
			RefID:       int64(prebooking.PrebookingID),
		})
	}

	if prebooking.DepartmentID > 0 {
		admin, err := s.identity.ResolveDepartmentAdmin(ctx, prebooking.DepartmentID)
		if err != nil {
			s.log.Warn("department admin unresolved", zap.Error(err))
			return
		}
		// The host may be their own department admin; skip the duplicate.
		if admin.EmpID != nil && target.EmpID != nil && *admin.EmpID == *target.EmpID {
			return
		}
		s.publish(ctx, notifdomain.PublishRequest{
			Type:        notifdomain.TypePrebookingCreated,
			Title:       title,
			Body:        body,
			TargetEmpID: admin.EmpID,
			TargetRole:  admin.Role,
			RefType:     "prebooking",
			RefID:       int64(prebooking.PrebookingID),
		})
	}
}

func (s *Service) GetByID(ctx context.Context, req domain.GetRequest) (domain.Detail, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Detail{}, err
	}

	prebooking, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Detail{}, err
	}
	if prebooking == nil {
		return domain.Detail{}, domain.ErrNotFound
	}

	belongings, err := s.repo.FindBelongings(ctx, s.db, id)
	if err != nil {
		return domain.Detail{}, err
	}

	detail := domain.Detail{Prebooking: *prebooking, Belongings: belongings}
	detail.Status = detail.EffectiveStatus()
	return detail, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{HostEmpID: req.HostEmpID}

	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		switch status {
		case domain.StatusPending, domain.StatusApproved, domain.StatusRejected:
			filter.Status = &status
		default:
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
	}

	if raw := strings.TrimSpace(req.VisitDate); raw != "" {
		visitDate, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidVisitDate
		}
		filter.VisitDate = &visitDate
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, int(pageSize), func(p *domain.Prebooking) pagination.Cursor {
		return pagination.Cursor{
			ID:        int64(p.PrebookingID),
			CreatedAt: p.CreatedAt.Format(time.RFC3339),
		}
	})

	prebookings := make([]domain.Prebooking, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		normalized := *item
		normalized.Status = normalized.EffectiveStatus()
		prebookings = append(prebookings, normalized)
	}

	resp := domain.ListResponse{Prebookings: prebookings}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (domain.Prebooking, error) {
	principal, ok := authctx.FromContext(ctx)
	if !ok {
		return domain.Prebooking{}, domain.ErrUnauthenticated
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Prebooking{}, err
	}

	var status string
	switch strings.ToUpper(strings.TrimSpace(req.Action)) {
	case domain.ActionApprove:
		status = domain.StatusApproved
	case domain.ActionReject:
		status = domain.StatusRejected
	default:
		return domain.Prebooking{}, domain.ErrInvalidAction
	}

	prebooking, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Prebooking{}, err
	}
	if prebooking == nil {
		return domain.Prebooking{}, domain.ErrNotFound
	}
	if !prebooking.IsPending() {
		return domain.Prebooking{}, domain.ErrAlreadyDecided
	}

	if !s.canDecide(principal, *prebooking) {
		return domain.Prebooking{}, domain.ErrForbidden
	}

	update := domain.DecisionUpdate{
		Status:    status,
		DecidedBy: principal.UserID,
		DecidedAt: s.clock.Now(),
		Remarks:   strings.TrimSpace(req.Remarks),
	}
	if raw := strings.TrimSpace(req.VisitDate); raw != "" && status == domain.StatusApproved {
		visitDate, err := s.parseVisitDate(raw, false)
		if err != nil {
			return domain.Prebooking{}, err
		}
		update.VisitDate = &visitDate
	}

	updated, err := s.repo.UpdateDecision(ctx, s.db, id, update)
	if err != nil {
		return domain.Prebooking{}, err
	}
	if !updated {
		// Someone decided between our read and our write.
		return domain.Prebooking{}, domain.ErrAlreadyDecided
	}

	s.metrics.RecordPrebookingDecision(ctx, status)

	decided := *prebooking
	decided.Status = status
	decided.DecidedBy = &update.DecidedBy
	decided.DecidedAt = &update.DecidedAt
	decided.Remarks = update.Remarks
	decided.UpdatedAt = update.DecidedAt
	if update.VisitDate != nil {
		decided.VisitDate = datatypes.Date(*update.VisitDate)
	}

	s.notifyDecision(ctx, decided)

	if status == domain.StatusApproved {
		s.issueAsync(ctx, decided.PrebookingID)
	} else {
		s.emailRejection(ctx, decided)
	}

	return decided, nil
}

func (s *Service) canDecide(principal authctx.Principal, prebooking domain.Prebooking) bool {
	if principal.EmpID > 0 && principal.EmpID == prebooking.HostEmpID {
		return true
	}
	if principal.UserID > 0 && principal.UserID == prebooking.HostUserID {
		return true
	}

	role := strings.ToUpper(strings.TrimSpace(principal.Role))
	for _, allowed := range s.policy.Get().AdminRoles {
		if role == strings.ToUpper(allowed) {
			return true
		}
	}
	return false
}

// issueAsync runs gate pass issuance off the request path. The decision has
// already been committed, so issuance keeps going even if the caller hangs
// up, and a crash in the pipeline cannot take the request down with it.
func (s *Service) issueAsync(ctx context.Context, prebookingID snowflake.ID) {
	issueCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("gatepass issuance panicked",
					zap.String("prebooking_id", prebookingID.String()),
					zap.Any("panic", r),
				)
			}
		}()

		if _, err := s.gatepasses.Issue(issueCtx, gatepassdomain.IssueRequest{
			PrebookingID: prebookingID.String(),
		}); err != nil {
			s.log.Error("gatepass issuance failed",
				zap.String("prebooking_id", prebookingID.String()),
				zap.Error(err),
			)
		}
	}()
}

func (s *Service) notifyDecision(ctx context.Context, prebooking domain.Prebooking) {
	notifType := notifdomain.TypePrebookingApproved
	verb := "approved"
	if prebooking.Status == domain.StatusRejected {
		notifType = notifdomain.TypePrebookingRejected
		verb = "rejected"
	}

	visitDate := time.Time(prebooking.VisitDate).Format("2006-01-02")
	title := fmt.Sprintf("Visit by %s %s", prebooking.VisitorName, verb)
	body := fmt.Sprintf("Visit date %s", visitDate)

	// Both outcomes reach the host and the department admin, the same
	// audience the creation fan-out addressed.
	target, err := s.identity.ResolveNotifyTarget(ctx, prebooking.HostCandidateID())
	if err != nil {
		s.log.Warn("host notify target unresolved", zap.Error(err))
	} else {
		s.publish(ctx, notifdomain.PublishRequest{
			Type:        notifType,
			Title:       title,
			Body:        body,
			TargetEmpID: target.EmpID,
			TargetRole:  target.Role,
			RefType:     "prebooking",
			RefID:       int64(prebooking.PrebookingID),
		})
	}

	admin, err := s.identity.ResolveDepartmentAdmin(ctx, prebooking.DepartmentID)
	if err != nil {
		s.log.Warn("department admin unresolved", zap.Error(err))
		return
	}
	if admin.EmpID != nil && target.EmpID != nil && *admin.EmpID == *target.EmpID {
		return
	}
	s.publish(ctx, notifdomain.PublishRequest{
		Type:        notifType,
		Title:       title,
		Body:        body,
		TargetEmpID: admin.EmpID,
		TargetRole:  admin.Role,
		RefType:     "prebooking",
		RefID:       int64(prebooking.PrebookingID),
	})
}

func (s *Service) emailRejection(ctx context.Context, prebooking domain.Prebooking) {
	to := strings.TrimSpace(prebooking.VisitorEmail)
	if to == "" {
		return
	}

	visitDate := time.Time(prebooking.VisitDate).Format("2006-01-02")
	err := s.email.SendTemplate(ctx, []string{to}, "prebooking_decision", map[string]interface{}{
		"subject":      "Your visit request was declined",
		"visitor_name": prebooking.VisitorName,
		"visit_date":   visitDate,
		"status":       "rejected",
		"remarks":      prebooking.Remarks,
	})
	if err != nil {
		s.log.Warn("rejection email failed", zap.Error(err))
		s.metrics.RecordEmailSent(ctx, "prebooking_decision", "failed")
		return
	}
	s.metrics.RecordEmailSent(ctx, "prebooking_decision", "sent")
}

func (s *Service) publish(ctx context.Context, req notifdomain.PublishRequest) {
	if _, err := s.notifications.Publish(ctx, req); err != nil {
		s.log.Warn("notification publish failed",
			zap.String("type", req.Type),
			zap.Error(err),
		)
	}
}

func (s *Service) parseVisitDate(raw string, rejectPast bool) (time.Time, error) {
	visitDate, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, domain.ErrInvalidVisitDate
	}

	if rejectPast {
		today := s.clock.Now().Truncate(24 * time.Hour)
		if visitDate.Before(today) {
			return time.Time{}, domain.ErrInvalidVisitDate
		}
	}

	return visitDate, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

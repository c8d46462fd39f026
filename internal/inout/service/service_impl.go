package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/internal/authctx"
	"github.com/sentrilane/visitgate/internal/clock"
	"github.com/sentrilane/visitgate/internal/gateguard"
	gatepassdomain "github.com/sentrilane/visitgate/internal/gatepass/domain"
	identitydomain "github.com/sentrilane/visitgate/internal/identity/domain"
	"github.com/sentrilane/visitgate/internal/inout/domain"
	notifdomain "github.com/sentrilane/visitgate/internal/notification/domain"
	"github.com/sentrilane/visitgate/internal/observability/metrics"
	"github.com/sentrilane/visitgate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Gatepasses    gatepassdomain.Repository
	Identity      identitydomain.Service
	Notifications notifdomain.Service
	Guard         *gateguard.Guard `optional:"true"`
	Clock         clock.Clock
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	gatepasses    gatepassdomain.Repository
	identity      identitydomain.Service
	notifications notifdomain.Service
	guard         *gateguard.Guard
	clock         clock.Clock
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("inout.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		gatepasses:    p.Gatepasses,
		identity:      p.Identity,
		notifications: p.Notifications,
		guard:         p.Guard,
		clock:         p.Clock,
		metrics:       p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (domain.InoutRecord, error) {
	principal, ok := authctx.FromContext(ctx)
	if !ok {
		return domain.InoutRecord{}, domain.ErrUnauthenticated
	}

	id, err := snowflake.ParseString(strings.TrimSpace(req.GatepassID))
	if err != nil || id == 0 {
		return domain.InoutRecord{}, domain.ErrInvalidID
	}

	action := strings.ToUpper(strings.TrimSpace(req.Action))
	switch action {
	case domain.ActionCheckIn, domain.ActionCheckOut, domain.ActionReturn:
	default:
		return domain.InoutRecord{}, domain.ErrInvalidAction
	}

	gatepass, err := s.gatepasses.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.InoutRecord{}, err
	}
	if gatepass == nil {
		return domain.InoutRecord{}, domain.ErrNotFound
	}

	if allowed, err := s.guard.AllowScan(ctx, req.Gate); err != nil {
		s.log.Warn("gate scan rate check failed", zap.Error(err))
	} else if !allowed {
		s.metrics.RecordGateRejection(ctx, action, "rate_limited")
		return domain.InoutRecord{}, domain.ErrGateBusy
	}

	// RETURN events carry no sequencing constraint, so they skip the
	// advisory lock and the history check.
	if action != domain.ActionReturn {
		token, locked, err := s.guard.TryLockPass(ctx, int64(gatepass.GatepassID))
		if err != nil {
			s.log.Warn("gatepass lock unavailable", zap.Error(err))
		} else if !locked {
			s.metrics.RecordGateRejection(ctx, action, "locked")
			return domain.InoutRecord{}, domain.ErrGateBusy
		} else {
			defer func() {
				if err := s.guard.ReleasePass(ctx, int64(gatepass.GatepassID), token); err != nil {
					s.log.Warn("gatepass lock release failed", zap.Error(err))
				}
			}()
		}

		if err := s.checkSequence(ctx, gatepass, action); err != nil {
			return domain.InoutRecord{}, err
		}
	}

	record := domain.InoutRecord{
		RecordID:       s.genID.Generate(),
		GatepassID:     gatepass.GatepassID,
		PrebookingID:   &gatepass.PrebookingID,
		VisitorPhone:   gatepass.VisitorPhone,
		VisitorEmail:   gatepass.VisitorEmail,
		Action:         action,
		Gate:           strings.TrimSpace(req.Gate),
		IssuedItems:    strings.TrimSpace(req.IssuedItems),
		Remarks:        strings.TrimSpace(req.Remarks),
		RecordedByName: principal.Name,
		CreatedAt:      s.clock.Now(),
	}
	if principal.UserID > 0 {
		recordedBy := principal.UserID
		record.RecordedBy = &recordedBy
	}

	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		return domain.InoutRecord{}, err
	}

	s.metrics.RecordGateAction(ctx, action)

	if action == domain.ActionCheckIn || action == domain.ActionCheckOut {
		s.notifyHost(ctx, gatepass, record)
	}

	return record, nil
}

// checkSequence enforces the legality table over the most recent
// CHECK_IN or CHECK_OUT row for the pass and visitor.
func (s *Service) checkSequence(ctx context.Context, gatepass *gatepassdomain.Gatepass, action string) error {
	last, err := s.repo.FindLastAction(ctx, s.db, gatepass.GatepassID, gatepass.VisitorPhone, gatepass.VisitorEmail)
	if err != nil {
		return err
	}

	lastAction := ""
	if last != nil {
		lastAction = last.Action
	}

	switch lastAction {
	case "":
		if action == domain.ActionCheckOut {
			s.metrics.RecordGateRejection(ctx, action, "checkout_without_checkin")
			return domain.ErrCheckoutWithoutCheckin
		}
	case domain.ActionCheckIn:
		if action == domain.ActionCheckIn {
			s.metrics.RecordGateRejection(ctx, action, "already_checked_in")
			return domain.ErrAlreadyCheckedIn
		}
	case domain.ActionCheckOut:
		s.metrics.RecordGateRejection(ctx, action, "pass_exhausted")
		return domain.ErrPassExhausted
	}

	return nil
}

func (s *Service) notifyHost(ctx context.Context, gatepass *gatepassdomain.Gatepass, record domain.InoutRecord) {
	notifType := notifdomain.TypeVisitorCheckedIn
	verb := "checked in"
	if record.Action == domain.ActionCheckOut {
		notifType = notifdomain.TypeVisitorCheckedOut
		verb = "checked out"
	}

	title := fmt.Sprintf("%s %s", gatepass.VisitorName, verb)
	body := fmt.Sprintf("Pass %s", gatepass.PassCode)
	if record.Gate != "" {
		body = fmt.Sprintf("Pass %s at gate %s", gatepass.PassCode, record.Gate)
	}

	target, err := s.identity.ResolveNotifyTarget(ctx, gatepass.HostEmpID)
	if err != nil {
		s.log.Warn("host notify target unresolved", zap.Error(err))
		target = identitydomain.NotifyTarget{Role: "RECEPTION"}
	}

	s.publish(ctx, notifdomain.PublishRequest{
		Type:        notifType,
		Title:       title,
		Body:        body,
		TargetEmpID: target.EmpID,
		TargetRole:  target.Role,
		RefType:     "gatepass",
		RefID:       int64(gatepass.GatepassID),
	})

	if target.Role != "RECEPTION" {
		s.publish(ctx, notifdomain.PublishRequest{
			Type:       notifType,
			Title:      title,
			Body:       body,
			TargetRole: "RECEPTION",
			RefType:    "gatepass",
			RefID:      int64(gatepass.GatepassID),
		})
	}
}

func (s *Service) publish(ctx context.Context, req notifdomain.PublishRequest) {
	if _, err := s.notifications.Publish(ctx, req); err != nil {
		s.log.Warn("notification publish failed",
			zap.String("type", req.Type),
			zap.Error(err),
		)
	}
}

func (s *Service) ListRecent(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{}
	if raw := strings.TrimSpace(req.GatepassID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.ListResponse{}, domain.ErrInvalidID
		}
		filter.GatepassID = id
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

	items, pageInfo := pagination.BuildCursorPageInfo(items, int(pageSize), func(r *domain.InoutRecord) pagination.Cursor {
		return pagination.Cursor{
			ID:        int64(r.RecordID),
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
		}
	})

	records := make([]domain.InoutRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}

	resp := domain.ListResponse{Records: records}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetCheckinByGatepass(ctx context.Context, req domain.CheckinRequest) (domain.InoutRecord, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.GatepassID))
	if err != nil || id == 0 {
		return domain.InoutRecord{}, domain.ErrInvalidID
	}

	record, err := s.repo.FindCheckinByGatepass(ctx, s.db, id)
	if err != nil {
		return domain.InoutRecord{}, err
	}
	if record == nil {
		return domain.InoutRecord{}, domain.ErrNotFound
	}
	return *record, nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/sentrilane/visitgate/internal/authctx"
	"github.com/sentrilane/visitgate/internal/clock"
	"github.com/sentrilane/visitgate/internal/config"
	identitydomain "github.com/sentrilane/visitgate/internal/identity/domain"
	"github.com/sentrilane/visitgate/internal/invite/domain"
	notifdomain "github.com/sentrilane/visitgate/internal/notification/domain"
	"github.com/sentrilane/visitgate/internal/observability/metrics"
	"github.com/sentrilane/visitgate/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const inviteTTL = 7 * 24 * time.Hour

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Cfg           config.Config
	Repo          domain.Repository
	Identity      identitydomain.Service
	Notifications notifdomain.Service
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
	identity      identitydomain.Service
	notifications notifdomain.Service
	email         email.Provider
	clock         clock.Clock
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("invite.service"),
		genID:         p.GenID,
		cfg:           p.Cfg,
		repo:          p.Repo,
		identity:      p.Identity,
		notifications: p.Notifications,
		email:         p.Email,
		clock:         p.Clock,
		metrics:       p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Invite, error) {
	principal, ok := authctx.FromContext(ctx)
	if !ok || principal.EmpID <= 0 {
		return domain.Invite{}, domain.ErrUnauthenticated
	}

	visitorEmail := strings.TrimSpace(req.VisitorEmail)
	if visitorEmail == "" || !strings.Contains(visitorEmail, "@") {
		return domain.Invite{}, domain.ErrInvalidEmail
	}

	host, err := s.identity.GetEmployee(ctx, principal.EmpID)
	if err != nil {
		return domain.Invite{}, err
	}

	var visitDate datatypes.Date
	if raw := strings.TrimSpace(req.VisitDate); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return domain.Invite{}, domain.ErrInvalidDate
		}
		visitDate = datatypes.Date(parsed)
	}

	now := s.clock.Now()
	expiresAt := now.Add(inviteTTL)
	invite := domain.Invite{
		InviteID:     s.genID.Generate(),
		Token:        uuid.NewString(),
		VisitorName:  strings.TrimSpace(req.VisitorName),
		VisitorEmail: visitorEmail,
		HostEmpID:    host.EmpID,
		DepartmentID: host.DepartmentID,
		VisitDate:    visitDate,
		Status:       domain.StatusSent,
		ExpiresAt:    &expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &invite); err != nil {
		return domain.Invite{}, err
	}

	invite.EmailSent = s.sendInviteEmail(ctx, invite, host)
	s.notifySent(ctx, invite)

	return invite, nil
}

func (s *Service) sendInviteEmail(ctx context.Context, invite domain.Invite, host identitydomain.Employee) bool {
	inviteURL := fmt.Sprintf("%s/invite/%s", s.cfg.AppBaseURL, invite.Token)
	err := s.email.SendTemplate(ctx, []string{invite.VisitorEmail}, "invite_visitor", map[string]interface{}{
		"subject":      fmt.Sprintf("%s invited you to visit", host.FullName()),
		"visitor_name": invite.VisitorName,
		"host_name":    host.FullName(),
		"invite_url":   inviteURL,
		"expires_at":   invite.ExpiresAt.Format("2006-01-02"),
	})
	if err != nil {
		s.log.Warn("invite email failed", zap.Error(err))
		s.metrics.RecordEmailSent(ctx, "invite", "failed")
		return false
	}

	s.metrics.RecordEmailSent(ctx, "invite", "sent")
	if err := s.repo.MarkEmailSent(ctx, s.db, invite.InviteID); err != nil {
		s.log.Warn("invite email flag update failed", zap.Error(err))
	}
	return true
}

func (s *Service) notifySent(ctx context.Context, invite domain.Invite) {
	hostEmpID := invite.HostEmpID
	_, err := s.notifications.Publish(ctx, notifdomain.PublishRequest{
		Type:        notifdomain.TypeInviteSent,
		Title:       "Visitor invite sent",
		Body:        fmt.Sprintf("Invite sent to %s", invite.VisitorEmail),
		TargetEmpID: &hostEmpID,
		RefType:     "invite",
		RefID:       int64(invite.InviteID),
	})
	if err != nil {
		s.log.Warn("notification publish failed", zap.Error(err))
	}
}

func (s *Service) GetByToken(ctx context.Context, req domain.GetByTokenRequest) (domain.Invite, error) {
	invite, err := s.findOpen(ctx, req.Token)
	if err != nil {
		return domain.Invite{}, err
	}
	return *invite, nil
}

func (s *Service) Complete(ctx context.Context, req domain.CompleteRequest) (domain.Invite, error) {
	invite, err := s.findOpen(ctx, req.Token)
	if err != nil {
		return domain.Invite{}, err
	}

	updated, err := s.repo.MarkCompleted(ctx, s.db, invite.InviteID, req.PrebookingID)
	if err != nil {
		return domain.Invite{}, err
	}
	if !updated {
		return domain.Invite{}, domain.ErrAlreadyUsed
	}

	completed := *invite
	completed.Status = domain.StatusCompleted
	prebookingID := req.PrebookingID
	completed.PrebookingID = &prebookingID
	return completed, nil
}

func (s *Service) findOpen(ctx context.Context, token string) (*domain.Invite, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	invite, err := s.repo.FindByToken(ctx, s.db, token)
	if err != nil {
		return nil, err
	}
	if invite == nil {
		return nil, domain.ErrNotFound
	}

	switch invite.Status {
	case domain.StatusCompleted:
		return nil, domain.ErrAlreadyUsed
	case domain.StatusExpired:
		return nil, domain.ErrExpired
	}
	if invite.ExpiresAt != nil && s.clock.Now().After(*invite.ExpiresAt) {
		return nil, domain.ErrExpired
	}

	return invite, nil
}

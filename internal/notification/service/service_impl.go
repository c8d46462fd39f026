package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/internal/authctx"
	"github.com/sentrilane/visitgate/internal/clock"
	"github.com/sentrilane/visitgate/internal/notification/domain"
	"github.com/sentrilane/visitgate/internal/notification/live"
	"github.com/sentrilane/visitgate/internal/observability/metrics"
	"github.com/sentrilane/visitgate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Hub     *live.Hub
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	hub     *live.Hub
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("notification.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		hub:     p.Hub,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) Publish(ctx context.Context, req domain.PublishRequest) (domain.Notification, error) {
	notifType := strings.TrimSpace(req.Type)
	if notifType == "" {
		return domain.Notification{}, domain.ErrInvalidType
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Notification{}, domain.ErrInvalidTitle
	}

	role := strings.ToUpper(strings.TrimSpace(req.TargetRole))
	if req.TargetEmpID == nil && role == "" {
		return domain.Notification{}, domain.ErrInvalidTarget
	}

	notification := domain.Notification{
		NotificationID: s.genID.Generate(),
		NotifType:      notifType,
		Title:          title,
		Body:           strings.TrimSpace(req.Body),
		TargetEmpID:    req.TargetEmpID,
		TargetRole:     role,
		RefType:        strings.TrimSpace(req.RefType),
		RefID:          req.RefID,
		CreatedAt:      s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, &notification); err != nil {
		return domain.Notification{}, err
	}

	s.multicast(ctx, notification)

	return notification, nil
}

// multicast pushes the stored notification to live subscribers. Failures
// here are invisible to the caller; the durable row has already landed.
func (s *Service) multicast(ctx context.Context, notification domain.Notification) {
	event := live.LiveNotification{
		NotificationID: notification.NotificationID.String(),
		Type:           notification.NotifType,
		Title:          notification.Title,
		Body:           notification.Body,
		TargetEmpID:    notification.TargetEmpID,
		TargetRole:     notification.TargetRole,
		RefType:        notification.RefType,
		CreatedAt:      notification.CreatedAt.Format(time.RFC3339),
	}
	if notification.RefID != 0 {
		event.RefID = strconv.FormatInt(notification.RefID, 10)
	}

	target := "role"
	if notification.TargetEmpID != nil {
		target = "emp"
		s.hub.Publish(live.EmpChannel(*notification.TargetEmpID), event)
	}
	if notification.TargetRole != "" {
		s.hub.Publish(live.RoleChannel(notification.TargetRole), event)
	}

	s.metrics.RecordNotificationPublished(ctx, notification.NotifType, target)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	principal, ok := authctx.FromContext(ctx)
	if !ok {
		return domain.ListResponse{}, domain.ErrUnauthenticated
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		EmpID:      principal.EmpID,
		Role:       strings.ToUpper(strings.TrimSpace(principal.Role)),
		UnreadOnly: req.UnreadOnly,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, int(pageSize), func(n *domain.Notification) pagination.Cursor {
		return pagination.Cursor{
			ID:        int64(n.NotificationID),
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		}
	})

	notifications := make([]domain.Notification, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		notifications = append(notifications, *item)
	}

	resp := domain.ListResponse{Notifications: notifications}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) MarkRead(ctx context.Context, req domain.MarkReadRequest) error {
	principal, ok := authctx.FromContext(ctx)
	if !ok {
		return domain.ErrUnauthenticated
	}

	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.ErrInvalidID
	}

	notification, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if notification == nil {
		return domain.ErrNotFound
	}

	if !addressedTo(notification, principal) {
		return domain.ErrNotFound
	}

	return s.repo.MarkRead(ctx, s.db, id)
}

func addressedTo(notification *domain.Notification, principal authctx.Principal) bool {
	if notification.TargetEmpID != nil && *notification.TargetEmpID == principal.EmpID {
		return true
	}
	role := strings.ToUpper(strings.TrimSpace(principal.Role))
	if notification.TargetRole != "" && notification.TargetRole == role {
		return true
	}
	return role == "ADMIN"
}

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/sentrilane/visitgate/internal/authctx"
	"github.com/sentrilane/visitgate/internal/clock"
	"github.com/sentrilane/visitgate/internal/notification/domain"
	"github.com/sentrilane/visitgate/internal/notification/live"
	"github.com/sentrilane/visitgate/internal/notification/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newNotificationService(t *testing.T) (domain.Service, *live.Hub) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Notification{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	hub := live.NewHub()
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Hub:   hub,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)),
	})

	return svc, hub
}

func empCtx(empID int64, role string) context.Context {
	return authctx.WithPrincipal(context.Background(), authctx.Principal{
		UserID: 100 + empID, EmpID: empID, Role: role,
	})
}

func int64Ptr(v int64) *int64 { return &v }

func TestPublishStoresAndMulticasts(t *testing.T) {
	svc, hub := newNotificationService(t)

	sub, backlog, err := hub.Subscribe(live.EmpChannel(7))
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, backlog)

	published, err := svc.Publish(context.Background(), domain.PublishRequest{
		Type:        domain.TypePrebookingCreated,
		Title:       "Visit request from Ravi Kumar",
		Body:        "Requested for 2025-06-12",
		TargetEmpID: int64Ptr(7),
		RefType:     "prebooking",
		RefID:       42,
	})
	require.NoError(t, err)
	assert.NotZero(t, published.NotificationID)

	select {
	case event := <-sub.Events():
		assert.Equal(t, published.NotificationID.String(), event.NotificationID)
		assert.Equal(t, "42", event.RefID)
	case <-time.After(time.Second):
		t.Fatal("live event never arrived")
	}

	// The durable row is there regardless of who was listening.
	listed, err := svc.List(empCtx(7, "EMPLOYEE"), domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, listed.Notifications, 1)
	assert.False(t, listed.Notifications[0].IsRead)
}

func TestPublishValidation(t *testing.T) {
	svc, _ := newNotificationService(t)

	_, err := svc.Publish(context.Background(), domain.PublishRequest{
		Title:      "No type",
		TargetRole: "ADMIN",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	_, err = svc.Publish(context.Background(), domain.PublishRequest{
		Type:       domain.TypePrebookingCreated,
		TargetRole: "ADMIN",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)

	_, err = svc.Publish(context.Background(), domain.PublishRequest{
		Type:  domain.TypePrebookingCreated,
		Title: "Nobody to tell",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
}

func TestListScopedToAddressee(t *testing.T) {
	svc, _ := newNotificationService(t)

	_, err := svc.Publish(context.Background(), domain.PublishRequest{
		Type: domain.TypeGatepassIssued, Title: "For emp 7", TargetEmpID: int64Ptr(7),
	})
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), domain.PublishRequest{
		Type: domain.TypeGatepassIssued, Title: "For emp 8", TargetEmpID: int64Ptr(8),
	})
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), domain.PublishRequest{
		Type: domain.TypeGatepassIssued, Title: "For reception", TargetRole: "reception",
	})
	require.NoError(t, err)

	mine, err := svc.List(empCtx(7, "EMPLOYEE"), domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, mine.Notifications, 1)
	assert.Equal(t, "For emp 7", mine.Notifications[0].Title)

	desk, err := svc.List(empCtx(30, "RECEPTION"), domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, desk.Notifications, 1)
	assert.Equal(t, "For reception", desk.Notifications[0].Title)

	_, err = svc.List(context.Background(), domain.ListRequest{})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestMarkRead(t *testing.T) {
	svc, _ := newNotificationService(t)

	published, err := svc.Publish(context.Background(), domain.PublishRequest{
		Type: domain.TypeGatepassIssued, Title: "For emp 7", TargetEmpID: int64Ptr(7),
	})
	require.NoError(t, err)

	// Someone else's notification reads as missing.
	err = svc.MarkRead(empCtx(8, "EMPLOYEE"), domain.MarkReadRequest{ID: published.NotificationID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.MarkRead(empCtx(7, "EMPLOYEE"), domain.MarkReadRequest{ID: published.NotificationID.String()}))

	unread, err := svc.List(empCtx(7, "EMPLOYEE"), domain.ListRequest{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread.Notifications)

	err = svc.MarkRead(empCtx(7, "EMPLOYEE"), domain.MarkReadRequest{ID: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	err = svc.MarkRead(context.Background(), domain.MarkReadRequest{ID: published.NotificationID.String()})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sentrilane/visitgate/internal/authctx"
	notifdomain "github.com/sentrilane/visitgate/internal/notification/domain"
	"github.com/sentrilane/visitgate/internal/notification/live"
	"github.com/sentrilane/visitgate/pkg/db/pagination"
)

func (s *Server) ListNotifications(c *gin.Context) {
	var query struct {
		pagination.Pagination
		UnreadOnly bool `form:"unread_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.notificationSvc.List(c.Request.Context(), notifdomain.ListRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		UnreadOnly: query.UnreadOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	err := s.notificationSvc.MarkRead(c.Request.Context(), notifdomain.MarkReadRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"ok": true}})
}

// StreamNotifications pushes the caller's live notifications over SSE,
// fanning in their personal channel and their role channel.
func (s *Server) StreamNotifications(c *gin.Context) {
	if s.liveHub == nil {
		AbortWithError(c, ErrInternal)
		return
	}

	principal, ok := authctx.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	subscriptions := make([]*live.Subscription, 0, 2)
	var backlog []live.LiveNotification

	if principal.EmpID > 0 {
		sub, events, err := s.liveHub.Subscribe(live.EmpChannel(principal.EmpID))
		if err != nil {
			AbortWithError(c, ErrInternal)
			return
		}
		subscriptions = append(subscriptions, sub)
		backlog = append(backlog, events...)
	}
	if role := strings.TrimSpace(principal.Role); role != "" {
		sub, events, err := s.liveHub.Subscribe(live.RoleChannel(role))
		if err != nil {
			for _, sub := range subscriptions {
				sub.Close()
			}
			AbortWithError(c, ErrInternal)
			return
		}
		subscriptions = append(subscriptions, sub)
		backlog = append(backlog, events...)
	}
	if len(subscriptions) == 0 {
		AbortWithError(c, ErrForbidden)
		return
	}
	defer func() {
		for _, sub := range subscriptions {
			sub.Close()
		}
	}()

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrInternal)
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}

	for _, event := range backlog {
		if err := writeLiveNotification(writer, event); err != nil {
			return
		}
	}
	flusher.Flush()

	merged := make(chan live.LiveNotification)
	done := make(chan struct{})
	defer close(done)
	for _, sub := range subscriptions {
		events := sub.Events()
		go func() {
			for {
				select {
				case <-done:
					return
				case event, ok := <-events:
					if !ok {
						return
					}
					select {
					case merged <- event:
					case <-done:
						return
					}
				}
			}
		}()
	}

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-merged:
			if err := writeLiveNotification(writer, event); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeLiveNotification(w io.Writer, event live.LiveNotification) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

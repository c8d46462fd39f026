package domain

import (
	"context"
	"errors"

	"github.com/sentrilane/visitgate/pkg/db/pagination"
)

// Notification types emitted by the visit pipeline.
const (
	TypePrebookingCreated  = "PREBOOKING_CREATED"
	TypePrebookingApproved = "PREBOOKING_APPROVED"
	TypePrebookingRejected = "PREBOOKING_REJECTED"
	TypeGatepassIssued     = "GATEPASS_ISSUED"
	TypeVisitorCheckedIn   = "VISITOR_CHECKED_IN"
	TypeVisitorCheckedOut  = "VISITOR_CHECKED_OUT"
	TypeInviteSent         = "INVITE_SENT"
)

type PublishRequest struct {
	Type        string
	Title       string
	Body        string
	TargetEmpID *int64
	TargetRole  string
	RefType     string
	RefID       int64
}

type ListRequest struct {
	PageToken  string
	PageSize   int32
	UnreadOnly bool
}

type ListResponse struct {
	pagination.PageInfo
	Notifications []Notification `json:"notifications"`
}

type MarkReadRequest struct {
	ID string
}

type Service interface {
	// Publish writes the notification durably and then multicasts it to
	// any live subscribers. The write is the delivery guarantee; the
	// multicast is best effort.
	Publish(context.Context, PublishRequest) (Notification, error)

	// List returns notifications addressed to the calling identity,
	// either directly or through its role.
	List(context.Context, ListRequest) (ListResponse, error)

	MarkRead(context.Context, MarkReadRequest) error
}

var (
	ErrInvalidType     = errors.New("invalid_type")
	ErrInvalidTitle    = errors.New("invalid_title")
	ErrInvalidTarget   = errors.New("invalid_target")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrUnauthenticated = errors.New("unauthenticated")
)

package domain

import (
	"context"
	"errors"

	"github.com/sentrilane/visitgate/pkg/db/pagination"
)

// Transition actions accepted by the approval pipeline.
const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

type BelongingInput struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
	SerialNo string `json:"serial_no"`
}

type CreateRequest struct {
	VisitorName  string
	VisitorEmail string
	VisitorPhone string
	Company      string
	Purpose      string
	HostEmpID    int64
	HostUserID   int64
	HostDeptID   int64
	VisitDate    string
	TimeFrom     string
	TimeTo       string
	PhotoRef     string
	CreatedIP    string
	Belongings   []BelongingInput
}

type GetRequest struct {
	ID string
}

type Detail struct {
	Prebooking
	Belongings []Belonging `json:"belongings"`
}

type ListRequest struct {
	PageToken string
	PageSize  int32
	Status    string
	HostEmpID int64
	VisitDate string
}

type ListResponse struct {
	pagination.PageInfo
	Prebookings []Prebooking `json:"prebookings"`
}

type TransitionRequest struct {
	ID        string
	Action    string
	VisitDate string
	Remarks   string
}

type Service interface {
	Create(context.Context, CreateRequest) (Prebooking, error)
	GetByID(context.Context, GetRequest) (Detail, error)
	List(context.Context, ListRequest) (ListResponse, error)

	// Transition moves a pending booking to APPROVED or REJECTED. Approval
	// kicks off gate pass issuance out of band; the caller gets the
	// decided booking back immediately.
	Transition(context.Context, TransitionRequest) (Prebooking, error)
}

var (
	ErrInvalidVisitorName = errors.New("invalid_visitor_name")
	ErrInvalidHost        = errors.New("invalid_host")
	ErrInvalidVisitDate   = errors.New("invalid_visit_date")
	ErrInvalidAction      = errors.New("invalid_action")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrNotFound           = errors.New("not_found")
	ErrAlreadyDecided     = errors.New("already_decided")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
)

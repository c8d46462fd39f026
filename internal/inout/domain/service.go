package domain

import (
	"context"
	"errors"

	"github.com/sentrilane/visitgate/pkg/db/pagination"
)

type RecordRequest struct {
	GatepassID  string
	Action      string
	Gate        string
	IssuedItems string
	Remarks     string
}

type ListRequest struct {
	PageToken  string
	PageSize   int32
	GatepassID string
}

type ListResponse struct {
	pagination.PageInfo
	Records []InoutRecord `json:"records"`
}

type CheckinRequest struct {
	GatepassID string
}

type Service interface {
	// Record validates the requested action against the pair's most
	// recent event and appends it. Illegal sequences reject without
	// writing anything.
	Record(context.Context, RecordRequest) (InoutRecord, error)

	ListRecent(context.Context, ListRequest) (ListResponse, error)

	// GetCheckinByGatepass returns the latest CHECK_IN row for a pass.
	GetCheckinByGatepass(context.Context, CheckinRequest) (InoutRecord, error)
}

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidAction          = errors.New("invalid_action")
	ErrNotFound               = errors.New("not_found")
	ErrAlreadyCheckedIn       = errors.New("already_checked_in")
	ErrCheckoutWithoutCheckin = errors.New("checkout_without_checkin")
	ErrPassExhausted          = errors.New("pass_exhausted")
	ErrGateBusy               = errors.New("gate_busy")
	ErrUnauthenticated        = errors.New("unauthenticated")
)

package domain

import (
	"context"
	"errors"
)

type IssueRequest struct {
	PrebookingID string
}

type GetByPrebookingRequest struct {
	PrebookingID string
}

type GetByCodeRequest struct {
	Code string
}

type Service interface {
	// Issue materializes the gate pass for an approved prebooking: a
	// sequential pass number, the rendered PDF, and the visitor email.
	// Issuing twice for the same prebooking returns the existing pass.
	Issue(context.Context, IssueRequest) (Gatepass, error)

	GetByPrebooking(context.Context, GetByPrebookingRequest) (Gatepass, error)
	GetByCode(context.Context, GetByCodeRequest) (Gatepass, error)

	// PDF returns the rendered pass document, regenerating it when the
	// stored file is gone.
	PDF(context.Context, GetByCodeRequest) ([]byte, error)
}

var (
	ErrInvalidID   = errors.New("invalid_id")
	ErrInvalidCode = errors.New("invalid_code")
	ErrNotFound    = errors.New("not_found")
	ErrNotApproved = errors.New("not_approved")
)

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	VisitorName  string
	VisitorEmail string
	VisitDate    string
}

type GetByTokenRequest struct {
	Token string
}

type CompleteRequest struct {
	Token        string
	PrebookingID snowflake.ID
}

type Service interface {
	// Create issues an invite for the authenticated employee and sends
	// the invite email best-effort; EmailSent on the returned invite
	// reports whether the send went through.
	Create(context.Context, CreateRequest) (Invite, error)

	// GetByToken resolves an open invite. Expired or completed invites
	// are not returned.
	GetByToken(context.Context, GetByTokenRequest) (Invite, error)

	// Complete marks the invite used once a prebooking was created
	// through it.
	Complete(context.Context, CompleteRequest) (Invite, error)
}

var (
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidDate     = errors.New("invalid_date")
	ErrInvalidToken    = errors.New("invalid_token")
	ErrNotFound        = errors.New("not_found")
	ErrExpired         = errors.New("expired")
	ErrAlreadyUsed     = errors.New("already_used")
	ErrUnauthenticated = errors.New("unauthenticated")
)

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invitedomain "github.com/sentrilane/visitgate/internal/invite/domain"
)

type createInviteRequest struct {
	VisitorName  string `json:"visitor_name"`
	VisitorEmail string `json:"visitor_email"`
	VisitDate    string `json:"visit_date"`
}

func (s *Server) CreateInvite(c *gin.Context) {
	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inviteSvc.Create(c.Request.Context(), invitedomain.CreateRequest{
		VisitorName:  strings.TrimSpace(req.VisitorName),
		VisitorEmail: strings.TrimSpace(req.VisitorEmail),
		VisitDate:    strings.TrimSpace(req.VisitDate),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// LookupInvite is the public entry point behind the invite email link.
func (s *Server) LookupInvite(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		AbortWithError(c, newValidationError("token", "invalid_token", "token is required"))
		return
	}

	resp, err := s.inviteSvc.GetByToken(c.Request.Context(), invitedomain.GetByTokenRequest{Token: token})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// The public view omits internal linkage; the visitor only needs the
	// prefilled form fields.
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"token":         resp.Token,
		"visitor_name":  resp.VisitorName,
		"visitor_email": resp.VisitorEmail,
		"host_emp_id":   resp.HostEmpID,
		"visit_date":    resp.VisitDate,
		"expires_at":    resp.ExpiresAt,
	}})
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sentrilane/visitgate/internal/authctx"
	invitedomain "github.com/sentrilane/visitgate/internal/invite/domain"
	prebookingdomain "github.com/sentrilane/visitgate/internal/prebooking/domain"
	"github.com/sentrilane/visitgate/pkg/db/pagination"
)

type createPrebookingRequest struct {
	InviteToken  string                            `json:"invite_token"`
	VisitorName  string                            `json:"visitor_name"`
	VisitorEmail string                            `json:"visitor_email"`
	VisitorPhone string                            `json:"visitor_phone"`
	Company      string                            `json:"company"`
	Purpose      string                            `json:"purpose"`
	HostEmpID    int64                             `json:"host_emp_id"`
	HostUserID   int64                             `json:"host_user_id"`
	HostDeptID   int64                             `json:"host_dept_id"`
	VisitDate    string                            `json:"visit_date"`
	TimeFrom     string                            `json:"time_from"`
	TimeTo       string                            `json:"time_to"`
	PhotoRef     string                            `json:"photo_ref"`
	Belongings   []prebookingdomain.BelongingInput `json:"belongings"`
}

// CreatePrebooking accepts bookings from authenticated employees and
// from anonymous visitors holding a valid invite token. An invite pins
// the host and, when the visitor left them blank, the visit details.
func (s *Server) CreatePrebooking(c *gin.Context) {
	var req createPrebookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	_, authenticated := authctx.FromContext(ctx)

	token := strings.TrimSpace(req.InviteToken)
	var invited *invitedomain.Invite
	if token != "" {
		resolved, err := s.inviteSvc.GetByToken(ctx, invitedomain.GetByTokenRequest{Token: token})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		invited = &resolved
		req.HostEmpID = resolved.HostEmpID
		req.HostUserID = 0
		req.HostDeptID = 0
		if strings.TrimSpace(req.VisitorName) == "" {
			req.VisitorName = resolved.VisitorName
		}
		if strings.TrimSpace(req.VisitorEmail) == "" {
			req.VisitorEmail = resolved.VisitorEmail
		}
	} else if !authenticated {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.prebookingSvc.Create(ctx, prebookingdomain.CreateRequest{
		VisitorName:  strings.TrimSpace(req.VisitorName),
		VisitorEmail: strings.TrimSpace(req.VisitorEmail),
		VisitorPhone: strings.TrimSpace(req.VisitorPhone),
		Company:      strings.TrimSpace(req.Company),
		Purpose:      strings.TrimSpace(req.Purpose),
		HostEmpID:    req.HostEmpID,
		HostUserID:   req.HostUserID,
		HostDeptID:   req.HostDeptID,
		VisitDate:    strings.TrimSpace(req.VisitDate),
		TimeFrom:     strings.TrimSpace(req.TimeFrom),
		TimeTo:       strings.TrimSpace(req.TimeTo),
		PhotoRef:     strings.TrimSpace(req.PhotoRef),
		Belongings:   req.Belongings,
		CreatedIP:    c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if invited != nil {
		if _, err := s.inviteSvc.Complete(ctx, invitedomain.CompleteRequest{
			Token:        token,
			PrebookingID: resp.PrebookingID,
		}); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetPrebooking(c *gin.Context) {
	resp, err := s.prebookingSvc.GetByID(c.Request.Context(), prebookingdomain.GetRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPrebookings(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status    string `form:"status"`
		HostEmpID int64  `form:"host_emp_id"`
		VisitDate string `form:"visit_date"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.prebookingSvc.List(c.Request.Context(), prebookingdomain.ListRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Status:    strings.TrimSpace(query.Status),
		HostEmpID: query.HostEmpID,
		VisitDate: strings.TrimSpace(query.VisitDate),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListPendingPrebookings scopes the pending queue by caller: admins see
// every department, hosts see their own bookings.
func (s *Server) ListPendingPrebookings(c *gin.Context) {
	principal, ok := authctx.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query struct {
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := prebookingdomain.ListRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Status:    prebookingdomain.StatusPending,
	}
	if !s.isAdmin(principal) {
		req.HostEmpID = principal.EmpID
	}

	resp, err := s.prebookingSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type transitionPrebookingRequest struct {
	Action      string `json:"action"`
	ApproveDate string `json:"approve_date"`
	Remarks     string `json:"remarks"`
}

func (s *Server) TransitionPrebooking(c *gin.Context) {
	var req transitionPrebookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.prebookingSvc.Transition(c.Request.Context(), prebookingdomain.TransitionRequest{
		ID:        strings.TrimSpace(c.Param("id")),
		Action:    strings.TrimSpace(req.Action),
		VisitDate: strings.TrimSpace(req.ApproveDate),
		Remarks:   strings.TrimSpace(req.Remarks),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"prebooking_id": resp.PrebookingID.String(),
		"status":        resp.Status,
	}})
}

func (s *Server) isAdmin(principal authctx.Principal) bool {
	role := strings.ToUpper(strings.TrimSpace(principal.Role))
	for _, allowed := range s.roles.Get().AdminRoles {
		if role == strings.ToUpper(allowed) {
			return true
		}
	}
	return false
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	inoutdomain "github.com/sentrilane/visitgate/internal/inout/domain"
	"github.com/sentrilane/visitgate/pkg/db/pagination"
)

type recordInoutRequest struct {
	GatepassID  string `json:"gatepass_id"`
	ActionType  string `json:"action_type"`
	Gate        string `json:"gate"`
	IssuedItems string `json:"issued_items"`
	Remarks     string `json:"remarks"`
}

func (s *Server) RecordInout(c *gin.Context) {
	var req recordInoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inoutSvc.Record(c.Request.Context(), inoutdomain.RecordRequest{
		GatepassID:  strings.TrimSpace(req.GatepassID),
		Action:      strings.TrimSpace(req.ActionType),
		Gate:        strings.TrimSpace(req.Gate),
		IssuedItems: strings.TrimSpace(req.IssuedItems),
		Remarks:     strings.TrimSpace(req.Remarks),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListRecentInout(c *gin.Context) {
	var query struct {
		pagination.Pagination
		GatepassID string `form:"gatepass_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inoutSvc.ListRecent(c.Request.Context(), inoutdomain.ListRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		GatepassID: strings.TrimSpace(query.GatepassID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCheckinByGatepass(c *gin.Context) {
	gatepassID := strings.TrimSpace(c.Query("gatepass_id"))
	if gatepassID == "" {
		AbortWithError(c, newValidationError("gatepass_id", "invalid_gatepass_id", "gatepass_id is required"))
		return
	}

	resp, err := s.inoutSvc.GetCheckinByGatepass(c.Request.Context(), inoutdomain.CheckinRequest{
		GatepassID: gatepassID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

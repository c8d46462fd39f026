package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gatepassdomain "github.com/sentrilane/visitgate/internal/gatepass/domain"
)

func (s *Server) GetGatepassByPrebooking(c *gin.Context) {
	resp, err := s.gatepassSvc.GetByPrebooking(c.Request.Context(), gatepassdomain.GetByPrebookingRequest{
		PrebookingID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetGatepassByCode(c *gin.Context) {
	resp, err := s.gatepassSvc.GetByCode(c.Request.Context(), gatepassdomain.GetByCodeRequest{
		Code: strings.TrimSpace(c.Param("code")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DownloadGatepassPDF(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	data, err := s.gatepassSvc.PDF(c.Request.Context(), gatepassdomain.GetByCodeRequest{Code: code})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", code+".pdf"))
	c.Data(http.StatusOK, "application/pdf", data)
}

package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	dashboarddomain "github.com/sentrilane/visitgate/internal/dashboard/domain"
)

func (s *Server) DepartmentsToday(c *gin.Context) {
	resp, err := s.dashboardSvc.DepartmentsToday(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DepartmentToday(c *gin.Context) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid department id"))
		return
	}

	resp, err := s.dashboardSvc.DepartmentToday(c.Request.Context(), dashboarddomain.DepartmentTodayRequest{
		DepartmentID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

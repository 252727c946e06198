package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/simplifyhr/offerflow/pkg/gateway"
	"github.com/simplifyhr/offerflow/pkg/screening"
)

type ScreeningHandler struct {
	svc    *screening.Service
	logger *zap.Logger
}

func NewScreeningHandler(svc *screening.Service, logger *zap.Logger) *ScreeningHandler {
	return &ScreeningHandler{svc: svc, logger: logger}
}

func (h *ScreeningHandler) AssessApplication(c *gin.Context) {
	id, ok := parseID(c, "application")
	if !ok {
		return
	}
	res, err := h.svc.AssessApplication(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("failed to assess application", zap.String("application_id", id.String()), zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ScreeningHandler) AssessJob(c *gin.Context) {
	id, ok := parseID(c, "job")
	if !ok {
		return
	}
	results, err := h.svc.AssessJob(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("failed to assess job applications", zap.String("job_id", id.String()), zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessments": results, "total": len(results)})
}

func (h *ScreeningHandler) DescribeJob(c *gin.Context) {
	var brief gateway.JobBrief
	if err := c.ShouldBindJSON(&brief); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	out, err := h.svc.DescribeJob(c.Request.Context(), brief)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

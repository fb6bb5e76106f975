package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-course-api/internal/middleware"
	"github.com/noah-isme/sma-course-api/internal/models"
	"github.com/noah-isme/sma-course-api/internal/service"
	"github.com/noah-isme/sma-course-api/pkg/response"
)

type analyticsService interface {
	AtRisk(ctx context.Context, rawClassID string) ([]models.AtRiskStudent, error)
	ClassSummary(ctx context.Context, rawClassID string) (*models.ClassAnalytics, error)
	Recommendations(ctx context.Context, rawStudentID string, topN int) ([]models.ClassRecommendation, bool, error)
	SystemMetrics(ctx context.Context) models.AnalyticsSystemMetrics
}

type exportService interface {
	ClassReport(ctx context.Context, rawClassID, reportType, rawFormat string) (*service.ExportResult, error)
}

// AnalyticsHandler exposes scoring, recommendation and export endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
	exports   exportService
}

// NewAnalyticsHandler constructs AnalyticsHandler.
func NewAnalyticsHandler(analytics analyticsService, exports exportService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, exports: exports}
}

// AtRisk godoc
// @Summary List at-risk students in a class
// @Tags Analytics
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/at-risk [get]
func (h *AnalyticsHandler) AtRisk(c *gin.Context) {
	students, err := h.analytics.AtRisk(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// ClassSummary godoc
// @Summary Class performance summary
// @Tags Analytics
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/analytics [get]
func (h *AnalyticsHandler) ClassSummary(c *gin.Context) {
	summary, err := h.analytics.ClassSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Recommendations godoc
// @Summary Recommend classes from similar students
// @Tags Analytics
// @Produce json
// @Param id path string true "Student ID"
// @Param top_n query int false "Maximum recommendations"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/recommendations [get]
func (h *AnalyticsHandler) Recommendations(c *gin.Context) {
	recs, cached, err := h.analytics.Recommendations(c.Request.Context(), c.Param("id"), queryInt(c, "top_n", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, recs, nil, middleware.ExtractMeta(c))
}

// System godoc
// @Summary System level instrumentation snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.analytics.SystemMetrics(c.Request.Context()), nil)
}

// Export godoc
// @Summary Download a class report
// @Tags Analytics
// @Produce octet-stream
// @Param id path string true "Class ID"
// @Param type query string false "roster or at-risk"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} file
// @Router /classes/{id}/export [get]
func (h *AnalyticsHandler) Export(c *gin.Context) {
	result, err := h.exports.ClassReport(c.Request.Context(), c.Param("id"),
		c.DefaultQuery("type", service.ReportRoster), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Payload)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-course-api/internal/models"
	"github.com/noah-isme/sma-course-api/internal/service"
	"github.com/noah-isme/sma-course-api/pkg/response"
)

type performanceService interface {
	Get(ctx context.Context, rawStudentID, rawClassID string) (*models.StudentPerformance, error)
	Refresh(ctx context.Context, rawStudentID, rawClassID string) (*models.StudentPerformance, error)
	UpdateRates(ctx context.Context, rawStudentID, rawClassID string, req service.UpdateRatesRequest) (*models.StudentPerformance, error)
}

// PerformanceHandler exposes per student, per class aggregates.
type PerformanceHandler struct {
	performance performanceService
}

// NewPerformanceHandler constructs PerformanceHandler.
func NewPerformanceHandler(performance performanceService) *PerformanceHandler {
	return &PerformanceHandler{performance: performance}
}

// Get godoc
// @Summary Get performance record
// @Tags Performance
// @Produce json
// @Param studentId path string true "Student ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /performance/{studentId}/{classId} [get]
func (h *PerformanceHandler) Get(c *gin.Context) {
	perf, err := h.performance.Get(c.Request.Context(), c.Param("studentId"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perf, nil)
}

// UpdateRates godoc
// @Summary Update attendance and completion rates
// @Tags Performance
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param classId path string true "Class ID"
// @Param payload body service.UpdateRatesRequest true "Rates"
// @Success 200 {object} response.Envelope
// @Router /performance/{studentId}/{classId}/rates [put]
func (h *PerformanceHandler) UpdateRates(c *gin.Context) {
	var req service.UpdateRatesRequest
	if !bindJSON(c, &req) {
		return
	}
	perf, err := h.performance.UpdateRates(c.Request.Context(), c.Param("studentId"), c.Param("classId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perf, nil)
}

// Refresh godoc
// @Summary Recompute average and predictions
// @Tags Performance
// @Produce json
// @Param studentId path string true "Student ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /performance/{studentId}/{classId}/predictions [post]
func (h *PerformanceHandler) Refresh(c *gin.Context) {
	perf, err := h.performance.Refresh(c.Request.Context(), c.Param("studentId"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perf, nil)
}

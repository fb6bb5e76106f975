package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-course-api/internal/dto"
	"github.com/noah-isme/sma-course-api/internal/models"
	"github.com/noah-isme/sma-course-api/internal/service"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
	"github.com/noah-isme/sma-course-api/pkg/response"
)

type userService interface {
	Get(ctx context.Context, rawID string) (*models.User, error)
	Set(ctx context.Context, rawID string, req service.SetUserRequest) (*models.User, error)
	Classes(ctx context.Context, rawID string) ([]models.Class, error)
	AddClass(ctx context.Context, rawID, rawClassID string) (*models.User, error)
	RemoveClass(ctx context.Context, rawID, rawClassID string) (bool, error)
}

// UserHandler exposes user endpoints.
type UserHandler struct {
	users userService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users userService) *UserHandler {
	return &UserHandler{users: users}
}

// Get godoc
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Set godoc
// @Summary Create or replace user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body service.SetUserRequest true "User payload"
// @Success 200 {object} response.Envelope
// @Router /users/{id} [put]
func (h *UserHandler) Set(c *gin.Context) {
	var req service.SetUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.Set(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Classes godoc
// @Summary List classes assigned to a user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/classes [get]
func (h *UserHandler) Classes(c *gin.Context) {
	classes, err := h.users.Classes(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// AddClass godoc
// @Summary Assign class to user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.AssignClassRequest true "Class"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/classes [post]
func (h *UserHandler) AddClass(c *gin.Context) {
	var req dto.AssignClassRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ClassID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class_id required"))
		return
	}
	user, err := h.users.AddClass(c.Request.Context(), c.Param("id"), req.ClassID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// RemoveClass godoc
// @Summary Unassign class from user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/classes/{classId} [delete]
func (h *UserHandler) RemoveClass(c *gin.Context) {
	removed, err := h.users.RemoveClass(c.Request.Context(), c.Param("id"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RemovalResponse{Removed: removed}, nil)
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-booking-api/internal/dto"
	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/response"
)

type changeRequestService interface {
	Create(ctx context.Context, req dto.CreateChangeRequest, requester models.Actor) (*models.ScheduleChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter, actor models.Actor) ([]models.ScheduleChangeRequest, *models.Pagination, error)
	Get(ctx context.Context, id string, actor models.Actor) (*models.ScheduleChangeRequest, error)
	Confirm(ctx context.Context, id string, decider models.Actor) (*models.ScheduleChangeRequest, error)
	Withdraw(ctx context.Context, id string, actor models.Actor) error
}

// ChangeRequestHandler exposes REST endpoints for the schedule-change
// workflow.
type ChangeRequestHandler struct {
	service changeRequestService
}

// NewChangeRequestHandler constructs the handler.
func NewChangeRequestHandler(service changeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{service: service}
}

// Create godoc
// @Summary Propose a schedule change
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param payload body dto.CreateChangeRequest true "Change request payload"
// @Success 201 {object} response.Envelope
// @Router /change-requests [post]
func (h *ChangeRequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid change request payload"))
		return
	}
	change, err := h.service.Create(c.Request.Context(), req, claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, change, nil)
}

// List godoc
// @Summary List schedule change requests
// @Tags ChangeRequests
// @Produce json
// @Param kind query string false "TEMPLATE or SESSION"
// @Param status query string false "UNCONFIRMED or CONFIRMED"
// @Param targetId query string false "Target filter"
// @Success 200 {object} response.Envelope
// @Router /change-requests [get]
func (h *ChangeRequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.ChangeRequestFilter{
		Kind:     models.ChangeRequestKind(strings.ToUpper(c.Query("kind"))),
		Status:   models.ChangeRequestStatus(strings.ToUpper(c.Query("status"))),
		TargetID: strings.TrimSpace(c.Query("targetId")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}
	changes, pagination, err := h.service.List(c.Request.Context(), filter, claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, changes, pagination)
}

// Get godoc
// @Summary Get change request detail
// @Tags ChangeRequests
// @Produce json
// @Param id path string true "Change request ID"
// @Success 200 {object} response.Envelope
// @Router /change-requests/{id} [get]
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	change, err := h.service.Get(c.Request.Context(), c.Param("id"), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}

// Confirm godoc
// @Summary Confirm a change request and apply the proposal
// @Tags ChangeRequests
// @Produce json
// @Param id path string true "Change request ID"
// @Success 200 {object} response.Envelope
// @Router /change-requests/{id}/confirm [post]
func (h *ChangeRequestHandler) Confirm(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	change, err := h.service.Confirm(c.Request.Context(), c.Param("id"), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}

// Withdraw godoc
// @Summary Withdraw or reject an unconfirmed change request
// @Tags ChangeRequests
// @Produce json
// @Param id path string true "Change request ID"
// @Success 204
// @Router /change-requests/{id} [delete]
func (h *ChangeRequestHandler) Withdraw(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Withdraw(c.Request.Context(), c.Param("id"), claims.Actor()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

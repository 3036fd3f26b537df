package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-booking-api/internal/dto"
	"github.com/noah-isme/campus-booking-api/internal/middleware"
	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/response"
	"github.com/noah-isme/campus-booking-api/pkg/timeslot"
)

type conflictChecker interface {
	Check(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error)
}

type sessionGenerator interface {
	Generate(ctx context.Context, req dto.GenerateSessionsRequest, actorID string) (*dto.GenerateSessionsResponse, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.DatedSession, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.DatedSession, error)
}

type availabilityReader interface {
	Availability(ctx context.Context, roomID string, date time.Time) (*dto.AvailabilityResponse, bool, error)
}

// BookingHandler exposes the conflict checker, session generation and the
// availability view.
type BookingHandler struct {
	conflicts    conflictChecker
	generator    sessionGenerator
	availability availabilityReader
}

// NewBookingHandler constructs the handler.
func NewBookingHandler(conflicts conflictChecker, generator sessionGenerator, availability availabilityReader) *BookingHandler {
	return &BookingHandler{conflicts: conflicts, generator: generator, availability: availability}
}

// CheckConflict godoc
// @Summary Check whether a room slot is free
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.ConflictCheckRequest true "Candidate slot"
// @Success 200 {object} response.Envelope
// @Router /bookings/check [post]
func (h *BookingHandler) CheckConflict(c *gin.Context) {
	var req dto.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid conflict check payload"))
		return
	}
	result, err := h.conflicts.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Generate godoc
// @Summary Generate dated sessions from a weekly template
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.GenerateSessionsRequest true "Generation request"
// @Success 200 {object} response.Envelope
// @Router /sessions/generate [post]
func (h *BookingHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.GenerateSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid generation payload"))
		return
	}
	result, err := h.generator.Generate(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListSessions godoc
// @Summary List dated sessions
// @Tags Bookings
// @Produce json
// @Param templateId query string false "Template filter"
// @Param roomId query string false "Room filter"
// @Param dateFrom query string false "Start of date range (YYYY-MM-DD)"
// @Param dateTo query string false "End of date range (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *BookingHandler) ListSessions(c *gin.Context) {
	filter := models.SessionFilter{
		TemplateID: strings.TrimSpace(c.Query("templateId")),
		RoomID:     strings.TrimSpace(c.Query("roomId")),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "pageSize", 20),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
	}
	if raw := c.Query("dateFrom"); raw != "" {
		if date, err := timeslot.ParseDate(raw); err == nil {
			filter.DateFrom = &date
		}
	}
	if raw := c.Query("dateTo"); raw != "" {
		if date, err := timeslot.ParseDate(raw); err == nil {
			filter.DateTo = &date
		}
	}
	sessions, pagination, err := h.generator.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// GetSession godoc
// @Summary Get session detail
// @Tags Bookings
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *BookingHandler) GetSession(c *gin.Context) {
	session, err := h.generator.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Availability godoc
// @Summary Room availability for a date
// @Tags Bookings
// @Produce json
// @Param id path string true "Room ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/availability [get]
func (h *BookingHandler) Availability(c *gin.Context) {
	date, err := timeslot.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}
	result, cacheHit, err := h.availability.Availability(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, result, nil)
}

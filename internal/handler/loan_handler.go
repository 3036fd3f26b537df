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
	"github.com/noah-isme/campus-booking-api/pkg/timeslot"
)

type loanService interface {
	Create(ctx context.Context, req dto.CreateLoanRequest, requester models.Actor) (*models.RoomLoan, error)
	List(ctx context.Context, filter models.LoanFilter, actor models.Actor) ([]models.RoomLoan, *models.Pagination, error)
	Get(ctx context.Context, id string, actor models.Actor) (*models.RoomLoan, error)
	Accept(ctx context.Context, id string, decider models.Actor) (*models.RoomLoan, error)
	Reject(ctx context.Context, id string, decider models.Actor) (*models.RoomLoan, error)
}

// LoanHandler exposes REST endpoints for the room-loan workflow.
type LoanHandler struct {
	service loanService
}

// NewLoanHandler constructs the handler.
func NewLoanHandler(service loanService) *LoanHandler {
	return &LoanHandler{service: service}
}

// Create godoc
// @Summary Request a room loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param payload body dto.CreateLoanRequest true "Loan payload"
// @Success 201 {object} response.Envelope
// @Router /loans [post]
func (h *LoanHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid loan payload"))
		return
	}
	loan, err := h.service.Create(c.Request.Context(), req, claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, loan, nil)
}

// List godoc
// @Summary List room loans
// @Tags Loans
// @Produce json
// @Param roomId query string false "Room filter"
// @Param status query string false "PENDING, ACCEPTED or REJECTED"
// @Param date query string false "Date filter (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /loans [get]
func (h *LoanHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.LoanFilter{
		RoomID:    strings.TrimSpace(c.Query("roomId")),
		Status:    models.LoanStatus(strings.ToUpper(c.Query("status"))),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "pageSize", 20),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if raw := c.Query("date"); raw != "" {
		if date, err := timeslot.ParseDate(raw); err == nil {
			filter.DateFrom = &date
			filter.DateTo = &date
		}
	}
	loans, pagination, err := h.service.List(c.Request.Context(), filter, claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loans, pagination)
}

// Get godoc
// @Summary Get loan detail
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} response.Envelope
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	loan, err := h.service.Get(c.Request.Context(), c.Param("id"), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan, nil)
}

// Accept godoc
// @Summary Accept a pending loan
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} response.Envelope
// @Router /loans/{id}/accept [post]
func (h *LoanHandler) Accept(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	loan, err := h.service.Accept(c.Request.Context(), c.Param("id"), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan, nil)
}

// Reject godoc
// @Summary Reject a pending loan
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} response.Envelope
// @Router /loans/{id}/reject [post]
func (h *LoanHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	loan, err := h.service.Reject(c.Request.Context(), c.Param("id"), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan, nil)
}

package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-booking-api/internal/service"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/response"
	"github.com/noah-isme/campus-booking-api/pkg/timeslot"
)

type exportService interface {
	ExportSchedule(ctx context.Context, from, to time.Time, roomID string) (*service.ExportResult, error)
	Open(token string) (*os.File, error)
}

// ExportHandler exposes schedule CSV exports with signed downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Export the schedule as CSV
// @Tags Exports
// @Produce json
// @Param dateFrom query string true "Start date (YYYY-MM-DD)"
// @Param dateTo query string true "End date (YYYY-MM-DD)"
// @Param roomId query string false "Room filter"
// @Success 200 {object} response.Envelope
// @Router /exports/schedule [post]
func (h *ExportHandler) Export(c *gin.Context) {
	from, err := timeslot.ParseDate(c.Query("dateFrom"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dateFrom must be YYYY-MM-DD"))
		return
	}
	to, err := timeslot.ParseDate(c.Query("dateTo"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dateTo must be YYYY-MM-DD"))
		return
	}
	result, err := h.service.ExportSchedule(c.Request.Context(), from, to, c.Query("roomId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download an exported file
// @Tags Exports
// @Produce text/csv
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.service.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	name := filepath.Base(file.Name())
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Header("Content-Type", "text/csv")
	c.File(file.Name())
}

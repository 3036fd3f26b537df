package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/export"
	"github.com/noah-isme/campus-booking-api/pkg/storage"
	"github.com/noah-isme/campus-booking-api/pkg/timeslot"
)

type exportSessionStore interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.DatedSession, int, error)
}

type exportLoanStore interface {
	List(ctx context.Context, filter models.LoanFilter) ([]models.RoomLoan, int, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string    `json:"relative_path"`
	Token        string    `json:"token"`
	URL          string    `json:"url"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExportService renders schedule snapshots as CSV files and hands out
// signed download links.
type ExportService struct {
	sessions exportSessionStore
	loans    exportLoanStore
	storage  fileStorage
	csv      csvRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(sessions exportSessionStore, loans exportLoanStore, fs fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &ExportService{
		sessions: sessions,
		loans:    loans,
		storage:  fs,
		csv:      csv,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// ExportSchedule renders every session and accepted loan inside the date
// range into one CSV file and returns a signed download link.
func (s *ExportService) ExportSchedule(ctx context.Context, from, to time.Time, roomID string) (*ExportResult, error) {
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range end precedes start")
	}

	sessions, _, err := s.sessions.List(ctx, models.SessionFilter{
		RoomID:   roomID,
		DateFrom: &from,
		DateTo:   &to,
		Page:     1,
		PageSize: 10000,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions for export")
	}
	loans, _, err := s.loans.List(ctx, models.LoanFilter{
		RoomID:   roomID,
		Status:   models.LoanStatusAccepted,
		DateFrom: &from,
		DateTo:   &to,
		Page:     1,
		PageSize: 10000,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list loans for export")
	}

	dataset := export.Dataset{
		Headers: []string{"date", "start_time", "end_time", "room_id", "kind", "entity_id"},
		Rows:    make([]map[string]string, 0, len(sessions)+len(loans)),
	}
	for _, sess := range sessions {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"date":       timeslot.FormatDate(sess.Date),
			"start_time": sess.StartTime,
			"end_time":   sess.EndTime,
			"room_id":    sess.RoomID,
			"kind":       string(models.ConflictSourceSession),
			"entity_id":  sess.ID,
		})
	}
	for _, loan := range loans {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"date":       timeslot.FormatDate(loan.Date),
			"start_time": loan.StartTime,
			"end_time":   loan.EndTime,
			"room_id":    loan.RoomID,
			"kind":       string(models.ConflictSourceLoan),
			"entity_id":  loan.ID,
		})
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule csv")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("schedule_%s_%s_%s.csv", timeslot.FormatDate(from), timeslot.FormatDate(to), exportID[:8])
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store schedule export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/%s", prefix, token),
		ExpiresAt:    expiresAt,
	}, nil
}

// Open validates a download token and returns the file handle.
func (s *ExportService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, nil
}

// Cleanup removes expired export files.
func (s *ExportService) Cleanup() {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("cleaned up expired exports", zap.Int("count", len(deleted)))
	}
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-booking-api/internal/dto"
	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/timeslot"
)

type sessionConflictStore interface {
	ListByRoomAndDate(ctx context.Context, exec sqlx.ExtContext, roomID string, date time.Time) ([]models.DatedSession, error)
}

type loanConflictStore interface {
	ListAcceptedByRoomAndDate(ctx context.Context, exec sqlx.ExtContext, roomID string, date time.Time) ([]models.RoomLoan, error)
}

type conflictMetrics interface {
	RecordConflictCheck(conflicted bool)
}

// ConflictService answers whether a candidate (room, date, interval) is
// free. It is the single authority consulted by session generation, loan
// acceptance, and change-request confirmation; callers inside a
// transaction pass their exec so the check sees locked rows.
type ConflictService struct {
	sessions  sessionConflictStore
	loans     loanConflictStore
	metrics   conflictMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConflictService constructs the service.
func NewConflictService(sessions sessionConflictStore, loans loanConflictStore, metrics conflictMetrics, validate *validator.Validate, logger *zap.Logger) *ConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{sessions: sessions, loans: loans, metrics: metrics, validator: validate, logger: logger}
}

// Check validates and answers an ad-hoc availability probe.
func (s *ConflictService) Check(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	date, err := timeslot.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	start, end, err := parseInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	conflicts, err := s.FindConflicts(ctx, nil, req.RoomID, date, start, end, req.ExcludeSessionID)
	if err != nil {
		return nil, err
	}
	return &dto.ConflictCheckResponse{Free: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// FindConflicts scans every committed booking for the room and date and
// returns all that overlap [start, end). Touching intervals do not
// collide. excludeSessionID skips one session so a reschedule can be
// checked against everything but itself; pass exec non-nil to read inside
// an open transaction.
func (s *ConflictService) FindConflicts(ctx context.Context, exec sqlx.ExtContext, roomID string, date time.Time, start, end timeslot.Clock, excludeSessionID string) ([]models.BookingConflict, error) {
	if !timeslot.ValidInterval(start, end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}

	sessions, err := s.sessions.ListByRoomAndDate(ctx, exec, roomID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions for conflict check")
	}
	var conflicts []models.BookingConflict
	for _, sess := range sessions {
		if excludeSessionID != "" && sess.ID == excludeSessionID {
			continue
		}
		sStart, sEnd, err := parseInterval(sess.StartTime, sess.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("stored session %s has malformed times", sess.ID))
		}
		if timeslot.Overlaps(start, end, sStart, sEnd) {
			conflicts = append(conflicts, models.BookingConflict{
				Source:    models.ConflictSourceSession,
				EntityID:  sess.ID,
				RoomID:    sess.RoomID,
				Date:      timeslot.FormatDate(sess.Date),
				StartTime: sess.StartTime,
				EndTime:   sess.EndTime,
			})
		}
	}

	loans, err := s.loans.ListAcceptedByRoomAndDate(ctx, exec, roomID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load loans for conflict check")
	}
	for _, loan := range loans {
		lStart, lEnd, err := parseInterval(loan.StartTime, loan.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("stored loan %s has malformed times", loan.ID))
		}
		if timeslot.Overlaps(start, end, lStart, lEnd) {
			conflicts = append(conflicts, models.BookingConflict{
				Source:    models.ConflictSourceLoan,
				EntityID:  loan.ID,
				RoomID:    loan.RoomID,
				Date:      timeslot.FormatDate(loan.Date),
				StartTime: loan.StartTime,
				EndTime:   loan.EndTime,
			})
		}
	}

	if s.metrics != nil {
		s.metrics.RecordConflictCheck(len(conflicts) > 0)
	}
	return conflicts, nil
}

func parseInterval(startRaw, endRaw string) (timeslot.Clock, timeslot.Clock, error) {
	start, err := timeslot.ParseClock(startRaw)
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "start time must be HH:MM")
	}
	end, err := timeslot.ParseClock(endRaw)
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "end time must be HH:MM")
	}
	if !timeslot.ValidInterval(start, end) {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}
	return start, end, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-booking-api/internal/dto"
	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/timeslot"
)

// AvailabilityService serves the read-heavy per-room-per-date booking view.
// Results are cached in Redis and invalidated by every write that commits a
// booking for the room.
type AvailabilityService struct {
	sessions sessionConflictStore
	loans    loanConflictStore
	cache    *CacheService
	ttl      time.Duration
	logger   *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(sessions sessionConflictStore, loans loanConflictStore, cache *CacheService, ttl time.Duration, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AvailabilityService{sessions: sessions, loans: loans, cache: cache, ttl: ttl, logger: logger}
}

// Availability returns every committed booking for the room on the date.
// The second return value reports whether the payload came from cache.
func (s *AvailabilityService) Availability(ctx context.Context, roomID string, date time.Time) (*dto.AvailabilityResponse, bool, error) {
	key := availabilityCacheKey(roomID, date)
	if s.cache != nil && s.cache.Enabled() {
		var cached dto.AvailabilityResponse
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	sessions, err := s.sessions.ListByRoomAndDate(ctx, nil, roomID, date)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	loans, err := s.loans.ListAcceptedByRoomAndDate(ctx, nil, roomID, date)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load loans")
	}

	resp := &dto.AvailabilityResponse{
		RoomID:   roomID,
		Date:     timeslot.FormatDate(date),
		Bookings: make([]models.BookingConflict, 0, len(sessions)+len(loans)),
	}
	for _, sess := range sessions {
		resp.Bookings = append(resp.Bookings, models.BookingConflict{
			Source:    models.ConflictSourceSession,
			EntityID:  sess.ID,
			RoomID:    sess.RoomID,
			Date:      timeslot.FormatDate(sess.Date),
			StartTime: sess.StartTime,
			EndTime:   sess.EndTime,
		})
	}
	for _, loan := range loans {
		resp.Bookings = append(resp.Bookings, models.BookingConflict{
			Source:    models.ConflictSourceLoan,
			EntityID:  loan.ID,
			RoomID:    loan.RoomID,
			Date:      timeslot.FormatDate(loan.Date),
			StartTime: loan.StartTime,
			EndTime:   loan.EndTime,
		})
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, resp, s.ttl); err != nil {
			s.logger.Warn("failed to cache availability", zap.Error(err))
		}
	}
	return resp, false, nil
}

func availabilityCacheKey(roomID string, date time.Time) string {
	return fmt.Sprintf("availability:%s:%s", roomID, timeslot.FormatDate(date))
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-booking-api/internal/dto"
	"github.com/noah-isme/campus-booking-api/internal/middleware"
	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
)

type conflictCheckerMock struct {
	resp *dto.ConflictCheckResponse
	err  error
}

func (m *conflictCheckerMock) Check(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error) {
	return m.resp, m.err
}

type sessionGeneratorMock struct {
	genResp  *dto.GenerateSessionsResponse
	genErr   error
	sessions []models.DatedSession
	session  *models.DatedSession
}

func (m *sessionGeneratorMock) Generate(ctx context.Context, req dto.GenerateSessionsRequest, actorID string) (*dto.GenerateSessionsResponse, error) {
	return m.genResp, m.genErr
}

func (m *sessionGeneratorMock) List(ctx context.Context, filter models.SessionFilter) ([]models.DatedSession, *models.Pagination, error) {
	return m.sessions, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.sessions)}, nil
}

func (m *sessionGeneratorMock) Get(ctx context.Context, id string) (*models.DatedSession, error) {
	if m.session == nil {
		return nil, appErrors.ErrNotFound
	}
	return m.session, nil
}

type availabilityReaderMock struct {
	resp     *dto.AvailabilityResponse
	cacheHit bool
}

func (m *availabilityReaderMock) Availability(ctx context.Context, roomID string, date time.Time) (*dto.AvailabilityResponse, bool, error) {
	return m.resp, m.cacheHit, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestBookingHandlerCheckConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBookingHandler(&conflictCheckerMock{
		resp: &dto.ConflictCheckResponse{Free: false, Conflicts: []models.BookingConflict{
			{Source: models.ConflictSourceSession, EntityID: "sess-1", RoomID: "room-1"},
		}},
	}, &sessionGeneratorMock{}, &availabilityReaderMock{})

	payload, _ := json.Marshal(dto.ConflictCheckRequest{
		RoomID:    "room-1",
		Date:      "2025-09-01",
		StartTime: "09:00",
		EndTime:   "11:00",
	})
	c, w := newGinContext(http.MethodPost, "/bookings/check", payload)

	handler.CheckConflict(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sess-1")
}

func TestBookingHandlerCheckConflictBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBookingHandler(&conflictCheckerMock{}, &sessionGeneratorMock{}, &availabilityReaderMock{})

	c, w := newGinContext(http.MethodPost, "/bookings/check", []byte("{not json"))

	handler.CheckConflict(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandlerGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBookingHandler(&conflictCheckerMock{}, &sessionGeneratorMock{
		genResp: &dto.GenerateSessionsResponse{
			Created: []models.DatedSession{{ID: "sess-1"}},
			Skipped: []dto.SkippedDate{{Date: "2025-09-08", Reason: "room room-1 already booked"}},
		},
	}, &availabilityReaderMock{})

	payload, _ := json.Marshal(dto.GenerateSessionsRequest{
		TemplateID:    "tpl-1",
		SemesterStart: "2025-09-01",
		MeetingCount:  2,
	})
	c, w := newGinContext(http.MethodPost, "/sessions/generate", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Generate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "skipped")
}

func TestBookingHandlerGenerateRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBookingHandler(&conflictCheckerMock{}, &sessionGeneratorMock{}, &availabilityReaderMock{})

	c, w := newGinContext(http.MethodPost, "/sessions/generate", []byte("{}"))

	handler.Generate(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingHandlerAvailability(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBookingHandler(&conflictCheckerMock{}, &sessionGeneratorMock{}, &availabilityReaderMock{
		resp:     &dto.AvailabilityResponse{RoomID: "room-1", Date: "2025-09-01"},
		cacheHit: true,
	})

	c, w := newGinContext(http.MethodGet, "/rooms/room-1/availability?date=2025-09-01", nil)
	c.Params = gin.Params{{Key: "id", Value: "room-1"}}

	handler.Availability(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "room-1")
}

func TestBookingHandlerAvailabilityNeedsDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBookingHandler(&conflictCheckerMock{}, &sessionGeneratorMock{}, &availabilityReaderMock{})

	c, w := newGinContext(http.MethodGet, "/rooms/room-1/availability", nil)
	c.Params = gin.Params{{Key: "id", Value: "room-1"}}

	handler.Availability(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

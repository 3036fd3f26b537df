package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-booking-api/internal/dto"
	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
)

func TestRoomServiceCreateDefaultsToUsable(t *testing.T) {
	rooms := &roomStoreStub{}
	service := newRoomServiceFixture(rooms, noopTxProvider{})

	room, err := service.Create(context.Background(), dto.CreateRoomRequest{
		Name:     "Lab 2.01",
		Building: "Engineering",
		Floor:    2,
		Capacity: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusUsable, room.Status)
}

func TestRoomServiceCreateRejectsDuplicateName(t *testing.T) {
	rooms := &roomStoreStub{items: []models.Room{
		{ID: "room-1", Name: "Lab 2.01", Building: "Engineering", Capacity: 40, Status: models.RoomStatusUsable},
	}}
	service := newRoomServiceFixture(rooms, noopTxProvider{})

	_, err := service.Create(context.Background(), dto.CreateRoomRequest{
		Name:     "Lab 2.01",
		Building: "Engineering",
		Capacity: 30,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
}

func TestRoomServiceUpdateMergesFields(t *testing.T) {
	rooms := &roomStoreStub{items: []models.Room{
		{ID: "room-1", Name: "Lab 2.01", Building: "Engineering", Floor: 2, Capacity: 40, Status: models.RoomStatusUsable},
	}}
	service := newRoomServiceFixture(rooms, noopTxProvider{})

	capacity := 60
	status := "UNDER_REPAIR"
	room, err := service.Update(context.Background(), "room-1", dto.UpdateRoomRequest{
		Capacity: &capacity,
		Status:   &status,
	})
	require.NoError(t, err)
	assert.Equal(t, "Lab 2.01", room.Name)
	assert.Equal(t, 60, room.Capacity)
	assert.Equal(t, models.RoomStatusUnderRepair, room.Status)
}

func TestRoomServiceDeleteBlockedWithoutCascade(t *testing.T) {
	rooms := &roomStoreStub{
		items: []models.Room{{ID: "room-1", Name: "Lab 2.01", Status: models.RoomStatusUsable}},
		deps:  models.RoomDependencies{Templates: 1, Sessions: 12},
	}
	service := newRoomServiceFixture(rooms, noopTxProvider{})

	err := service.Delete(context.Background(), "room-1", false, models.NewAdminActor("admin-1", "adm-1"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "cascade")
	assert.Len(t, rooms.items, 1)
}

func TestRoomServiceDeleteCascades(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	rooms := &roomStoreStub{
		items: []models.Room{{ID: "room-1", Name: "Lab 2.01", Status: models.RoomStatusUsable}},
		deps:  models.RoomDependencies{Templates: 1, Sessions: 12},
	}
	service := newRoomServiceFixture(rooms, tx)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := service.Delete(context.Background(), "room-1", true, models.NewAdminActor("admin-1", "adm-1"))
	require.NoError(t, err)
	assert.True(t, rooms.dependentsDeleted)
	assert.Empty(t, rooms.items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomServiceDeleteUnreferencedRoomNeedsNoCascade(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	rooms := &roomStoreStub{
		items: []models.Room{{ID: "room-1", Name: "Lab 2.01", Status: models.RoomStatusUsable}},
	}
	service := newRoomServiceFixture(rooms, tx)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := service.Delete(context.Background(), "room-1", false, models.NewAdminActor("admin-1", "adm-1"))
	require.NoError(t, err)
	assert.False(t, rooms.dependentsDeleted)
	assert.Empty(t, rooms.items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Fixtures ---

func newRoomServiceFixture(rooms *roomStoreStub, tx txProvider) *RoomService {
	return NewRoomService(rooms, tx, &cacheInvalidatorStub{}, &auditRecorderStub{}, nil, nil)
}

type roomStoreStub struct {
	items             []models.Room
	deps              models.RoomDependencies
	dependentsDeleted bool
}

func (s *roomStoreStub) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error) {
	return s.items, len(s.items), nil
}

func (s *roomStoreStub) FindByID(ctx context.Context, id string) (*models.Room, error) {
	for _, item := range s.items {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *roomStoreStub) FindByName(ctx context.Context, name string) (*models.Room, error) {
	for _, item := range s.items {
		if strings.EqualFold(item.Name, name) {
			found := item
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *roomStoreStub) Create(ctx context.Context, room *models.Room) error {
	room.ID = fmt.Sprintf("room-%d", len(s.items)+1)
	s.items = append(s.items, *room)
	return nil
}

func (s *roomStoreStub) Update(ctx context.Context, room *models.Room) error {
	for idx := range s.items {
		if s.items[idx].ID == room.ID {
			s.items[idx] = *room
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *roomStoreStub) CountDependencies(ctx context.Context, roomID string) (models.RoomDependencies, error) {
	return s.deps, nil
}

func (s *roomStoreStub) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	for idx := range s.items {
		if s.items[idx].ID == id {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *roomStoreStub) DeleteDependents(ctx context.Context, exec sqlx.ExtContext, roomID string) error {
	s.dependentsDeleted = true
	return nil
}

package chatrooms

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	natsinfra "github.com/paoshea/disco-sub000/internal/infra/nats"
	pgrepo "github.com/paoshea/disco-sub000/internal/repo/postgres"
)

type RoomStore interface {
	CreateIfAbsent(ctx context.Context, roomID string, userID, targetID int64, at time.Time) (pgrepo.ChatRoomRecord, bool, error)
}

type EventPublisher interface {
	Publish(subject string, payload []byte) error
}

type Room struct {
	RoomID    string
	UserLoID  int64
	UserHiID  int64
	CreatedAt time.Time
}

type roomCreatedEvent struct {
	RoomID    string    `json:"roomId"`
	UserLoID  int64     `json:"userLoId"`
	UserHiID  int64     `json:"userHiId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	rooms     RoomStore
	publisher EventPublisher
	log       *zap.Logger
	now       func() time.Time
	newRoomID func() string
}

func NewService(rooms RoomStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		rooms:     rooms,
		log:       log,
		now:       time.Now,
		newRoomID: uuid.NewString,
	}
}

// AttachPublisher enables room-created events. Without a publisher the
// service only persists the room row.
func (s *Service) AttachPublisher(publisher EventPublisher) {
	s.publisher = publisher
}

// CreateRoom creates the chat room for the unordered user pair. Calling
// it again for the same pair returns the existing room. The created
// event is published at most once per room; a publish failure is logged
// and does not fail the call, the room row is the source of truth.
func (s *Service) CreateRoom(ctx context.Context, userID, targetID int64) (Room, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return Room{}, fmt.Errorf("invalid chat room payload")
	}
	if s.rooms == nil {
		return Room{}, fmt.Errorf("room store is not configured")
	}

	rec, created, err := s.rooms.CreateIfAbsent(ctx, s.newRoomID(), userID, targetID, s.now())
	if err != nil {
		return Room{}, fmt.Errorf("create chat room: %w", err)
	}

	room := Room{
		RoomID:    rec.RoomID,
		UserLoID:  rec.UserLoID,
		UserHiID:  rec.UserHiID,
		CreatedAt: rec.CreatedAt,
	}

	if created && s.publisher != nil {
		payload, marshalErr := json.Marshal(roomCreatedEvent{
			RoomID:    room.RoomID,
			UserLoID:  room.UserLoID,
			UserHiID:  room.UserHiID,
			CreatedAt: room.CreatedAt,
		})
		if marshalErr != nil {
			s.log.Warn("encode room created event", zap.Error(marshalErr))
			return room, nil
		}
		if pubErr := s.publisher.Publish(natsinfra.SubjectChatRoomCreated, payload); pubErr != nil {
			s.log.Warn("publish room created event",
				zap.String("room_id", room.RoomID),
				zap.Error(pubErr),
			)
		}
	}

	return room, nil
}

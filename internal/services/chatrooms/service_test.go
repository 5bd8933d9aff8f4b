package chatrooms

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	natsinfra "github.com/paoshea/disco-sub000/internal/infra/nats"
	pgrepo "github.com/paoshea/disco-sub000/internal/repo/postgres"
)

type stubRoomStore struct {
	created bool
	err     error

	rec pgrepo.ChatRoomRecord
}

func (s *stubRoomStore) CreateIfAbsent(_ context.Context, roomID string, userID, targetID int64, at time.Time) (pgrepo.ChatRoomRecord, bool, error) {
	if s.err != nil {
		return pgrepo.ChatRoomRecord{}, false, s.err
	}
	lo, hi := userID, targetID
	if lo > hi {
		lo, hi = hi, lo
	}
	if s.rec.RoomID == "" {
		s.rec = pgrepo.ChatRoomRecord{RoomID: roomID, UserLoID: lo, UserHiID: hi, CreatedAt: at}
		return s.rec, true, nil
	}
	return s.rec, false, nil
}

type stubPublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *stubPublisher) Publish(subject string, payload []byte) error {
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, payload)
	return p.err
}

func TestCreateRoomPublishesOnce(t *testing.T) {
	store := &stubRoomStore{}
	pub := &stubPublisher{}

	svc := NewService(store, zap.NewNop())
	svc.AttachPublisher(pub)

	room, err := svc.CreateRoom(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if room.RoomID == "" {
		t.Fatal("empty room id")
	}
	if room.UserLoID != 3 || room.UserHiID != 7 {
		t.Fatalf("pair not canonical: lo=%d hi=%d", room.UserLoID, room.UserHiID)
	}

	if len(pub.subjects) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.subjects))
	}
	if pub.subjects[0] != natsinfra.SubjectChatRoomCreated {
		t.Fatalf("unexpected subject: %q", pub.subjects[0])
	}

	var event struct {
		RoomID   string `json:"roomId"`
		UserLoID int64  `json:"userLoId"`
		UserHiID int64  `json:"userHiId"`
	}
	if err := json.Unmarshal(pub.payloads[0], &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.RoomID != room.RoomID || event.UserLoID != 3 || event.UserHiID != 7 {
		t.Fatalf("unexpected event payload: %+v", event)
	}

	// second call for the same pair hits the existing row, no new event
	again, err := svc.CreateRoom(context.Background(), 3, 7)
	if err != nil {
		t.Fatalf("create room again: %v", err)
	}
	if again.RoomID != room.RoomID {
		t.Fatalf("room id changed: %q vs %q", again.RoomID, room.RoomID)
	}
	if len(pub.subjects) != 1 {
		t.Fatalf("existing room must not publish, got %d events", len(pub.subjects))
	}
}

func TestCreateRoomWithoutPublisher(t *testing.T) {
	svc := NewService(&stubRoomStore{}, zap.NewNop())

	room, err := svc.CreateRoom(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if room.RoomID == "" {
		t.Fatal("empty room id")
	}
}

func TestCreateRoomSurvivesPublishFailure(t *testing.T) {
	store := &stubRoomStore{}
	pub := &stubPublisher{err: errors.New("nats down")}

	svc := NewService(store, zap.NewNop())
	svc.AttachPublisher(pub)

	room, err := svc.CreateRoom(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("publish failure must not fail the call: %v", err)
	}
	if room.RoomID == "" {
		t.Fatal("empty room id")
	}
}

func TestCreateRoomValidatesPair(t *testing.T) {
	svc := NewService(&stubRoomStore{}, zap.NewNop())

	cases := []struct {
		name   string
		user   int64
		target int64
	}{
		{"zero user", 0, 2},
		{"zero target", 1, 0},
		{"self pair", 4, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateRoom(context.Background(), tc.user, tc.target); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateRoomStoreError(t *testing.T) {
	boom := errors.New("insert failed")
	svc := NewService(&stubRoomStore{err: boom}, zap.NewNop())

	if _, err := svc.CreateRoom(context.Background(), 1, 2); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

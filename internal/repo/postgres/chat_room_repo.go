package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paoshea/disco-sub000/internal/domain/model"
)

type ChatRoomRepo struct {
	pool *pgxpool.Pool
}

type ChatRoomRecord struct {
	RoomID    string
	UserLoID  int64
	UserHiID  int64
	CreatedAt time.Time
}

func NewChatRoomRepo(pool *pgxpool.Pool) *ChatRoomRepo {
	return &ChatRoomRepo{pool: pool}
}

// CreateIfAbsent inserts a room for the pair, or returns the existing
// one. The bool reports whether a new row was created.
func (r *ChatRoomRepo) CreateIfAbsent(ctx context.Context, roomID string, userID, targetID int64, now time.Time) (ChatRoomRecord, bool, error) {
	if roomID == "" || userID <= 0 || targetID <= 0 || userID == targetID {
		return ChatRoomRecord{}, false, fmt.Errorf("invalid chat room payload")
	}
	if r.pool == nil {
		return ChatRoomRecord{}, false, fmt.Errorf("postgres pool is nil")
	}

	lo, hi := model.PairKey(userID, targetID)

	var rec ChatRoomRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO chat_rooms (room_id, user_lo_id, user_hi_id, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_lo_id, user_hi_id) DO NOTHING
RETURNING room_id, user_lo_id, user_hi_id, created_at
`, roomID, lo, hi, now.UTC()).Scan(
		&rec.RoomID,
		&rec.UserLoID,
		&rec.UserHiID,
		&rec.CreatedAt,
	)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ChatRoomRecord{}, false, fmt.Errorf("create chat room: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
SELECT room_id, user_lo_id, user_hi_id, created_at
FROM chat_rooms
WHERE user_lo_id = $1 AND user_hi_id = $2
`, lo, hi).Scan(
		&rec.RoomID,
		&rec.UserLoID,
		&rec.UserHiID,
		&rec.CreatedAt,
	)
	if err != nil {
		return ChatRoomRecord{}, false, fmt.Errorf("load chat room: %w", err)
	}

	return rec, false, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FathanAkram-app/VCOMM-web-sub005/internal/domain"
)

// RoomRepository handles room and membership lookups
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// GetByID retrieves a room by ID
func (r *RoomRepository) GetByID(ctx context.Context, roomID int64) (*domain.Room, error) {
	query := `
		SELECT id, name, created_by, created_at
		FROM rooms
		WHERE id = $1
	`

	room := &domain.Room{}
	err := r.pool.QueryRow(ctx, query, roomID).Scan(
		&room.ID,
		&room.Name,
		&room.CreatedBy,
		&room.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("room %d: %w", roomID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

// GetMembers retrieves all members of a room
func (r *RoomRepository) GetMembers(ctx context.Context, roomID int64) ([]*domain.User, error) {
	query := `
		SELECT u.id, u.username, COALESCE(u.display_name, ''), COALESCE(u.rank, ''), u.created_at
		FROM users u
		JOIN room_members rm ON rm.user_id = u.id
		WHERE rm.room_id = $1
		ORDER BY rm.joined_at ASC
	`

	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room members: %w", err)
	}
	defer rows.Close()

	var members []*domain.User
	for rows.Next() {
		user := &domain.User{}
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.DisplayName,
			&user.Rank,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, user)
	}

	return members, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FathanAkram-app/VCOMM-web-sub005/internal/domain"
)

// CallRepository handles call record persistence
type CallRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository creates a new call repository
func NewCallRepository(pool *pgxpool.Pool) *CallRepository {
	return &CallRepository{pool: pool}
}

// Create inserts a new call record and assigns its ID
func (r *CallRepository) Create(ctx context.Context, call *domain.Call) error {
	query := `
		INSERT INTO calls (
			caller_id, receiver_id, room_id, call_type, status, started_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		call.CallerID,
		call.ReceiverID,
		call.RoomID,
		call.CallType,
		call.Status,
		call.StartedAt,
	).Scan(&call.ID)

	if err != nil {
		return fmt.Errorf("failed to create call: %w", err)
	}

	return nil
}

// GetByID retrieves a call by ID
func (r *CallRepository) GetByID(ctx context.Context, callID int64) (*domain.Call, error) {
	query := `
		SELECT id, caller_id, receiver_id, room_id, call_type, status,
		       started_at, answered_at, ended_at, COALESCE(duration, 0)
		FROM calls
		WHERE id = $1
	`

	call := &domain.Call{}
	err := r.pool.QueryRow(ctx, query, callID).Scan(
		&call.ID,
		&call.CallerID,
		&call.ReceiverID,
		&call.RoomID,
		&call.CallType,
		&call.Status,
		&call.StartedAt,
		&call.AnsweredAt,
		&call.EndedAt,
		&call.Duration,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("call %d: %w", callID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	return call, nil
}

// MarkAnswered transitions a call from pending to answered. The WHERE clause
// makes the transition a compare-and-set, so concurrent duplicate answers
// succeed exactly once.
func (r *CallRepository) MarkAnswered(ctx context.Context, callID int64, answeredAt time.Time) (bool, error) {
	query := `
		UPDATE calls
		SET status = 'answered', answered_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.pool.Exec(ctx, query, callID, answeredAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark call answered: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkDeclined transitions a call from pending to declined
func (r *CallRepository) MarkDeclined(ctx context.Context, callID int64) (bool, error) {
	query := `
		UPDATE calls
		SET status = 'declined', ended_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.pool.Exec(ctx, query, callID)
	if err != nil {
		return false, fmt.Errorf("failed to mark call declined: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkMissed transitions a call from pending to missed (ring timeout)
func (r *CallRepository) MarkMissed(ctx context.Context, callID int64) (bool, error) {
	query := `
		UPDATE calls
		SET status = 'missed', ended_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.pool.Exec(ctx, query, callID)
	if err != nil {
		return false, fmt.Errorf("failed to mark call missed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkEnded transitions a pending or answered call to ended, recording end
// time and duration. Terminal calls are left untouched.
func (r *CallRepository) MarkEnded(ctx context.Context, callID int64, endedAt time.Time, duration int) (bool, error) {
	query := `
		UPDATE calls
		SET status = 'ended', ended_at = $2, duration = $3
		WHERE id = $1 AND status IN ('pending', 'answered')
	`

	tag, err := r.pool.Exec(ctx, query, callID, endedAt, duration)
	if err != nil {
		return false, fmt.Errorf("failed to mark call ended: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListUserCalls retrieves the call history for a user, newest first
func (r *CallRepository) ListUserCalls(ctx context.Context, userID int64, limit, offset int) ([]*domain.Call, error) {
	query := `
		SELECT c.id, c.caller_id, c.receiver_id, c.room_id, c.call_type, c.status,
		       c.started_at, c.answered_at, c.ended_at, COALESCE(c.duration, 0)
		FROM calls c
		WHERE c.caller_id = $1
		   OR c.receiver_id = $1
		   OR c.room_id IN (SELECT room_id FROM room_members WHERE user_id = $1)
		ORDER BY c.started_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list user calls: %w", err)
	}
	defer rows.Close()

	var calls []*domain.Call
	for rows.Next() {
		call := &domain.Call{}
		err := rows.Scan(
			&call.ID,
			&call.CallerID,
			&call.ReceiverID,
			&call.RoomID,
			&call.CallType,
			&call.Status,
			&call.StartedAt,
			&call.AnsweredAt,
			&call.EndedAt,
			&call.Duration,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		calls = append(calls, call)
	}

	return calls, nil
}

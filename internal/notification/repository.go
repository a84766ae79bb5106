package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines message persistence. Every method is atomic on its own;
// none keeps message state in memory.
type Repository interface {
	// Insert stores m as pending and sets m.ID.
	Insert(ctx context.Context, m *Message) error

	// ClaimPending marks every pending message of deviceID delivered at now
	// and returns them oldest first, in one transaction. Messages whose type
	// allow rejects stay pending; a nil allow accepts every type.
	ClaimPending(ctx context.Context, deviceID string, now time.Time, allow func(messageType string) bool) ([]Delivery, error)

	// GetStatus returns ErrMessageNotFound for an unknown id.
	GetStatus(ctx context.Context, id int64) (Status, error)

	// Get returns the full record or ErrMessageNotFound.
	Get(ctx context.Context, id int64) (*Message, error)

	// Purge deletes pending messages created at or before pendingCutoff and
	// delivered messages sent at or before deliveredCutoff.
	Purge(ctx context.Context, pendingCutoff, deliveredCutoff time.Time) (PurgeResult, error)

	// Stats counts messages by status.
	Stats(ctx context.Context) (Stats, error)
}

// SQLiteRepository implements Repository on the notifications table.
//
// The database must be opened with _txlock=immediate (database.Open does
// this): ClaimPending then holds the write lock from its first SELECT, so
// two claims for the same device serialise instead of reading the same
// pending rows.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// Insert stores m with status pending and no send time.
func (r *SQLiteRepository) Insert(ctx context.Context, m *Message) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (device_id, message_type, payload, status, create_time, send_time)
		VALUES (?, ?, ?, ?, ?, NULL)`,
		m.DeviceID, m.Type, m.Payload, string(StatusPending), toMillis(m.CreateTime),
	)
	if err != nil {
		return storeErr("inserting message", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return storeErr("reading message id", err)
	}

	m.ID = id
	m.Status = StatusPending
	m.SendTime = nil
	return nil
}

type claimRow struct {
	id int64
	Delivery
}

// ClaimPending selects and marks a device's pending messages in one
// transaction. Each row is updated with a status guard and only rows whose
// update took effect are returned, so a message can never be handed to two
// callers. Any failure rolls the whole claim back.
func (r *SQLiteRepository) ClaimPending(ctx context.Context, deviceID string, now time.Time, allow func(string) bool) ([]Delivery, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("starting claim", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	rows, err := tx.QueryContext(ctx, `
		SELECT id, message_type, payload
		FROM notifications
		WHERE device_id = ? AND status = ?
		ORDER BY create_time ASC, id ASC`,
		deviceID, string(StatusPending),
	)
	if err != nil {
		return nil, storeErr("selecting pending messages", err)
	}

	var pending []claimRow
	for rows.Next() {
		var row claimRow
		if err := rows.Scan(&row.id, &row.Type, &row.Payload); err != nil {
			rows.Close() //nolint:errcheck // Scan error takes precedence
			return nil, storeErr("scanning pending message", err)
		}
		if allow != nil && !allow(row.Type) {
			continue
		}
		pending = append(pending, row)
	}
	// Rows must be closed before the updates reuse the connection.
	if err := rows.Close(); err != nil {
		return nil, storeErr("closing pending rows", err)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating pending messages", err)
	}

	deliveries := make([]Delivery, 0, len(pending))
	if len(pending) == 0 {
		return deliveries, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE notifications
		SET status = ?, send_time = ?
		WHERE id = ? AND status = ?`)
	if err != nil {
		return nil, storeErr("preparing claim update", err)
	}
	defer stmt.Close()

	sendTime := toMillis(now)
	for _, row := range pending {
		result, err := stmt.ExecContext(ctx, string(StatusDelivered), sendTime, row.id, string(StatusPending))
		if err != nil {
			return nil, storeErr("marking message delivered", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, storeErr("checking claim update", err)
		}
		if n == 1 {
			deliveries = append(deliveries, row.Delivery)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("committing claim", err)
	}
	return deliveries, nil
}

// GetStatus returns the status of one message.
func (r *SQLiteRepository) GetStatus(ctx context.Context, id int64) (Status, error) {
	var status string
	err := r.db.QueryRowContext(ctx, "SELECT status FROM notifications WHERE id = ?", id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrMessageNotFound
		}
		return "", storeErr("querying message status", err)
	}
	return Status(status), nil
}

// Get returns the full record of one message.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*Message, error) {
	var (
		m          Message
		status     string
		createTime int64
		sendTime   sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, device_id, message_type, payload, status, create_time, send_time
		FROM notifications WHERE id = ?`, id,
	).Scan(&m.ID, &m.DeviceID, &m.Type, &m.Payload, &status, &createTime, &sendTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, storeErr("querying message", err)
	}

	m.Status = Status(status)
	m.CreateTime = fromMillis(createTime)
	if sendTime.Valid {
		t := fromMillis(sendTime.Int64)
		m.SendTime = &t
	}
	return &m, nil
}

// Purge removes expired messages with a single DELETE, so a message is
// either claimed or purged, never both. RETURNING reports what was removed
// per status.
func (r *SQLiteRepository) Purge(ctx context.Context, pendingCutoff, deliveredCutoff time.Time) (PurgeResult, error) {
	result := PurgeResult{
		PendingCutoff:   pendingCutoff,
		DeliveredCutoff: deliveredCutoff,
	}

	rows, err := r.db.QueryContext(ctx, `
		DELETE FROM notifications
		WHERE (status = ?1 AND create_time <= ?2)
		   OR (status = ?3 AND send_time IS NOT NULL AND send_time <= ?4)
		RETURNING status`,
		string(StatusPending), toMillis(pendingCutoff),
		string(StatusDelivered), toMillis(deliveredCutoff),
	)
	if err != nil {
		return result, storeErr("purging messages", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return result, storeErr("scanning purged message", err)
		}
		if Status(status) == StatusPending {
			result.PendingDeleted++
		} else {
			result.DeliveredDeleted++
		}
	}
	if err := rows.Err(); err != nil {
		return result, storeErr("purging messages", err)
	}
	return result, nil
}

// Stats counts messages by status.
func (r *SQLiteRepository) Stats(ctx context.Context) (Stats, error) {
	var (
		stats  Stats
		oldest sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = ?1),
			COUNT(*) FILTER (WHERE status = ?2),
			MIN(create_time) FILTER (WHERE status = ?1)
		FROM notifications`,
		string(StatusPending), string(StatusDelivered),
	).Scan(&stats.Pending, &stats.Delivered, &oldest)
	if err != nil {
		return stats, storeErr("counting messages", err)
	}

	if oldest.Valid {
		t := fromMillis(oldest.Int64)
		stats.OldestPending = &t
	}
	return stats, nil
}

package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines device alias persistence.
type Repository interface {
	// Resolve maps an id, current number or legacy number to the device ID.
	// Returns ErrDeviceNotFound if nothing matches.
	Resolve(ctx context.Context, target string) (string, error)

	// Get retrieves a device by its ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Get(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices ordered by ID.
	List(ctx context.Context) ([]Device, error)

	// Upsert creates the device or replaces its numbers.
	// Returns ErrAliasConflict if any alias belongs to another device.
	Upsert(ctx context.Context, d *Device) error

	// Delete removes a device. Queued messages are not touched.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository on the devices table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Resolve returns the ID of the device matching target. An exact ID match
// wins over a current number, which wins over a legacy number.
func (r *SQLiteRepository) Resolve(ctx context.Context, target string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("%w: empty target", ErrDeviceNotFound)
	}

	query := `
		SELECT id FROM devices
		WHERE id = ?1 OR number = ?1 OR old_number = ?1
		ORDER BY CASE WHEN id = ?1 THEN 0 WHEN number = ?1 THEN 1 ELSE 2 END
		LIMIT 1`

	var id string
	if err := r.db.QueryRowContext(ctx, query, target).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %q", ErrDeviceNotFound, target)
		}
		return "", fmt.Errorf("resolving device %q: %w", target, err)
	}
	return id, nil
}

// Get retrieves a device by its ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, number, old_number, created_at, updated_at
		FROM devices WHERE id = ?`, id)

	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// List retrieves all devices ordered by ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, number, old_number, created_at, updated_at
		FROM devices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Upsert creates d or updates its numbers. The alias check and the write
// share one transaction so two concurrent upserts cannot both claim the
// same number.
func (r *SQLiteRepository) Upsert(ctx context.Context, d *Device) error {
	if err := ValidateDevice(d); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	aliases := d.Aliases()
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(aliases)), ",")
	args := make([]any, 0, 3*len(aliases)+1)
	for range 3 {
		for _, a := range aliases {
			args = append(args, a)
		}
	}
	args = append(args, d.ID)

	//nolint:gosec // placeholders are generated, never user text
	conflictQuery := fmt.Sprintf(`
		SELECT id FROM devices
		WHERE (id IN (%[1]s) OR number IN (%[1]s) OR old_number IN (%[1]s)) AND id != ?
		LIMIT 1`, placeholders)

	var owner string
	err = tx.QueryRowContext(ctx, conflictQuery, args...).Scan(&owner)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s conflicts with device %q", ErrAliasConflict, d.ID, owner)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("checking aliases: %w", err)
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO devices (id, number, old_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			old_number = excluded.old_number,
			updated_at = excluded.updated_at`,
		d.ID,
		nullableString(d.Number),
		nullableString(d.OldNumber),
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %v", ErrAliasConflict, err)
		}
		return fmt.Errorf("upserting device: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing device: %w", err)
	}
	return nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var (
		d                    Device
		number, oldNumber    sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&d.ID, &number, &oldNumber, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.Number = number.String
	d.OldNumber = oldNumber.String
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Written by Upsert
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Written by Upsert
	return &d, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

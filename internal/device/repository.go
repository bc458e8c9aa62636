package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices.
	List(ctx context.Context) ([]Device, error)

	// ListByHub retrieves all devices assigned to a specific IR hub.
	ListByHub(ctx context.Context, hubID string) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if a device with the same ID already exists.
	Create(ctx context.Context, device *Device) error

	// Update modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// UpdatePowerState updates only the last-known power state and last
	// command result. This is optimised for the frequent cache writes
	// made after each dispatch.
	UpdatePowerState(ctx context.Context, id string, state PowerState, lastResult string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, brand, matrix_output, transports, preferred,
	hub_id, hub_port, power_state, last_result, created_at, updated_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device %s: %w", id, err)
	}

	return device, nil
}

// List retrieves all devices ordered by matrix output.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY matrix_output`

	return r.queryDevices(ctx, query)
}

// ListByHub retrieves all devices assigned to a specific IR hub.
func (r *SQLiteRepository) ListByHub(ctx context.Context, hubID string) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE hub_id = ? ORDER BY hub_port`

	return r.queryDevices(ctx, query, hubID)
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	if err := device.Validate(); err != nil {
		return err
	}

	transports, err := json.Marshal(device.Transports)
	if err != nil {
		return fmt.Errorf("encoding transports: %w", err)
	}

	now := time.Now().UTC()
	device.CreatedAt = now
	device.UpdatedAt = now
	if device.PowerState == "" {
		device.PowerState = PowerUnknown
	}

	query := `
		INSERT INTO devices (` + deviceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		device.ID, device.Name, device.Brand, device.MatrixOutput,
		string(transports), string(device.Preferred),
		device.HubID, device.HubPort,
		string(device.PowerState), device.LastResult,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device %s: %w", device.ID, err)
	}

	return nil
}

// Update modifies an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	if err := device.Validate(); err != nil {
		return err
	}

	transports, err := json.Marshal(device.Transports)
	if err != nil {
		return fmt.Errorf("encoding transports: %w", err)
	}

	device.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE devices
		SET name = ?, brand = ?, matrix_output = ?, transports = ?,
			preferred = ?, hub_id = ?, hub_port = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		device.Name, device.Brand, device.MatrixOutput, string(transports),
		string(device.Preferred), device.HubID, device.HubPort,
		device.UpdatedAt.Format(time.RFC3339), device.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device %s: %w", device.ID, err)
	}

	return checkRowsAffected(result)
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting device %s: %w", id, err)
	}

	return checkRowsAffected(result)
}

// UpdatePowerState updates only the power state cache and last result.
func (r *SQLiteRepository) UpdatePowerState(ctx context.Context, id string, state PowerState, lastResult string) error {
	query := `
		UPDATE devices
		SET power_state = ?, last_result = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(state), lastResult, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating power state for %s: %w", id, err)
	}

	return checkRowsAffected(result)
}

// queryDevices runs a multi-row device query and scans all results.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanDevice.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a single device row.
func scanDevice(row rowScanner) (*Device, error) {
	var (
		d          Device
		transports string
		preferred  string
		powerState string
		createdAt  string
		updatedAt  string
	)

	err := row.Scan(
		&d.ID, &d.Name, &d.Brand, &d.MatrixOutput,
		&transports, &preferred,
		&d.HubID, &d.HubPort,
		&powerState, &d.LastResult,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(transports), &d.Transports); err != nil {
		return nil, fmt.Errorf("decoding transports: %w", err)
	}
	d.Preferred = Preference(preferred)
	d.PowerState = PowerState(powerState)

	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &d, nil
}

// checkRowsAffected converts a zero-row update/delete into ErrDeviceNotFound.
func checkRowsAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// isUniqueConstraintError detects SQLite unique constraint violations
// without importing the driver's error types.
func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed"))
}

package irhub

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Hub is a network-attached multi-port infrared transceiver.
type Hub struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"` // host:port
	Ports   int    `json:"ports"`

	// Status is runtime reachability, not persisted.
	Status    Status     `json:"status"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Status is a hub's reachability state.
type Status string

// Status constants.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

// Repository defines hub persistence operations.
type Repository interface {
	// GetByID retrieves a hub by ID. Returns ErrHubNotFound if absent.
	GetByID(ctx context.Context, id string) (*Hub, error)

	// List retrieves all hubs.
	List(ctx context.Context) ([]Hub, error)

	// Create inserts a new hub.
	Create(ctx context.Context, hub *Hub) error

	// Delete removes a hub by ID.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using the ir_hubs table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed hub repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a hub by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Hub, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, address, ports, created_at FROM ir_hubs WHERE id = ?`, id)

	hub, err := scanHub(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrHubNotFound
		}
		return nil, fmt.Errorf("querying hub %s: %w", id, err)
	}
	return hub, nil
}

// List retrieves all hubs.
func (r *SQLiteRepository) List(ctx context.Context) ([]Hub, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, address, ports, created_at FROM ir_hubs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying hubs: %w", err)
	}
	defer rows.Close()

	var hubs []Hub
	for rows.Next() {
		hub, err := scanHub(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning hub: %w", err)
		}
		hubs = append(hubs, *hub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hubs: %w", err)
	}
	return hubs, nil
}

// Create inserts a new hub.
func (r *SQLiteRepository) Create(ctx context.Context, hub *Hub) error {
	hub.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ir_hubs (id, name, address, ports, created_at) VALUES (?, ?, ?, ?, ?)`,
		hub.ID, hub.Name, hub.Address, hub.Ports, hub.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting hub %s: %w", hub.ID, err)
	}
	return nil
}

// Delete removes a hub by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM ir_hubs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting hub %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrHubNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHub(row rowScanner) (*Hub, error) {
	var (
		hub       Hub
		createdAt string
	)
	if err := row.Scan(&hub.ID, &hub.Name, &hub.Address, &hub.Ports, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if hub.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	hub.Status = StatusUnknown
	return &hub, nil
}

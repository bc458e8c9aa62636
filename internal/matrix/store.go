package matrix

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteRouteStore implements RouteStore using the matrix_routes table.
type SQLiteRouteStore struct {
	db *sql.DB
}

// NewSQLiteRouteStore creates a SQLite-backed route store.
func NewSQLiteRouteStore(db *sql.DB) *SQLiteRouteStore {
	return &SQLiteRouteStore{db: db}
}

// LoadRoutes returns all persisted routes.
func (s *SQLiteRouteStore) LoadRoutes(ctx context.Context) ([]Route, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT output, input, updated_at FROM matrix_routes ORDER BY output`)
	if err != nil {
		return nil, fmt.Errorf("querying routes: %w", err)
	}
	defer rows.Close()

	var routes []Route
	for rows.Next() {
		var (
			route     Route
			updatedAt string
		)
		if err := rows.Scan(&route.Output, &route.Input, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		if route.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("parsing route timestamp: %w", err)
		}
		routes = append(routes, route)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating routes: %w", err)
	}

	return routes, nil
}

// SaveRoute upserts one output's route.
func (s *SQLiteRouteStore) SaveRoute(ctx context.Context, route Route) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matrix_routes (output, input, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(output) DO UPDATE SET input = excluded.input, updated_at = excluded.updated_at`,
		route.Output, route.Input, route.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving route for output %d: %w", route.Output, err)
	}
	return nil
}

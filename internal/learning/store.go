package learning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/barlinq/barlinq-core/internal/control"
)

// Store persists IR commands in the ir_commands table. It also serves
// learned payloads to the IR transport adapter.
type Store struct {
	db *sql.DB
}

// NewStore creates a SQLite-backed IR command store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const commandColumns = `id, device_id, name, category, code, code_length, learned_at, created_at`

// AddCommand reserves a named placeholder for the device. The name is
// unique per device, case-insensitively; a clash fails with
// ErrDuplicateName and changes nothing.
func (s *Store) AddCommand(ctx context.Context, deviceID, name, category string) (*IRCommand, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrCommandNotFound)
	}
	if category == "" {
		category = "other"
	}

	cmd := &IRCommand{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Name:      name,
		Category:  category,
		State:     StatePlaceholder,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ir_commands (id, device_id, name, name_lc, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cmd.ID, cmd.DeviceID, cmd.Name, strings.ToLower(cmd.Name), cmd.Category,
		cmd.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: %s on device %s", ErrDuplicateName, name, deviceID)
		}
		return nil, fmt.Errorf("inserting command: %w", err)
	}
	return cmd, nil
}

// GetCommand retrieves a command by ID.
func (s *Store) GetCommand(ctx context.Context, id string) (*IRCommand, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+commandColumns+` FROM ir_commands WHERE id = ?`, id)
	return scanCommand(row)
}

// GetByName retrieves a device's command by name, case-insensitively.
func (s *Store) GetByName(ctx context.Context, deviceID, name string) (*IRCommand, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+commandColumns+` FROM ir_commands WHERE device_id = ? AND name_lc = ?`,
		deviceID, strings.ToLower(name))
	return scanCommand(row)
}

// ListCommands retrieves all of a device's commands, placeholders
// included, ordered by name.
func (s *Store) ListCommands(ctx context.Context, deviceID string) ([]IRCommand, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+commandColumns+` FROM ir_commands WHERE device_id = ? ORDER BY name_lc`,
		deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying commands: %w", err)
	}
	defer rows.Close()

	var commands []IRCommand
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		commands = append(commands, *cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commands: %w", err)
	}
	return commands, nil
}

// SaveLearnedCode stores a captured payload against the command,
// making it Learned. There is no partially-learned state: the code and
// its length land in one statement.
func (s *Store) SaveLearnedCode(ctx context.Context, commandID, code string) error {
	if code == "" {
		return fmt.Errorf("%w: empty code", ErrNotLearned)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE ir_commands SET code = ?, code_length = ?, learned_at = ? WHERE id = ?`,
		code, len(code), time.Now().UTC().Format(time.RFC3339), commandID)
	if err != nil {
		return fmt.Errorf("saving learned code: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCommandNotFound
	}
	return nil
}

// DeleteCommand removes a command by ID.
func (s *Store) DeleteCommand(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ir_commands WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting command: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCommandNotFound
	}
	return nil
}

// LearnedCode resolves the payload for a device's canonical command.
// Implements the control engine's code store: a missing command or a
// placeholder both report the code as not learned.
func (s *Store) LearnedCode(ctx context.Context, deviceID string, cmd control.Command) (string, error) {
	stored, err := s.GetByName(ctx, deviceID, string(cmd))
	if err != nil {
		if errors.Is(err, ErrCommandNotFound) {
			return "", fmt.Errorf("%w: %s", control.ErrCodeNotLearned, cmd)
		}
		return "", err
	}
	if !stored.Learned() {
		return "", fmt.Errorf("%w: %s", control.ErrCodeNotLearned, cmd)
	}
	return *stored.Code, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommand(row rowScanner) (*IRCommand, error) {
	var (
		cmd       IRCommand
		code      sql.NullString
		learnedAt sql.NullString
		createdAt string
	)
	err := row.Scan(&cmd.ID, &cmd.DeviceID, &cmd.Name, &cmd.Category,
		&code, &cmd.CodeLength, &learnedAt, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCommandNotFound
		}
		return nil, fmt.Errorf("scanning command: %w", err)
	}

	if code.Valid && code.String != "" {
		cmd.Code = &code.String
		cmd.State = StateLearned
	} else {
		cmd.State = StatePlaceholder
	}
	if learnedAt.Valid {
		t, err := time.Parse(time.RFC3339, learnedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing learned_at: %w", err)
		}
		cmd.LearnedAt = &t
	}
	if cmd.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &cmd, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package command

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/netcmd/netcmd/pkg/plugin"
)

// ErrNotFound is returned when a command does not exist.
var ErrNotFound = errors.New("command not found")

// Store provides persistence for commands, their variables, and
// execution logs.
type Store struct {
	db *sql.DB
	tx func(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// NewStore creates a Store and runs command migrations.
func NewStore(ctx context.Context, store plugin.Store) (*Store, error) {
	if err := store.Migrate(ctx, "commands", commandMigrations); err != nil {
		return nil, fmt.Errorf("command migrations: %w", err)
	}
	return &Store{db: store.DB(), tx: store.Tx}, nil
}

// CreateCommand inserts a command and its variables in one transaction.
func (s *Store) CreateCommand(ctx context.Context, cmd *Command) error {
	platforms, err := marshalSlugs(cmd.Platforms)
	if err != nil {
		return err
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO commands (id, name, command_text, description, command_type, platforms, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			cmd.ID, cmd.Name, cmd.CommandText, cmd.Description,
			string(cmd.CommandType), platforms, cmd.CreatedAt, cmd.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert command: %w", err)
		}
		return insertVariables(ctx, tx, cmd)
	})
}

// GetCommand returns one command with its variables.
func (s *Store) GetCommand(ctx context.Context, id string) (*Command, error) {
	cmd, err := scanCommand(s.db.QueryRowContext(ctx,
		`SELECT `+commandColumns+` FROM commands WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cmd.Variables, err = s.listVariables(ctx, id)
	return cmd, err
}

// ListCommands returns all commands with their variables, sorted by name.
func (s *Store) ListCommands(ctx context.Context) ([]Command, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+commandColumns+` FROM commands ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	defer rows.Close()

	var cmds []Command
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, *cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range cmds {
		cmds[i].Variables, err = s.listVariables(ctx, cmds[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return cmds, nil
}

// UpdateCommand rewrites a command and replaces its variable set.
func (s *Store) UpdateCommand(ctx context.Context, cmd *Command) error {
	platforms, err := marshalSlugs(cmd.Platforms)
	if err != nil {
		return err
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE commands
			SET name = ?, command_text = ?, description = ?, command_type = ?, platforms = ?, updated_at = ?
			WHERE id = ?`,
			cmd.Name, cmd.CommandText, cmd.Description, string(cmd.CommandType),
			platforms, cmd.UpdatedAt, cmd.ID,
		)
		if err != nil {
			return fmt.Errorf("update command: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM command_variables WHERE command_id = ?`, cmd.ID); err != nil {
			return fmt.Errorf("clear variables: %w", err)
		}
		return insertVariables(ctx, tx, cmd)
	})
}

// DeleteCommand removes a command; variables cascade.
func (s *Store) DeleteCommand(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM commands WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete command: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertLog appends an execution record.
func (s *Store) InsertLog(ctx context.Context, log *CommandLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_logs
			(id, command_id, command_name, device_id, device_name, username,
			 output, success, error_message, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.CommandID, log.CommandName, log.DeviceID, log.DeviceName,
		log.Username, log.Output, log.Success, log.ErrorMessage,
		log.DurationSeconds, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert command log: %w", err)
	}
	return nil
}

// LogFilter narrows ListLogs. Zero values mean no filtering.
type LogFilter struct {
	CommandID string
	DeviceID  int
	Limit     int
}

// ListLogs returns execution records, newest first.
func (s *Store) ListLogs(ctx context.Context, filter LogFilter) ([]CommandLog, error) {
	query := `SELECT id, command_id, command_name, device_id, device_name, username,
		output, success, error_message, duration_seconds, created_at
		FROM command_logs WHERE 1=1`
	var args []any
	if filter.CommandID != "" {
		query += ` AND command_id = ?`
		args = append(args, filter.CommandID)
	}
	if filter.DeviceID != 0 {
		query += ` AND device_id = ?`
		args = append(args, filter.DeviceID)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list command logs: %w", err)
	}
	defer rows.Close()

	var logs []CommandLog
	for rows.Next() {
		var l CommandLog
		if err := rows.Scan(&l.ID, &l.CommandID, &l.CommandName, &l.DeviceID,
			&l.DeviceName, &l.Username, &l.Output, &l.Success, &l.ErrorMessage,
			&l.DurationSeconds, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *Store) listVariables(ctx context.Context, commandID string) ([]CommandVariable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, command_id, name, label, variable_type, required, help_text, default_value
		FROM command_variables WHERE command_id = ? ORDER BY rowid`, commandID)
	if err != nil {
		return nil, fmt.Errorf("list variables: %w", err)
	}
	defer rows.Close()

	var vars []CommandVariable
	for rows.Next() {
		var v CommandVariable
		var vtype string
		if err := rows.Scan(&v.ID, &v.CommandID, &v.Name, &v.Label, &vtype,
			&v.Required, &v.HelpText, &v.DefaultValue); err != nil {
			return nil, err
		}
		v.VariableType = VariableType(vtype)
		vars = append(vars, v)
	}
	return vars, rows.Err()
}

func insertVariables(ctx context.Context, tx *sql.Tx, cmd *Command) error {
	for i := range cmd.Variables {
		v := &cmd.Variables[i]
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		v.CommandID = cmd.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO command_variables
				(id, command_id, name, label, variable_type, required, help_text, default_value)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID, v.CommandID, v.Name, v.Label, string(v.VariableType),
			v.Required, v.HelpText, v.DefaultValue,
		)
		if err != nil {
			return fmt.Errorf("insert variable %q: %w", v.Name, err)
		}
	}
	return nil
}

const commandColumns = `id, name, command_text, description, command_type, platforms, created_at, updated_at`

func scanCommand(row interface{ Scan(dest ...any) error }) (*Command, error) {
	var cmd Command
	var ctype, platforms string
	err := row.Scan(&cmd.ID, &cmd.Name, &cmd.CommandText, &cmd.Description,
		&ctype, &platforms, &cmd.CreatedAt, &cmd.UpdatedAt)
	if err != nil {
		return nil, err
	}
	cmd.CommandType = CommandType(ctype)
	if platforms != "" {
		if err := json.Unmarshal([]byte(platforms), &cmd.Platforms); err != nil {
			return nil, fmt.Errorf("decode platforms: %w", err)
		}
	}
	return &cmd, nil
}

func marshalSlugs(slugs []string) (string, error) {
	if len(slugs) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(slugs)
	if err != nil {
		return "", fmt.Errorf("encode platforms: %w", err)
	}
	return string(b), nil
}

// commandMigrations for the commands module.
var commandMigrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create commands and command_variables tables",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE commands (
					id           TEXT PRIMARY KEY,
					name         TEXT NOT NULL UNIQUE,
					command_text TEXT NOT NULL,
					description  TEXT NOT NULL DEFAULT '',
					command_type TEXT NOT NULL DEFAULT 'show',
					platforms    TEXT NOT NULL DEFAULT '[]',
					created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			if err != nil {
				return err
			}
			_, err = tx.Exec(`
				CREATE TABLE command_variables (
					id            TEXT PRIMARY KEY,
					command_id    TEXT NOT NULL REFERENCES commands(id) ON DELETE CASCADE,
					name          TEXT NOT NULL,
					label         TEXT NOT NULL DEFAULT '',
					variable_type TEXT NOT NULL DEFAULT 'text',
					required      INTEGER NOT NULL DEFAULT 0,
					help_text     TEXT NOT NULL DEFAULT '',
					default_value TEXT NOT NULL DEFAULT '',
					UNIQUE (command_id, name)
				)`)
			return err
		},
	},
	{
		Version:     2,
		Description: "create command_logs table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE command_logs (
					id               TEXT PRIMARY KEY,
					command_id       TEXT NOT NULL,
					command_name     TEXT NOT NULL,
					device_id        INTEGER NOT NULL,
					device_name      TEXT NOT NULL DEFAULT '',
					username         TEXT NOT NULL DEFAULT '',
					output           TEXT NOT NULL DEFAULT '',
					success          INTEGER NOT NULL DEFAULT 0,
					error_message    TEXT NOT NULL DEFAULT '',
					duration_seconds REAL NOT NULL DEFAULT 0,
					created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			if err != nil {
				return err
			}
			_, err = tx.Exec(`CREATE INDEX idx_command_logs_command ON command_logs(command_id)`)
			return err
		},
	},
}

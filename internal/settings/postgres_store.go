package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const controlsKey = "controls"

type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) Store {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Controls(ctx context.Context) (*Controls, error) {
	query := `SELECT value FROM gateway_settings WHERE key = $1`

	var raw []byte
	err := s.db.QueryRow(ctx, query, controlsKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultControls(), nil
		}
		return nil, fmt.Errorf("failed to get controls: %w", err)
	}

	controls := DefaultControls()
	if err := json.Unmarshal(raw, controls); err != nil {
		return nil, fmt.Errorf("failed to decode controls: %w", err)
	}
	if controls.InitialTokens <= 0 {
		controls.InitialTokens = DefaultInitialTokens
	}
	if controls.Costs == nil {
		controls.Costs = map[string]int{}
	}
	return controls, nil
}

func (s *PostgresStore) SaveControls(ctx context.Context, controls *Controls) error {
	raw, err := json.Marshal(controls)
	if err != nil {
		return fmt.Errorf("failed to encode controls: %w", err)
	}

	query := `
		INSERT INTO gateway_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`
	if _, err := s.db.Exec(ctx, query, controlsKey, raw); err != nil {
		return fmt.Errorf("failed to save controls: %w", err)
	}
	return nil
}

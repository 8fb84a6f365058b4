package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) Store {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Balance(ctx context.Context, userID string) (int, error) {
	query := `SELECT COALESCE(token_balance, 0) FROM users WHERE id = $1`

	var balance int
	err := s.db.QueryRow(ctx, query, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Debit is a single conditional update so two concurrent requests can never
// drive the balance negative.
func (s *PostgresStore) Debit(ctx context.Context, userID string, amount int) (int, bool, error) {
	query := `
		UPDATE users
		SET token_balance = token_balance - $2
		WHERE id = $1 AND token_balance >= $2
		RETURNING token_balance
	`

	var balance int
	err := s.db.QueryRow(ctx, query, userID, amount).Scan(&balance)
	if err == nil {
		return balance, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("failed to debit balance: %w", err)
	}

	// Refused: report the untouched balance.
	balance, berr := s.Balance(ctx, userID)
	if berr != nil {
		return 0, false, berr
	}
	return balance, false, nil
}

func (s *PostgresStore) SetBalance(ctx context.Context, userID string, amount int) error {
	query := `UPDATE users SET token_balance = $2 WHERE id = $1`
	tag, err := s.db.Exec(ctx, query, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoSuchUser
	}
	return nil
}

func (s *PostgresStore) AllocateInitial(ctx context.Context, userID string, amount int) error {
	query := `UPDATE users SET token_balance = $2 WHERE id = $1 AND token_balance IS NULL`
	if _, err := s.db.Exec(ctx, query, userID, amount); err != nil {
		return fmt.Errorf("failed to allocate initial balance: %w", err)
	}
	return nil
}

func (s *PostgresStore) Log(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO usage_logs (user_id, request_action, tokens_used, balance_after)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := s.db.QueryRow(ctx, query,
		entry.UserID, entry.Action, entry.TokensUsed, entry.BalanceAfter,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentActivity(ctx context.Context, userID string, limit int) ([]*Entry, error) {
	query := `
		SELECT id, user_id, request_action, tokens_used, balance_after, created_at
		FROM usage_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.TokensUsed, &e.BalanceAfter, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage log: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage logs: %w", err)
	}

	return entries, nil
}

func (s *PostgresStore) TotalTokensUsed(ctx context.Context, from, to time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(tokens_used), 0)
		FROM usage_logs
		WHERE created_at BETWEEN $1 AND $2
	`
	var total int
	if err := s.db.QueryRow(ctx, query, from, to).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to get total tokens used: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) UsageByAction(ctx context.Context, from, to time.Time) ([]*ActionUsage, error) {
	query := `
		SELECT request_action, SUM(tokens_used), COUNT(id)
		FROM usage_logs
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY request_action
		ORDER BY SUM(tokens_used) DESC
	`
	rows, err := s.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage by action: %w", err)
	}
	defer rows.Close()

	var usage []*ActionUsage
	for rows.Next() {
		var u ActionUsage
		if err := rows.Scan(&u.Action, &u.TotalTokens, &u.TotalRequests); err != nil {
			return nil, fmt.Errorf("failed to scan action usage: %w", err)
		}
		usage = append(usage, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action usage: %w", err)
	}

	return usage, nil
}

func (s *PostgresStore) TopUsers(ctx context.Context, limit int, from, to time.Time) ([]*UserUsage, error) {
	query := `
		SELECT user_id, SUM(tokens_used)
		FROM usage_logs
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY user_id
		ORDER BY SUM(tokens_used) DESC
		LIMIT $3
	`
	rows, err := s.db.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top users: %w", err)
	}
	defer rows.Close()

	var usage []*UserUsage
	for rows.Next() {
		var u UserUsage
		if err := rows.Scan(&u.UserID, &u.TotalTokens); err != nil {
			return nil, fmt.Errorf("failed to scan user usage: %w", err)
		}
		usage = append(usage, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user usage: %w", err)
	}

	return usage, nil
}

// DailyUsage returns one bucket per calendar day in [from, to], zero-filled
// for days without traffic.
func (s *PostgresStore) DailyUsage(ctx context.Context, from, to time.Time) (map[string]int, error) {
	query := `
		SELECT DATE(created_at)::text, SUM(tokens_used)
		FROM usage_logs
		WHERE created_at >= $1 AND created_at < $2 + INTERVAL '1 day'
		GROUP BY DATE(created_at)
		ORDER BY DATE(created_at)
	`
	rows, err := s.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[string]int)
	for day := from.Truncate(24 * time.Hour); !day.After(to); day = day.AddDate(0, 0, 1) {
		usage[day.Format("2006-01-02")] = 0
	}

	for rows.Next() {
		var date string
		var total int
		if err := rows.Scan(&date, &total); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		usage[date] = total
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily usage: %w", err)
	}

	return usage, nil
}

package ledger

import (
	"context"
	"errors"
	"time"
)

// UnlimitedBalance is the numeric stand-in recorded in balance_after for
// privileged users, whose balance is never debited.
const UnlimitedBalance = 9999

var ErrNoSuchUser = errors.New("no such user")

// Entry is one row of the append-only usage log. Entries are written only
// for completed provider calls and are never mutated afterwards.
type Entry struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Action       string    `json:"action"`
	TokensUsed   int       `json:"tokens_used"`
	BalanceAfter int       `json:"balance_after"`
	CreatedAt    time.Time `json:"time"`
}

type ActionUsage struct {
	Action        string `json:"action"`
	TotalTokens   int    `json:"total_tokens"`
	TotalRequests int    `json:"total_requests"`
}

type UserUsage struct {
	UserID      string `json:"user_id"`
	TotalTokens int    `json:"total_tokens"`
}

type Store interface {
	// Balance returns 0 for users with no balance record.
	Balance(ctx context.Context, userID string) (int, error)

	// Debit atomically subtracts amount when the balance covers it. It
	// reports the resulting balance and whether the debit was applied; on a
	// refused debit the balance is returned unchanged.
	Debit(ctx context.Context, userID string, amount int) (int, bool, error)

	// SetBalance is the administrative overwrite.
	SetBalance(ctx context.Context, userID string, amount int) error

	// AllocateInitial grants the starting balance, once, to accounts that
	// have never held one. Allocating twice is a no-op.
	AllocateInitial(ctx context.Context, userID string, amount int) error

	Log(ctx context.Context, entry *Entry) error
	RecentActivity(ctx context.Context, userID string, limit int) ([]*Entry, error)

	// Reporting reads over the log; not part of the request path.
	TotalTokensUsed(ctx context.Context, from, to time.Time) (int, error)
	UsageByAction(ctx context.Context, from, to time.Time) ([]*ActionUsage, error)
	TopUsers(ctx context.Context, limit int, from, to time.Time) ([]*UserUsage, error)
	DailyUsage(ctx context.Context, from, to time.Time) (map[string]int, error)
}

package settings

import (
	"context"
	"encoding/json"
)

const (
	// DefaultInitialTokens is granted to accounts created before an admin
	// has configured a grant.
	DefaultInitialTokens = 50

	// DefaultActionCost applies to any action without a configured cost.
	DefaultActionCost = 1
)

// Controls is the admin-tunable metering configuration: the starting grant
// for new accounts and the per-action token cost table. The request path
// only ever reads it.
type Controls struct {
	InitialTokens int            `json:"initial_tokens"`
	Costs         map[string]int `json:"costs"`
}

func DefaultControls() *Controls {
	return &Controls{
		InitialTokens: DefaultInitialTokens,
		Costs:         map[string]int{},
	}
}

// CostFor resolves a cost key, falling back to the flat default.
func (c *Controls) CostFor(key string) int {
	if cost, ok := c.Costs[key]; ok {
		return cost
	}
	return DefaultActionCost
}

// MarshalBinary implements encoding.BinaryMarshaler for Redis
func (c *Controls) MarshalBinary() ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Redis
func (c *Controls) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, c)
}

type Store interface {
	Controls(ctx context.Context) (*Controls, error)
	SaveControls(ctx context.Context, controls *Controls) error
}

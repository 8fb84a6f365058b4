package provider

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means the backend credential or endpoint is missing;
	// no request is ever sent upstream in that case.
	ErrNotConfigured = errors.New("provider is not configured")

	// ErrMalformedResponse means the upstream answered but the generated
	// text could not be located in the payload.
	ErrMalformedResponse = errors.New("unexpected provider response format")
)

// BlockedError is returned when the upstream refused to generate for safety
// reasons. The block reason must survive to the caller.
type BlockedError struct {
	Reason       string
	FinishReason string
}

func (e *BlockedError) Error() string {
	if e.FinishReason != "" {
		return fmt.Sprintf("content blocked by the provider's safety filters. Reason: %s (Finish Reason: %s)", e.Reason, e.FinishReason)
	}
	return fmt.Sprintf("content blocked by the provider's safety filters. Reason: %s", e.Reason)
}

type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// PromptSpec is the provider-agnostic description of one generation request.
// The dispatcher resolves the action into System and UserText; backends only
// translate the spec into their own wire shape. Backends that build prompts
// themselves (the hosted relay) use the raw fields instead.
type PromptSpec struct {
	// Resolved prompt pieces.
	System   string
	UserText string
	History  []Message

	// SystemChannel asks for System to be sent on a dedicated
	// system-instruction channel instead of concatenated with UserText.
	SystemChannel bool

	MaxTokens   int
	Temperature float64

	// Raw request fields, for passthrough backends.
	Action      string
	Content     string
	Message     string
	UserProfile string
}

// Combined is the single-prompt rendering used when no system channel is in
// play.
func (s *PromptSpec) Combined() string {
	if s.System == "" {
		return s.UserText
	}
	return s.System + "\n\n" + s.UserText
}

// Generator produces text from exactly one backend. Errors are terminal for
// the request: no retry, no fallback to another backend.
type Generator interface {
	Generate(ctx context.Context, spec *PromptSpec) (string, error)
	Name() string
}

package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/essenca/essenca-gateway/internal/provider"
)

const maxOutputTokens = 800

// Request is one logical generation request, already authenticated and
// admitted by the gateway.
type Request struct {
	Action      Action
	Content     string
	Message     string
	History     []provider.Message
	UserProfile string
}

// PersonaActive reports whether the comment action should use the persona
// prompt and cost key.
func (r *Request) PersonaActive() bool {
	return r.Action == ActionLinkedInComment && strings.TrimSpace(r.UserProfile) != ""
}

// Dispatcher turns a request into a prompt spec and runs it against the one
// configured backend. Provider errors are returned as-is; the caller treats
// every failure as terminal.
type Dispatcher struct {
	generator provider.Generator
	timeout   time.Duration
}

func New(generator provider.Generator, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		generator: generator,
		timeout:   timeout,
	}
}

func (d *Dispatcher) ProviderName() string {
	return d.generator.Name()
}

func (d *Dispatcher) Generate(ctx context.Context, req *Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result, err := d.generator.Generate(ctx, buildSpec(req))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result), nil
}

// Ping issues a minimal request to verify credentials and connectivity.
func (d *Dispatcher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, err := d.generator.Generate(ctx, &provider.PromptSpec{
		UserText:  "This is a test.",
		MaxTokens: maxOutputTokens,
	})
	return err
}

func buildSpec(req *Request) *provider.PromptSpec {
	spec := &provider.PromptSpec{
		MaxTokens:   maxOutputTokens,
		Temperature: 0.7,
		Action:      req.Action.String(),
		Content:     req.Content,
		Message:     req.Message,
		UserProfile: req.UserProfile,
	}

	switch req.Action {
	case ActionLinkedInComment:
		spec.SystemChannel = true
		if req.PersonaActive() {
			spec.System = linkedInPersonaPrompt
			spec.UserText = "USER PROFILE:\n" + req.UserProfile + "\n\nPOST CONTENT:\n" + req.Content
		} else {
			spec.System = linkedInGenericPrompt
			spec.UserText = "POST CONTENT:\n" + req.Content
		}

	case ActionChat:
		spec.System = chatPrompt
		spec.History = req.History
		spec.UserText = userBody(req)

	case ActionKeyTakeaway:
		spec.System = keyTakeawayPrompt
		spec.UserText = userBody(req)

	default: // ActionSummary
		spec.System = summaryPrompt
		spec.UserText = userBody(req)
	}

	return spec
}

func userBody(req *Request) string {
	body := "Page content:\n" + req.Content
	if req.Message != "" {
		body += "\n\nUser question: " + req.Message
	}
	return body
}

package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/essenca/essenca-gateway/internal/provider"
)

type stubGenerator struct {
	result   string
	err      error
	lastSpec *provider.PromptSpec
}

func (s *stubGenerator) Generate(ctx context.Context, spec *provider.PromptSpec) (string, error) {
	s.lastSpec = spec
	return s.result, s.err
}

func (s *stubGenerator) Name() string { return "stub" }

func TestParseAction(t *testing.T) {
	cases := []struct {
		name    string
		want    Action
		wantErr bool
	}{
		{"summary", ActionSummary, false},
		{"key-takeaway", ActionKeyTakeaway, false},
		{"chat", ActionChat, false},
		{"generate_linkedin_comment", ActionLinkedInComment, false},
		{"translate", 0, true},
		{"", 0, true},
		{"Summary", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseAction(tc.name)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseAction(%q): expected error, got %v", tc.name, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAction(%q): unexpected error: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAction(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCostKey(t *testing.T) {
	if got := ActionSummary.CostKey(false); got != "summary" {
		t.Errorf("Expected summary, got %s", got)
	}
	if got := ActionLinkedInComment.CostKey(true); got != CostKeyLinkedInPersona {
		t.Errorf("Expected %s, got %s", CostKeyLinkedInPersona, got)
	}
	if got := ActionLinkedInComment.CostKey(false); got != CostKeyLinkedInGeneric {
		t.Errorf("Expected %s, got %s", CostKeyLinkedInGeneric, got)
	}
}

func TestPersonaActive(t *testing.T) {
	req := &Request{Action: ActionLinkedInComment, UserProfile: "Staff engineer."}
	if !req.PersonaActive() {
		t.Error("Expected persona active with a profile")
	}

	req.UserProfile = "   "
	if req.PersonaActive() {
		t.Error("Expected blank profile to be treated as absent")
	}

	req = &Request{Action: ActionSummary, UserProfile: "Staff engineer."}
	if req.PersonaActive() {
		t.Error("Expected persona to only apply to comment generation")
	}
}

func TestBuildSpec_Summary(t *testing.T) {
	spec := buildSpec(&Request{Action: ActionSummary, Content: "article body"})

	if spec.SystemChannel {
		t.Error("Expected combined prompt, not the system channel")
	}
	if spec.System != summaryPrompt {
		t.Error("Expected summary system prompt")
	}
	if spec.UserText != "Page content:\narticle body" {
		t.Errorf("Unexpected user text: %q", spec.UserText)
	}
	if spec.MaxTokens != maxOutputTokens || spec.Temperature != 0.7 {
		t.Errorf("Unexpected generation config: max=%d temp=%v", spec.MaxTokens, spec.Temperature)
	}
}

func TestBuildSpec_ChatWithHistory(t *testing.T) {
	history := []provider.Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	spec := buildSpec(&Request{
		Action:  ActionChat,
		Content: "article body",
		Message: "what does it mean?",
		History: history,
	})

	if spec.System != chatPrompt {
		t.Error("Expected chat system prompt")
	}
	if len(spec.History) != 2 {
		t.Errorf("Expected history to pass through, got %d turns", len(spec.History))
	}
	want := "Page content:\narticle body\n\nUser question: what does it mean?"
	if spec.UserText != want {
		t.Errorf("Unexpected user text: %q", spec.UserText)
	}
}

func TestBuildSpec_LinkedInComment(t *testing.T) {
	spec := buildSpec(&Request{
		Action:      ActionLinkedInComment,
		Content:     "a post",
		UserProfile: "I run a bakery.",
	})

	if !spec.SystemChannel {
		t.Error("Expected system-instruction channel for comment generation")
	}
	if spec.System != linkedInPersonaPrompt {
		t.Error("Expected persona system prompt")
	}
	if spec.UserText != "USER PROFILE:\nI run a bakery.\n\nPOST CONTENT:\na post" {
		t.Errorf("Unexpected user text: %q", spec.UserText)
	}

	spec = buildSpec(&Request{Action: ActionLinkedInComment, Content: "a post"})
	if spec.System != linkedInGenericPrompt {
		t.Error("Expected generic system prompt without a profile")
	}
	if spec.UserText != "POST CONTENT:\na post" {
		t.Errorf("Unexpected user text: %q", spec.UserText)
	}
}

func TestGenerate_TrimsResult(t *testing.T) {
	gen := &stubGenerator{result: "\n  trimmed output \n"}
	d := New(gen, time.Second)

	got, err := d.Generate(context.Background(), &Request{Action: ActionSummary, Content: "x"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "trimmed output" {
		t.Errorf("Expected trimmed output, got %q", got)
	}
}

func TestGenerate_PropagatesError(t *testing.T) {
	wantErr := errors.New("quota exceeded")
	gen := &stubGenerator{err: wantErr}
	d := New(gen, time.Second)

	_, err := d.Generate(context.Background(), &Request{Action: ActionSummary, Content: "x"})
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected provider error to pass through, got %v", err)
	}
}

func TestPing(t *testing.T) {
	gen := &stubGenerator{result: "ok"}
	d := New(gen, time.Second)

	if err := d.Ping(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if gen.lastSpec == nil || !strings.Contains(gen.lastSpec.UserText, "This is a test.") {
		t.Error("Expected ping to send the test prompt")
	}
}

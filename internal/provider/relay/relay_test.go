package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/essenca/essenca-gateway/internal/provider"
)

func TestGenerate_NotConfigured(t *testing.T) {
	cases := []*RelayProvider{
		{},
		{baseURL: "https://relay.example.com"},
		{token: "tok"},
	}
	for _, p := range cases {
		_, err := p.Generate(context.Background(), &provider.PromptSpec{Action: "summary"})
		if !errors.Is(err, provider.ErrNotConfigured) {
			t.Errorf("Expected ErrNotConfigured, got %v", err)
		}
	}
}

func TestGenerate_Success(t *testing.T) {
	var captured relayRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer relay-token" {
			t.Errorf("Unexpected auth header: %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&captured)

		json.NewEncoder(w).Encode(relayResponse{Success: true, Result: "relayed text"})
	}))
	defer server.Close()

	p := &RelayProvider{baseURL: server.URL, token: "relay-token"}
	got, err := p.Generate(context.Background(), &provider.PromptSpec{
		Action:  "chat",
		Content: "page text",
		Message: "a question",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "relayed text" {
		t.Errorf("Expected relayed text, got %q", got)
	}

	if captured.Action != "chat" || captured.Content != "page text" || captured.Message != "a question" {
		t.Errorf("Expected raw fields to be forwarded, got %+v", captured)
	}
	if captured.History == nil {
		t.Error("Expected history to be sent as an empty array, not null")
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(relayResponse{Message: "You do not have enough tokens for this action."})
	}))
	defer server.Close()

	p := &RelayProvider{baseURL: server.URL, token: "relay-token"}
	_, err := p.Generate(context.Background(), &provider.PromptSpec{Action: "summary"})
	if err == nil || !strings.Contains(err.Error(), "not have enough tokens") {
		t.Errorf("Expected upstream message to surface, got %v", err)
	}
}

func TestGenerate_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(relayResponse{Success: true})
	}))
	defer server.Close()

	p := &RelayProvider{baseURL: server.URL, token: "relay-token"}
	_, err := p.Generate(context.Background(), &provider.PromptSpec{Action: "summary"})
	if !errors.Is(err, provider.ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

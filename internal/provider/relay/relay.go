package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/essenca/essenca-gateway/internal/provider"
)

// RelayProvider forwards the raw action request to an upstream gateway that
// exposes the same /process contract and does its own prompt construction.
type RelayProvider struct {
	baseURL string
	token   string
}

type relayRequest struct {
	Action      string             `json:"action"`
	Content     string             `json:"content"`
	Message     string             `json:"message"`
	History     []provider.Message `json:"history"`
	UserProfile string             `json:"user_profile,omitempty"`
}

type relayResponse struct {
	Success bool   `json:"success"`
	Result  string `json:"result"`
	Message string `json:"message"`
}

func New(baseURL, token string) provider.Generator {
	return &RelayProvider{
		baseURL: baseURL,
		token:   token,
	}
}

func (p *RelayProvider) Generate(ctx context.Context, spec *provider.PromptSpec) (string, error) {
	if p.baseURL == "" || p.token == "" {
		return "", provider.ErrNotConfigured
	}

	history := spec.History
	if history == nil {
		history = []provider.Message{}
	}
	body, err := json.Marshal(relayRequest{
		Action:      spec.Action,
		Content:     spec.Content,
		Message:     spec.Message,
		History:     history,
		UserProfile: spec.UserProfile,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/process", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.token))

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	var relayResp relayResponse
	if err := json.NewDecoder(resp.Body).Decode(&relayResp); err != nil {
		return "", provider.ErrMalformedResponse
	}

	if resp.StatusCode != http.StatusOK {
		if relayResp.Message != "" {
			return "", fmt.Errorf("relay api error: %s", relayResp.Message)
		}
		return "", fmt.Errorf("relay api error (status %d)", resp.StatusCode)
	}

	if relayResp.Result == "" {
		return "", provider.ErrMalformedResponse
	}

	return relayResp.Result, nil
}

func (p *RelayProvider) Name() string {
	return "relay"
}

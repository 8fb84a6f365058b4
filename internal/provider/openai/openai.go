package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/essenca/essenca-gateway/internal/provider"
)

// OpenAIProvider talks to any OpenAI-compatible chat.completions endpoint.
type OpenAIProvider struct {
	apiKey  string
	model   string
	baseURL string
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Error   *openAIError   `json:"error"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

type openAIError struct {
	Message string `json:"message"`
}

func New(apiKey, model, baseURL string) provider.Generator {
	return &OpenAIProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, spec *provider.PromptSpec) (string, error) {
	if p.apiKey == "" {
		return "", provider.ErrNotConfigured
	}

	body, err := json.Marshal(p.mapRequest(spec))
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	var openAIResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&openAIResp); err != nil {
		return "", provider.ErrMalformedResponse
	}

	if resp.StatusCode != http.StatusOK {
		if openAIResp.Error != nil && openAIResp.Error.Message != "" {
			return "", fmt.Errorf("openai api error: %s", openAIResp.Error.Message)
		}
		return "", fmt.Errorf("openai api error (status %d)", resp.StatusCode)
	}

	if len(openAIResp.Choices) == 0 {
		return "", provider.ErrMalformedResponse
	}

	return openAIResp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) mapRequest(spec *provider.PromptSpec) openAIRequest {
	messages := make([]openAIMessage, 0, len(spec.History)+2)
	if spec.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: spec.System})
	}
	for _, m := range spec.History {
		messages = append(messages, openAIMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: spec.UserText})

	return openAIRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   spec.MaxTokens,
		Temperature: spec.Temperature,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/essenca/essenca-gateway/internal/provider"
)

type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
}

type geminiRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *promptFeedback   `json:"promptFeedback"`
	Error          *geminiError      `json:"error"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type geminiError struct {
	Message string `json:"message"`
}

func New(apiKey, model string) provider.Generator {
	return &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com",
	}
}

func (p *GeminiProvider) Generate(ctx context.Context, spec *provider.PromptSpec) (string, error) {
	if p.apiKey == "" {
		return "", provider.ErrNotConfigured
	}

	body, err := json.Marshal(p.mapRequest(spec))
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", provider.ErrMalformedResponse
	}

	if resp.StatusCode == http.StatusOK &&
		len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 &&
		geminiResp.Candidates[0].Content.Parts[0].Text != "" {
		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}

	log.Printf("gemini: api error. code: %d, body: %s", resp.StatusCode, string(respBody))

	if geminiResp.Error != nil && geminiResp.Error.Message != "" {
		return "", fmt.Errorf("gemini api error: %s", geminiResp.Error.Message)
	}
	if geminiResp.PromptFeedback != nil && geminiResp.PromptFeedback.BlockReason != "" {
		finish := "UNKNOWN"
		if len(geminiResp.Candidates) > 0 && geminiResp.Candidates[0].FinishReason != "" {
			finish = geminiResp.Candidates[0].FinishReason
		}
		return "", &provider.BlockedError{
			Reason:       geminiResp.PromptFeedback.BlockReason,
			FinishReason: finish,
		}
	}
	if len(geminiResp.Candidates) == 0 {
		return "", fmt.Errorf("%w: the api returned no candidates", provider.ErrMalformedResponse)
	}

	return "", provider.ErrMalformedResponse
}

func (p *GeminiProvider) mapRequest(spec *provider.PromptSpec) geminiRequest {
	if spec.SystemChannel {
		// System prompt rides the dedicated instruction channel.
		return geminiRequest{
			Contents: []geminiContent{
				{Role: "user", Parts: []geminiPart{{Text: spec.UserText}}},
			},
			SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: spec.System}}},
			GenerationConfig: &generationConfig{
				MaxOutputTokens: spec.MaxTokens,
				Temperature:     spec.Temperature,
			},
		}
	}

	var contents []geminiContent
	for _, m := range spec.History {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: spec.Combined()}},
	})

	return geminiRequest{
		Contents:         contents,
		GenerationConfig: &generationConfig{MaxOutputTokens: spec.MaxTokens},
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Package gemini generates cover letters through the Google GenAI API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/candigo/candigo/internal/logger"
	"github.com/candigo/candigo/internal/posting"
	"github.com/candigo/candigo/internal/profile"
)

const (
	defaultModel        = "gemini-2.5-pro"
	defaultMaxLogLength = 200
)

//go:embed prompt.md
var promptTemplate string

// Generator wraps the GenAI client behind the letter.Generator contract.
type Generator struct {
	client    *genai.Client
	modelName string
	logger    *zap.Logger
	maxLogLen int
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxLogLength int, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Generator{
		client:    client,
		modelName: model,
		logger:    logger.WithGeneratorFields(log, "gemini", model),
		maxLogLen: maxLogLength,
	}, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

// GenerateLetter builds the prompt from the posting and profile and
// returns Gemini's letter text.
func (g *Generator) GenerateLetter(ctx context.Context, p *posting.Posting, prof *profile.Profile) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("gemini generator is not initialized")
	}
	if p == nil {
		return "", errors.New("posting is required")
	}
	if prof == nil {
		return "", errors.New("profile is required")
	}

	prompt, err := buildPrompt(p, prof)
	if err != nil {
		return "", err
	}

	g.logger.Debug("gemini generate letter request",
		zap.String("source_id", p.SourceID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, g.maxLogLen)),
	)

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := collectText(resp)
	if text == "" {
		return "", errors.New("gemini api returned empty response")
	}

	g.logger.Debug("gemini generate letter response",
		zap.String("source_id", p.SourceID),
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", logger.TruncateForLog(text, g.maxLogLen)),
	)

	return text, nil
}

func buildPrompt(p *posting.Posting, prof *profile.Profile) (string, error) {
	profilePayload := map[string]any{
		"name":     prof.Name,
		"email":    prof.Email,
		"phone":    prof.Phone,
		"linkedin": prof.LinkedIn,
		"skills":   prof.Skills,
	}
	profileJSON, err := json.MarshalIndent(profilePayload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile payload: %w", err)
	}

	postingJSON, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal posting payload: %w", err)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{PROFILE_JSON}}", string(profileJSON))
	prompt = strings.ReplaceAll(prompt, "{{POSTING_JSON}}", string(postingJSON))
	return prompt, nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}

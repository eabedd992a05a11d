// Package textgen suggests short product descriptions with Gemini.
package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"cafe-pos-service/internal/errx"
	"cafe-pos-service/internal/logx"
)

// Generator suggests a one-sentence description for a product.
type Generator interface {
	SuggestDescription(ctx context.Context, productName, productType string) (string, error)
}

// Config holds the Gemini settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type generateFunc func(ctx context.Context, model, prompt string) (string, error)

// Gemini is a Generator backed by the Gemini API.
type Gemini struct {
	model    string
	timeout  time.Duration
	generate generateFunc
}

// NewGemini creates the client. It fails with ErrGenerationDisabled when no
// API key is configured.
func NewGemini(ctx context.Context, config Config) (*Gemini, error) {
	if config.APIKey == "" {
		return nil, errx.ErrGenerationDisabled
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	return &Gemini{
		model:   config.Model,
		timeout: config.Timeout,
		generate: func(ctx context.Context, model, prompt string) (string, error) {
			resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
			if err != nil {
				return "", err
			}
			return resp.Text(), nil
		},
	}, nil
}

// Prompt builds the request for a product. The category stands in when the
// product has no type label.
func Prompt(productName, productType string) string {
	return fmt.Sprintf(
		"Write a short, charming description for a cafe menu item named %q of type %q. Keep it to one engaging sentence.",
		strings.TrimSpace(productName), strings.TrimSpace(productType),
	)
}

// SuggestDescription asks Gemini for one sentence about the product.
func (g *Gemini) SuggestDescription(ctx context.Context, productName, productType string) (string, error) {
	if strings.TrimSpace(productName) == "" {
		return "", errx.ErrGenerationNeedsTitle
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.generate(ctx, g.model, Prompt(productName, productType))
	if err != nil {
		logx.Warn().Err(err).Str("model", g.model).Msg("description generation failed")
		return "", errx.Wrap(errx.ErrGeneration, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errx.WithMessage(errx.ErrGeneration, "the model returned no text")
	}
	return text, nil
}

// Disabled is the Generator used when Gemini is not configured.
type Disabled struct{}

func (Disabled) SuggestDescription(context.Context, string, string) (string, error) {
	return "", errx.ErrGenerationDisabled
}

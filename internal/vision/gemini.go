package vision

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiProvider calls a single Gemini model through the genai SDK. Multiple
// instances with different model ids form the fallback chain.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
}

// NewGeminiProviders creates one provider per model id sharing a client and
// a request rate limiter.
func NewGeminiProviders(ctx context.Context, apiKey string, models []string) ([]Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	// One request per second with small bursts keeps a fleet of workers
	// inside provider quotas.
	limiter := rate.NewLimiter(rate.Limit(1), 2)

	providers := make([]Provider, 0, len(models))
	for _, model := range models {
		providers = append(providers, &GeminiProvider{
			client:  client,
			model:   model,
			limiter: limiter,
		})
	}
	return providers, nil
}

// ModelID returns the model identifier.
func (p *GeminiProvider) ModelID() string { return p.model }

// Analyze sends the page images plus the structured prompt and parses the
// response with the strict extractor.
func (p *GeminiProvider) Analyze(ctx context.Context, req Request) (*Takeoff, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: img.MIMEType,
				Data:     img.Data,
			},
		})
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", p.model, err)
	}

	text := collectText(resp)
	if text == "" {
		return nil, fmt.Errorf("model %s returned no text", p.model)
	}

	takeoff, err := ParseTakeoff(text)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", p.model, err)
	}
	return takeoff, nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var out string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			out += part.Text
		}
	}
	return out
}

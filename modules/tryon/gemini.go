package tryon

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"fitting-room-server/modules/session"

	"google.golang.org/genai"
)

// GeminiGenerator calls the Gemini API through google.golang.org/genai.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiClient - Gemini API client; the key is passed through as configured
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

func NewGeminiGenerator(client *genai.Client, model string) *GeminiGenerator {
	log.Printf("✅ [TryOn] Gemini generator ready (model: %s)", model)
	return &GeminiGenerator{
		client: client,
		model:  model,
	}
}

// Generate sends person, outfit and instruction as one user turn.
func (g *GeminiGenerator) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	personData, err := base64.StdEncoding.DecodeString(req.Person.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode person image: %w", err)
	}
	outfitData, err := base64.StdEncoding.DecodeString(req.Outfit.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode outfit image: %w", err)
	}

	content := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{
			genai.NewPartFromBytes(personData, req.Person.MediaType),
			genai.NewPartFromBytes(outfitData, req.Outfit.MediaType),
			genai.NewPartFromText(req.Instruction),
		},
	}

	log.Printf("📤 [TryOn] Sending request to Gemini API (attempt %s, model %s)", req.AttemptID, g.model)
	result, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}

	return fromGeminiResponse(result), nil
}

func fromGeminiResponse(result *genai.GenerateContentResponse) *GenerateResponse {
	resp := &GenerateResponse{}
	if result == nil {
		return resp
	}

	for _, candidate := range result.Candidates {
		var c Candidate
		if candidate != nil && candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part == nil {
					continue
				}
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					c.Parts = append(c.Parts, ResponsePart{Image: &session.EncodedImage{
						MediaType: part.InlineData.MIMEType,
						Content:   base64.StdEncoding.EncodeToString(part.InlineData.Data),
					}})
					continue
				}
				if part.Text != "" {
					c.Parts = append(c.Parts, ResponsePart{Text: part.Text})
				}
			}
		}
		resp.Candidates = append(resp.Candidates, c)
	}
	return resp
}

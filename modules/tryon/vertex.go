package tryon

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"fitting-room-server/modules/session"

	"cloud.google.com/go/vertexai/genai"
)

// VertexGenerator calls Gemini through Vertex AI.
type VertexGenerator struct {
	client *genai.Client
	model  string
}

func NewVertexGenerator(client *genai.Client, model string) *VertexGenerator {
	log.Printf("✅ [TryOn] Vertex AI generator ready (model: %s)", model)
	return &VertexGenerator{
		client: client,
		model:  model,
	}
}

func (g *VertexGenerator) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	parts, err := vertexParts(req)
	if err != nil {
		return nil, err
	}

	log.Printf("📤 [TryOn] Calling Vertex AI (attempt %s, model %s)", req.AttemptID, g.model)
	model := g.client.GenerativeModel(g.model)

	result, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("Vertex AI call failed: %w", err)
	}

	return fromVertexResponse(result), nil
}

func vertexParts(req *GenerateRequest) ([]genai.Part, error) {
	personData, err := base64.StdEncoding.DecodeString(req.Person.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode person image: %w", err)
	}
	outfitData, err := base64.StdEncoding.DecodeString(req.Outfit.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode outfit image: %w", err)
	}

	return []genai.Part{
		genai.Blob{MIMEType: req.Person.MediaType, Data: personData},
		genai.Blob{MIMEType: req.Outfit.MediaType, Data: outfitData},
		genai.Text(req.Instruction),
	}, nil
}

func fromVertexResponse(result *genai.GenerateContentResponse) *GenerateResponse {
	resp := &GenerateResponse{}
	if result == nil {
		return resp
	}

	for _, candidate := range result.Candidates {
		var c Candidate
		if candidate != nil && candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				switch p := part.(type) {
				case genai.Blob:
					if len(p.Data) > 0 {
						c.Parts = append(c.Parts, ResponsePart{Image: &session.EncodedImage{
							MediaType: p.MIMEType,
							Content:   base64.StdEncoding.EncodeToString(p.Data),
						}})
					}
				case genai.Text:
					if p != "" {
						c.Parts = append(c.Parts, ResponsePart{Text: string(p)})
					}
				}
			}
		}
		resp.Candidates = append(resp.Candidates, c)
	}
	return resp
}

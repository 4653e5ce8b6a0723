package vertexai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"fitting-room-server/modules/common/config"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

// CredentialSource - where the Vertex AI service-account key came from
type CredentialSource string

const (
	SourceInlineJSON CredentialSource = "inline_json"
	SourceFile       CredentialSource = "file"
	SourceADC        CredentialSource = "adc"
)

var errInvalidCredentials = errors.New("invalid JSON credentials")

// Credentials - resolved key material for the Vertex AI client. JSON is empty
// for SourceADC.
type Credentials struct {
	Source CredentialSource
	JSON   []byte
}

// ClientOptions - options for genai.NewClient. ADC needs none.
func (c Credentials) ClientOptions() []option.ClientOption {
	if c.Source == SourceADC || len(c.JSON) == 0 {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsJSON(c.JSON)}
}

// ResolveCredentials picks inline JSON first, then the key file, then ADC.
// Explicit key material must be valid JSON; the content is not inspected further.
func ResolveCredentials(inlineJSON, path string) (Credentials, error) {
	if inlineJSON != "" {
		if !json.Valid([]byte(inlineJSON)) {
			return Credentials{}, fmt.Errorf("VERTEXAI_CREDENTIALS_JSON: %w", errInvalidCredentials)
		}
		return Credentials{Source: SourceInlineJSON, JSON: []byte(inlineJSON)}, nil
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Credentials{}, fmt.Errorf("failed to read credentials file %s: %w", path, err)
		}
		if !json.Valid(data) {
			return Credentials{}, fmt.Errorf("%s: %w", path, errInvalidCredentials)
		}
		return Credentials{Source: SourceFile, JSON: data}, nil
	}

	return Credentials{Source: SourceADC}, nil
}

// NewVertexAIClient - Vertex AI client for the configured project/location
func NewVertexAIClient(ctx context.Context, cfg *config.Config) (*genai.Client, error) {
	creds, err := ResolveCredentials(cfg.VertexCredentialsJSON, cfg.VertexCredentialsPath)
	if err != nil {
		return nil, err
	}

	switch creds.Source {
	case SourceInlineJSON:
		log.Println("✅ [VertexAI] Using VERTEXAI_CREDENTIALS_JSON")
	case SourceFile:
		log.Printf("✅ [VertexAI] Using credentials from file: %s", cfg.VertexCredentialsPath)
	default:
		log.Println("⚠️  [VertexAI] No explicit credentials, using Application Default Credentials")
	}

	client, err := genai.NewClient(ctx, cfg.VertexProject, cfg.VertexLocation, creds.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	log.Printf("✅ [VertexAI] Client initialized for project=%s, location=%s", cfg.VertexProject, cfg.VertexLocation)
	return client, nil
}

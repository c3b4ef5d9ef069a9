package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/Divas-Gupta30/ayurwell/internal/graph"
)

const defaultGeminiModel = "gemini-2.0-flash-001"

// Gemini generates text with the Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func NewGemini(ctx context.Context, apiKey, model string, temperature float32, maxTokens int) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("GOOGLE_API_KEY is not set")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	return &Gemini{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   int32(maxTokens),
	}, nil
}

func (g *Gemini) Available() bool { return true }

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("chat generation failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("empty response from Gemini API")
	}
	return resp.Text(), nil
}

func (g *Gemini) Judge(ctx context.Context, system, user string) (graph.Verdict, error) {
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0),
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"score": {
					Type:        genai.TypeString,
					Enum:        []string{"Yes", "No"},
					Description: "Does this document answer the user's question? 'Yes' or 'No'.",
				},
			},
			Required: []string{"score"},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), config)
	if err != nil {
		return graph.Verdict{}, fmt.Errorf("grading call failed: %w", err)
	}
	var v graph.Verdict
	if err := json.Unmarshal([]byte(resp.Text()), &v); err != nil {
		return graph.Verdict{}, fmt.Errorf("decoding verdict: %w", err)
	}
	return v, nil
}

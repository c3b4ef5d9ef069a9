package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Divas-Gupta30/ayurwell/internal/graph"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3"
)

// request body for Ollama
type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Format  any            `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// Ollama streaming response chunks look like { "response": "...", "done": false }
type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// verdictSchema constrains Ollama's JSON output to a Verdict.
var verdictSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"score": map[string]any{"type": "string", "enum": []string{"Yes", "No"}},
	},
	"required": []string{"score"},
}

// Ollama talks to a local Ollama server's generate endpoint.
type Ollama struct {
	baseURL     string
	model       string
	temperature float32
	maxTokens   int
	client      *http.Client
}

func NewOllama(baseURL, model string, temperature float32, maxTokens int) *Ollama {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &Ollama{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{Timeout: 2 * time.Minute},
	}
}

func (o *Ollama) Available() bool { return true }

// Ping checks that the Ollama server answers.
func (o *Ollama) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama ping: status %s", resp.Status)
	}
	return nil
}

func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	return o.generate(ctx, ollamaRequest{Prompt: prompt, Stream: true})
}

func (o *Ollama) Judge(ctx context.Context, system, user string) (graph.Verdict, error) {
	out, err := o.generate(ctx, ollamaRequest{
		Prompt: user,
		System: system,
		Format: verdictSchema,
		Options: map[string]any{
			"temperature": 0,
		},
	})
	if err != nil {
		return graph.Verdict{}, err
	}
	var v graph.Verdict
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		return graph.Verdict{}, fmt.Errorf("decoding verdict %q: %w", out, err)
	}
	return v, nil
}

func (o *Ollama) generate(ctx context.Context, body ollamaRequest) (string, error) {
	body.Model = o.model
	if body.Options == nil {
		body.Options = map[string]any{"temperature": o.temperature}
	}
	if o.maxTokens > 0 {
		body.Options["num_predict"] = o.maxTokens
	}
	reqBody, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("creating ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	// Streamed or not, the body is a sequence of JSON objects.
	var out strings.Builder
	decoder := json.NewDecoder(resp.Body)
	for {
		var chunk ollamaResponse
		if err := decoder.Decode(&chunk); err == io.EOF {
			break
		} else if err != nil {
			return "", fmt.Errorf("decoding ollama response: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama error: %s", chunk.Error)
		}
		out.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	return out.String(), nil
}

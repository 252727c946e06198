package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

const defaultVertexModel = "gemini-1.5-flash"

// VertexAIClient wraps the Vertex AI Gemini API.
type VertexAIClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewVertexAIClient(ctx context.Context, projectID, location, modelName string, temperature float32) (*VertexAIClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("ai.google_cloud_project is required for the vertex provider")
	}
	if location == "" {
		location = "us-central1"
	}
	if modelName == "" || strings.HasPrefix(modelName, "gpt-") {
		modelName = defaultVertexModel
	}

	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(2048)

	return &VertexAIClient{client: client, model: model}, nil
}

func (v *VertexAIClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	text := prompt.User
	if prompt.System != "" {
		text = prompt.System + "\n\n" + prompt.User
	}

	resp, err := v.model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), nil
}

func (v *VertexAIClient) Close() error {
	return v.client.Close()
}

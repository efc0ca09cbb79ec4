package speaking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"speakwell/internal/apperrors"
)

const defaultGeminiModel = "gemini-2.0-flash"

const geminiInstruction = `You are an English pronunciation coach. The user recorded themselves saying a target word or phrase.
Rate the recording from 0 to 100 for pronunciation, fluency and accuracy against the target, and give one or two sentences of concrete feedback.`

// contentGenerator is the subset of the Gemini models API the scorer uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiScorer scores recordings with a Gemini multimodal model
type GeminiScorer struct {
	models contentGenerator
	model  string
}

// NewGeminiScorer creates a scorer backed by the Gemini API
func NewGeminiScorer(ctx context.Context, apiKey, model string) (*GeminiScorer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiScorer{models: client.Models, model: model}, nil
}

var geminiScoreSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"pronunciationScore": {Type: genai.TypeInteger, Description: "0-100"},
		"fluencyScore":       {Type: genai.TypeInteger, Description: "0-100"},
		"accuracyScore":      {Type: genai.TypeInteger, Description: "0-100"},
		"feedbackText":       {Type: genai.TypeString},
	},
	Required: []string{"pronunciationScore", "fluencyScore", "accuracyScore", "feedbackText"},
}

func (s *GeminiScorer) Score(ctx context.Context, capture Capture, target string) (Score, error) {
	mimeType := capture.MIMEType
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: geminiInstruction}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   geminiScoreSchema,
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: fmt.Sprintf("Target phrase: %q", target)},
			{InlineData: &genai.Blob{Data: capture.Audio, MIMEType: mimeType}},
		},
	}}

	result, err := s.models.GenerateContent(ctx, s.model, contents, config)
	if err != nil {
		return Score{}, mapGeminiError(err)
	}

	var score Score
	if err := json.Unmarshal([]byte(result.Text()), &score); err != nil {
		return Score{}, fmt.Errorf("decode Gemini response: %w", err)
	}
	return score, nil
}

func mapGeminiError(err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests, apiErr.Code >= 500:
			return &apperrors.NetworkError{Collaborator: collaboratorName, Err: err}
		}
	}
	return err
}

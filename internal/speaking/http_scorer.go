package speaking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"speakwell/internal/apperrors"
)

// HTTPScorer delegates scoring to a remote speech analysis service that
// accepts a multipart POST on /speak.
type HTTPScorer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPScorer creates a scorer for the service at baseURL
func NewHTTPScorer(baseURL string, client *http.Client) *HTTPScorer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPScorer{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

type speakResponse struct {
	Score
	FeedbackGemini string `json:"feedback_gemini"`
}

func (s *HTTPScorer) Score(ctx context.Context, capture Capture, target string) (Score, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("target", target); err != nil {
		return Score{}, err
	}
	part, err := mw.CreateFormFile("audio", "attempt.webm")
	if err != nil {
		return Score{}, err
	}
	if _, err := part.Write(capture.Audio); err != nil {
		return Score{}, err
	}
	if err := mw.Close(); err != nil {
		return Score{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/speak", &body)
	if err != nil {
		return Score{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Score{}, apperrors.FromTransport(collaboratorName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Score{}, &apperrors.NetworkError{
			Collaborator: collaboratorName,
			Err:          fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		}
	}

	var out speakResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Score{}, fmt.Errorf("decode speech analysis response: %w", err)
	}
	if out.Feedback == "" {
		out.Feedback = out.FeedbackGemini
	}
	return out.Score, nil
}

package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
)

const generatePath = "/generate-report"

// HTTPClient talks to the content-generation service. One request carries the
// whole assessment and returns the complete document, keeping the call count
// against the rate-limited provider at one per job pass.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		// Per-call deadlines come from the caller's context.
		client: &http.Client{Timeout: 0},
	}
}

type generateRequest struct {
	AssessmentID string          `json:"assessmentId"`
	Country      string          `json:"country"`
	City         string          `json:"city,omitempty"`
	Answers      json.RawMessage `json:"answers,omitempty"`
}

func (c *HTTPClient) Generate(ctx context.Context, assessment *model.Assessment) (*Document, error) {
	payload, err := json.Marshal(generateRequest{
		AssessmentID: assessment.ID.String(),
		Country:      assessment.DestinationCountry,
		City:         assessment.DestinationCity,
		Answers:      assessment.Answers,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling content provider: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		if retryAfter == "" {
			return nil, ErrRateLimited
		}
		return nil, fmt.Errorf("%w: retry after %s", ErrRateLimited, retryAfter)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("content provider returned %d: %s", resp.StatusCode, string(body))
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding generated document: %w", err)
	}
	if doc.Country == "" {
		doc.Country = assessment.DestinationCountry
	}
	if doc.City == "" {
		doc.City = assessment.DestinationCity
	}
	if doc.Title == "" {
		doc.Title = fmt.Sprintf("Relocation Report: %s", doc.Country)
	}

	return &doc, nil
}

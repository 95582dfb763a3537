// Package api – paid inference endpoint.
//
// Predict is only ever called by the gated-invocation saga, after a confirmed
// debit. The endpoint itself knows nothing about tokens.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/agrovet/go-vetcare-client/internal/domain"
)

// PredictionRequest is the feature-specific payload forwarded to the
// inference collaborator (symptom descriptions, animal metadata, ...).
type PredictionRequest struct {
	Feature domain.Feature `json:"feature"`
	Payload map[string]any `json:"payload"`
}

// PredictionResult is the model's answer. Raw keeps the untouched response
// body for feature-specific fields the client core does not interpret.
type PredictionResult struct {
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Advice     string          `json:"advice"`
	Raw        json.RawMessage `json:"-"`
}

// Predict invokes the paid inference endpoint.
func (c *Client) Predict(ctx context.Context, req PredictionRequest) (PredictionResult, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "predict", http.MethodPost, "/api/predict", "", req, &raw); err != nil {
		return PredictionResult{}, err
	}
	var res PredictionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return PredictionResult{}, err
	}
	res.Raw = raw
	return res, nil
}

// Package classifier implements the gateway that assigns a category to
// complaint text. Local classifies in-process against a labelled example
// corpus; Remote delegates to an HTTP prediction service. Neither logs:
// callers decide how to surface failures.
package classifier

import (
	"context"
	"errors"
)

// PredictRequest is the input to a prediction.
type PredictRequest struct {
	Text        string  `json:"text"`
	SubmitterID string  `json:"user_id"`
	OrderID     *string `json:"order_id,omitempty"`
}

// Prediction is a gateway answer. Category is the raw label; callers must
// validate it against the category set. Status is the initial status echoed
// by the gateway and is informational only.
type Prediction struct {
	Category string `json:"category"`
	Status   string `json:"status"`
}

// Gateway classifies complaint text.
type Gateway interface {
	Predict(ctx context.Context, req PredictRequest) (Prediction, error)
}

var (
	// ErrNoMatch is returned by Local when the text shares no token with any
	// example and no fallback category is configured.
	ErrNoMatch = errors.New("no category matched")
	// ErrEmptyText is returned for blank input.
	ErrEmptyText = errors.New("text is empty")
)

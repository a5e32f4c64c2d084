// Package predictor defines the sentence classifier boundary and a client for
// a remote classifier served over HTTP.
package predictor

import (
	"context"

	"github.com/rewired-gh/finsent/internal/models"
)

// Predictor labels a batch of sentences. The result has the same length and
// order as texts, with confidences on the 0-100 scale. It must not be called
// with an empty batch.
type Predictor interface {
	Predict(ctx context.Context, texts []string) ([]models.SentenceScore, error)
}

// Func adapts a plain function to Predictor.
type Func func(ctx context.Context, texts []string) ([]models.SentenceScore, error)

func (f Func) Predict(ctx context.Context, texts []string) ([]models.SentenceScore, error) {
	return f(ctx, texts)
}

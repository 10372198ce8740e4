package classifier

import (
	"context"

	"github.com/voyagenthq/voyagent/pkg/session"
)

// Result is what the external intent oracle returns for one message.
// Entities are already flattened to slot-name keys. The adapter is
// treated as unreliable: callers must be prepared for errors, timeouts
// and unknown intent codes.
type Result struct {
	Intent        string            `json:"intent"`
	Confidence    float64           `json:"confidence"`
	Entities      map[string]string `json:"entities"`
	RequiresHuman bool              `json:"requiresHuman"`
}

// Classifier is the contract the dialogue engine consumes. History is
// the rolling window of recent turns, oldest first.
type Classifier interface {
	Classify(ctx context.Context, message string, history []session.Turn) (*Result, error)
	Name() string
}

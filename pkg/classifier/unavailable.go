package classifier

import (
	"context"
	"errors"

	"github.com/voyagenthq/voyagent/pkg/session"
)

// ErrUnavailable is returned when no classification backend is
// configured. The dialogue engine treats it like any oracle failure
// and falls back to its unknown-intent path.
var ErrUnavailable = errors.New("classifier: no provider configured")

// Unavailable is the null classifier, used by the local chat REPL and
// deployments that run rule-based only.
type Unavailable struct{}

func (Unavailable) Name() string { return ProviderNone }

func (Unavailable) Classify(ctx context.Context, message string, history []session.Turn) (*Result, error) {
	return nil, ErrUnavailable
}

package classifier

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/voyagenthq/voyagent/pkg/config"
)

const (
	ProviderHTTP = "http"
	ProviderNone = "none"
)

type buildFunc func(cfg *config.Config) (Classifier, error)

var (
	factoryMu sync.RWMutex
	factories = map[string]buildFunc{}
)

// RegisterFactory installs a named classifier constructor. Built-in
// providers register in init; deployments can add their own before
// calling Create.
func RegisterFactory(name string, build buildFunc) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[NormalizeName(name)] = build
}

func SupportedProviders() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ProviderHTTP
	}
	return name
}

// Create builds the classifier named by cfg.Classifier.Provider.
func Create(cfg *config.Config) (Classifier, error) {
	name := NormalizeName(cfg.Classifier.Provider)
	factoryMu.RLock()
	build, ok := factories[name]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported classifier provider %q (supported: %s)",
			name, strings.Join(SupportedProviders(), ", "))
	}
	return build(cfg)
}

func init() {
	RegisterFactory(ProviderHTTP, func(cfg *config.Config) (Classifier, error) {
		return NewHTTPClassifier(HTTPOptions{
			APIKey:       cfg.Classifier.APIKey,
			APIBase:      cfg.Classifier.APIBase,
			Model:        cfg.Classifier.Model,
			Timeout:      time.Duration(cfg.Classifier.TimeoutSeconds) * time.Second,
			HistoryTurns: cfg.Classifier.HistoryTurns,
		}), nil
	})
	RegisterFactory(ProviderNone, func(cfg *config.Config) (Classifier, error) {
		return Unavailable{}, nil
	})
}

package faq

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed data/faq.json
var embeddedCorpus embed.FS

// LoadEmbedded returns the corpus bundled with the binary.
func LoadEmbedded() ([]Entry, error) {
	data, err := embeddedCorpus.ReadFile("data/faq.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded faq corpus: %w", err)
	}
	return parseCorpus(data)
}

// LoadFile reads a corpus from disk, for deployments that maintain
// their own knowledge base.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read faq corpus %s: %w", path, err)
	}
	return parseCorpus(data)
}

func parseCorpus(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse faq corpus: %w", err)
	}
	for i, e := range entries {
		if e.ID == "" || e.Question == "" {
			return nil, fmt.Errorf("faq corpus entry %d missing id or question", i)
		}
	}
	return entries, nil
}

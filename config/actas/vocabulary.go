package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Spelling maps a canonical word to the variants the transcriber tends to produce.
type Spelling struct {
	To   string
	From []string
}

// LoadVocabulary reads a yaml document of the form
//
//	LAIVE: [laib, Laibe]
//	HORECA: [Oreka]
//
// An empty path yields no entries.
func LoadVocabulary(path string) ([]Spelling, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary file: %w", err)
	}

	spellings := make([]Spelling, 0, len(raw))
	for to, from := range raw {
		if to == "" || len(from) == 0 {
			continue
		}
		spellings = append(spellings, Spelling{To: to, From: from})
	}
	sort.Slice(spellings, func(i, j int) bool { return spellings[i].To < spellings[j].To })

	return spellings, nil
}

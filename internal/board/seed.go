package board

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Events []Event `yaml:"events"`
}

// SeedEvents returns the sample records written into an empty collection,
// each given a fresh id from newID.
func SeedEvents(newID func() string) ([]Event, error) {
	var file seedFile
	if err := yaml.Unmarshal(seedYAML, &file); err != nil {
		return nil, fmt.Errorf("decode seed events: %w", err)
	}
	for i := range file.Events {
		file.Events[i].ID = newID()
	}
	return file.Events, nil
}

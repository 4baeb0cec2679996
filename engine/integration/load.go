package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load decodes an integration from YAML or JSON.
func Load(r io.Reader) (Integration, error) {
	var raw any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return Integration{}, fmt.Errorf("integration document is empty")
		}
		return Integration{}, fmt.Errorf("failed to parse integration document: %w", err)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return Integration{}, fmt.Errorf("failed to normalize integration document: %w", err)
	}
	var integ Integration
	if err := json.Unmarshal(data, &integ); err != nil {
		return Integration{}, fmt.Errorf("failed to decode integration: %w", err)
	}
	if err := integ.Validate(); err != nil {
		return Integration{}, err
	}
	return integ, nil
}

func LoadFile(path string) (Integration, error) {
	f, err := os.Open(path)
	if err != nil {
		return Integration{}, fmt.Errorf("failed to open integration file: %w", err)
	}
	defer f.Close()
	integ, err := Load(f)
	if err != nil {
		return Integration{}, fmt.Errorf("%s: %w", path, err)
	}
	return integ, nil
}

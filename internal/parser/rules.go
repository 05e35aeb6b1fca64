package parser

import (
	"io"
	"os"

	"github.com/cloudseed-visualizer/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// ParseMarkerRules loads a YAML marker color rules file. Values present in
// the file override the built-in scheme; everything else keeps its default.
func ParseMarkerRules(filePath string) (*models.MarkerRules, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseMarkerRulesFromReader(file)
}

// ParseMarkerRulesFromReader parses rules from an io.Reader.
func ParseMarkerRulesFromReader(r io.Reader) (*models.MarkerRules, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var loaded models.MarkerRules
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, err
	}

	rules := models.DefaultMarkerRules()
	if loaded.DefaultColor != "" {
		rules.DefaultColor = loaded.DefaultColor
	}
	for cat, color := range loaded.Categories {
		if color != "" {
			rules.Categories[cat] = color
		}
	}
	return rules, nil
}

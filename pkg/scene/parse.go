package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a JSON scene document and validates it.
func Parse(data []byte) (Scene, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode scene JSON: %w", err)
	}
	return Validate(doc)
}

// ParseYAML decodes a YAML scene document and validates it.
func ParseYAML(data []byte) (Scene, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode scene YAML: %w", err)
	}
	return Validate(doc)
}

// Extensions lists the content file extensions ParseFile understands, in
// lookup order.
var Extensions = []string{".json", ".yaml", ".yml"}

// ParseFile reads and validates a .json, .yaml or .yml scene file.
func ParseFile(path string) (Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".json":
		return Parse(data)
	default:
		return nil, fmt.Errorf("unsupported scene file extension: %s", path)
	}
}

// Clone returns a deep copy so callers can modify a scene without touching
// a cached or built-in original.
func Clone(s Scene) Scene {
	switch s := s.(type) {
	case *Normal:
		c := *s
		c.Source = append(Source(nil), s.Source...)
		c.Options = append([]Option(nil), s.Options...)
		c.PreloadScenes = append([]string(nil), s.PreloadScenes...)
		return &c
	case *Ending:
		c := *s
		c.Source = append(Source(nil), s.Source...)
		return &c
	default:
		return nil
	}
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
)

// Load builds the configuration from defaults, the optional file at path
// and the environment. It does not validate; call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile overlays the YAML (or JSON) file at path onto c.
func (c *Config) MergeFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return fmt.Errorf("failed to read file: %w", err)
	}
	if err := c.Merge(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Merge overlays YAML data onto c. Keys present in data are recorded in
// Sources as SourceFile. Unknown keys are rejected.
func (c *Config) Merge(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyFile
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyFile
		}
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if len(doc.Content) > 0 {
		for _, key := range leafKeys(doc.Content[0], "") {
			c.SetSource(key, SourceFile)
		}
	}
	return nil
}

// leafKeys lists the dotted paths of every non-mapping value under n.
func leafKeys(n *yaml.Node, prefix string) []string {
	if n.Kind != yaml.MappingNode {
		if prefix == "" {
			return nil
		}
		return []string{prefix}
	}
	var keys []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		if prefix != "" {
			name = prefix + "." + name
		}
		keys = append(keys, leafKeys(n.Content[i+1], name)...)
	}
	return keys
}

// ToYAML renders c as YAML.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return data, nil
}

package xsd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// configDocument mirrors the on-disk YAML layout before paths are resolved
// and loader-internal types are built.
type configDocument struct {
	Files                  []string                `yaml:"files"`
	SchemaLocationMappings []configLocationMapping  `yaml:"schema_location_mappings"`
	NamespaceMappings      []configNamespaceMapping `yaml:"namespace_mappings"`
}

type configLocationMapping struct {
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Pattern bool   `yaml:"pattern"`
}

type configNamespaceMapping struct {
	Prefix string `yaml:"prefix"`
	URI    string `yaml:"uri"`
}

// Config is a resolved repository configuration: every relative path has
// already been joined against the directory the YAML file lived in.
type Config struct {
	Files                  []string
	SchemaLocationMappings []SchemaLocationMapping
	NamespaceMappings      []NamespaceMapping
}

// LoadConfig reads and resolves the YAML configuration described for
// SchemaRepository.Parse/FromFile(".yaml"). Relative file and mapping "to"
// paths are resolved against path's own directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Path: path, Err: err}
	}

	var doc configDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigurationError{Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	cfg := &Config{}

	for _, f := range doc.Files {
		cfg.Files = append(cfg.Files, resolveConfigPath(dir, f))
	}

	for _, m := range doc.SchemaLocationMappings {
		to := m.To
		if !m.Pattern {
			to = resolveConfigPath(dir, to)
		}
		cfg.SchemaLocationMappings = append(cfg.SchemaLocationMappings, SchemaLocationMapping{
			From:    m.From,
			To:      to,
			Pattern: m.Pattern,
		})
	}

	for _, n := range doc.NamespaceMappings {
		cfg.NamespaceMappings = append(cfg.NamespaceMappings, NamespaceMapping{Prefix: n.Prefix, URI: n.URI})
	}

	return cfg, nil
}

// resolveConfigPath joins rel against dir unless rel is already absolute or
// a URL.
func resolveConfigPath(dir, rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") {
		return rel
	}
	return filepath.Join(dir, rel)
}

// ApplyConfig loads cfg into a freshly constructed SchemaRepository and
// drives Parse + Resolve in one step, registering any pre-configured
// namespace mappings before parsing begins.
func ApplyConfig(cfg *Config, opts ...RepositoryOption) (*SchemaRepository, error) {
	r := NewSchemaRepository(opts...)
	for _, n := range cfg.NamespaceMappings {
		r.namespaces.Register(n.Prefix, n.URI)
	}
	if err := r.Parse(ParseOptions{Files: cfg.Files, SchemaLocationMappings: cfg.SchemaLocationMappings}); err != nil {
		return nil, fmt.Errorf("xsd: failed to parse from config: %w", err)
	}
	if err := r.Resolve(); err != nil {
		return nil, err
	}
	return r, nil
}

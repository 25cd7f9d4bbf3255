package xsd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	yamlDoc := `files:
  - schemas/main.xsd
schema_location_mappings:
  - from: types.xsd
    to: vendor/types.xsd
  - from: "ext-.*\\.xsd"
    to: "vendor/$0"
    pattern: true
namespace_mappings:
  - prefix: foo
    uri: urn:foo
`
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlDoc), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	wantFile := filepath.Join(dir, "schemas", "main.xsd")
	if len(cfg.Files) != 1 || cfg.Files[0] != wantFile {
		t.Errorf("Files = %v, want [%s]", cfg.Files, wantFile)
	}

	if len(cfg.SchemaLocationMappings) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(cfg.SchemaLocationMappings))
	}
	wantTo := filepath.Join(dir, "vendor", "types.xsd")
	if cfg.SchemaLocationMappings[0].To != wantTo {
		t.Errorf("mapping[0].To = %q, want %q", cfg.SchemaLocationMappings[0].To, wantTo)
	}
	if !cfg.SchemaLocationMappings[1].Pattern || cfg.SchemaLocationMappings[1].To != "vendor/$0" {
		t.Errorf("pattern mapping not preserved unresolved: %+v", cfg.SchemaLocationMappings[1])
	}

	if len(cfg.NamespaceMappings) != 1 || cfg.NamespaceMappings[0].Prefix != "foo" || cfg.NamespaceMappings[0].URI != "urn:foo" {
		t.Errorf("NamespaceMappings = %v", cfg.NamespaceMappings)
	}
}

func TestLoadConfigLeavesAbsoluteAndURLPathsUnresolved(t *testing.T) {
	dir := t.TempDir()
	yamlDoc := `files:
  - /abs/main.xsd
  - https://example.com/types.xsd
`
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlDoc), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(cfg.Files) != 2 || cfg.Files[0] != "/abs/main.xsd" || cfg.Files[1] != "https://example.com/types.xsd" {
		t.Errorf("Files = %v", cfg.Files)
	}
}

func TestLoadConfigMissingFileReturnsConfigurationError(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigurationError, got %T: %v", err, err)
	}
}

func TestLoadConfigMalformedYAMLReturnsConfigurationError(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte("files: [this is not"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	_, err := LoadConfig(cfgPath)
	if err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestApplyConfigBuildsResolvedRepository(t *testing.T) {
	dir := t.TempDir()
	schemaDoc := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:cfg">
    <xs:complexType name="widgetType">
        <xs:sequence>
            <xs:element name="v" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
</xs:schema>`
	schemaFile := writeTestSchema(t, dir, "cfg.xsd", schemaDoc)

	cfg := &Config{Files: []string{schemaFile}}
	repo, err := ApplyConfig(cfg, WithBaseDir(dir))
	if err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}

	result := repo.FindType("{urn:cfg}widgetType")
	if !result.Found {
		t.Fatalf("expected widgetType to be resolved, suggestions: %v", result.Suggestions)
	}
}

package xsd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestToPackageFromPackageRoundTrip(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "xsd-pkg-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	mainSchema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="http://example.com/main"
           xmlns:types="http://example.com/types">
    <xs:import namespace="http://example.com/types" schemaLocation="types.xsd"/>
    <xs:element name="document" type="types:personType"/>
</xs:schema>`

	typesSchema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="http://example.com/types">
    <xs:complexType name="personType">
        <xs:sequence>
            <xs:element name="name" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
</xs:schema>`

	mainFile := writeTestSchema(t, tempDir, "main.xsd", mainSchema)
	writeTestSchema(t, tempDir, "types.xsd", typesSchema)

	repo := NewSchemaRepository(WithBaseDir(tempDir))
	if err := repo.Parse(ParseOptions{Files: []string{mainFile}}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := repo.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	pkgPath := filepath.Join(tempDir, "bundle.lxr")
	cfg := PackageConfig{XSDMode: ModeIncludeAll, ResolutionMode: ResolutionBare, SerializationFormat: FormatParse}
	if err := repo.ToPackage(pkgPath, cfg); err != nil {
		t.Fatalf("ToPackage failed: %v", err)
	}

	loaded, err := FromPackage(pkgPath)
	if err != nil {
		t.Fatalf("FromPackage failed: %v", err)
	}
	defer loaded.Close()

	if len(loaded.Schemas()) != 2 {
		t.Fatalf("expected 2 schemas after round trip, got %d", len(loaded.Schemas()))
	}
	result := loaded.FindType("{http://example.com/types}personType")
	if !result.Found {
		t.Fatalf("expected personType to survive the round trip, suggestions: %v", result.Suggestions)
	}
}

func TestToPackageResolvedMarshalRoundTrip(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "xsd-pkg-marshal-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	schema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:m">
    <xs:complexType name="widgetType">
        <xs:sequence>
            <xs:element name="label" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
</xs:schema>`
	file := writeTestSchema(t, tempDir, "m.xsd", schema)

	repo := NewSchemaRepository(WithBaseDir(tempDir))
	if err := repo.Parse(ParseOptions{Files: []string{file}}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := repo.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	pkgPath := filepath.Join(tempDir, "m.lxr")
	cfg := PackageConfig{XSDMode: ModeIncludeAll, ResolutionMode: ResolutionResolved, SerializationFormat: FormatMarshal}
	if err := repo.ToPackage(pkgPath, cfg); err != nil {
		t.Fatalf("ToPackage failed: %v", err)
	}

	loaded, err := FromPackage(pkgPath)
	if err != nil {
		t.Fatalf("FromPackage failed: %v", err)
	}
	defer loaded.Close()

	result := loaded.FindType("{urn:m}widgetType")
	if !result.Found {
		t.Fatalf("expected widgetType to survive a resolved/marshal round trip, suggestions: %v", result.Suggestions)
	}
}

func TestFromFileCachedWritesPackageOnFirstLoad(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "xsd-pkg-cached-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	schema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:cache">
    <xs:complexType name="cachedType">
        <xs:sequence>
            <xs:element name="v" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
</xs:schema>`
	src := writeTestSchema(t, tempDir, "cache.xsd", schema)
	lxr := filepath.Join(tempDir, "cache.lxr")

	cfg := PackageConfig{XSDMode: ModeIncludeAll, ResolutionMode: ResolutionBare, SerializationFormat: FormatParse}
	repo, err := FromFileCached(src, lxr, cfg)
	if err != nil {
		t.Fatalf("FromFileCached (cold) failed: %v", err)
	}
	if repo.extractedDir != "" {
		repo.Close()
	}

	if _, err := os.Stat(lxr); err != nil {
		t.Fatalf("expected FromFileCached to write %s: %v", lxr, err)
	}

	cached, err := FromFileCached(src, lxr, cfg)
	if err != nil {
		t.Fatalf("FromFileCached (warm) failed: %v", err)
	}
	defer cached.Close()

	result := cached.FindType("{urn:cache}cachedType")
	if !result.Found {
		t.Fatalf("expected cachedType to be found via cached package load, suggestions: %v", result.Suggestions)
	}
}

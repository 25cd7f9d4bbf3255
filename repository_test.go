package xsd

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestSchema(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestSchemaRepositoryParsesImportsIntoDistinctSchemas(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "xsd-repo-test-*")
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

	schemas := repo.Schemas()
	if len(schemas) != 2 {
		t.Fatalf("expected 2 distinct schemas, got %d", len(schemas))
	}

	result := repo.FindType("{http://example.com/types}personType")
	if !result.Found {
		t.Fatalf("expected to find personType, suggestions: %v", result.Suggestions)
	}

	stats := repo.Statistics()
	if stats.Schemas != 2 {
		t.Errorf("expected Statistics().Schemas == 2, got %d", stats.Schemas)
	}
	if !stats.Resolved {
		t.Error("expected Statistics().Resolved to be true after Resolve()")
	}
}

func TestSchemaRepositoryFindTypeSuggestsOnMiss(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "xsd-repo-suggest-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	schema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:x">
    <xs:complexType name="addressType">
        <xs:sequence>
            <xs:element name="street" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
</xs:schema>`
	file := writeTestSchema(t, tempDir, "a.xsd", schema)

	repo := NewSchemaRepository(WithBaseDir(tempDir))
	if err := repo.Parse(ParseOptions{Files: []string{file}}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := repo.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	result := repo.FindType("{urn:x}addresType") // typo: missing 's'
	if result.Found {
		t.Fatal("expected lookup to miss on a typo'd name")
	}
	if len(result.Suggestions) == 0 {
		t.Fatal("expected at least one suggestion for a near-miss typo")
	}
	found := false
	for _, s := range result.Suggestions {
		if s == "addressType" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected suggestions to include addressType, got %v", result.Suggestions)
	}
}

func TestSchemaRepositoryDetectsCircularImport(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "xsd-repo-cycle-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	aSchema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:a">
    <xs:import namespace="urn:b" schemaLocation="b.xsd"/>
</xs:schema>`
	bSchema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:b">
    <xs:import namespace="urn:a" schemaLocation="a.xsd"/>
</xs:schema>`

	aFile := writeTestSchema(t, tempDir, "a.xsd", aSchema)
	writeTestSchema(t, tempDir, "b.xsd", bSchema)

	repo := NewSchemaRepository(WithBaseDir(tempDir))
	if err := repo.Parse(ParseOptions{Files: []string{aFile}}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := repo.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	errs := repo.Validate(false)
	foundCycle := false
	for _, e := range errs {
		if e != nil {
			foundCycle = true
		}
	}
	if !foundCycle {
		t.Error("expected circular import between a.xsd and b.xsd to surface as a validation error")
	}
}

func TestQualifyLocal(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "xsd-repo-qualify-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	schemaDoc := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:x="urn:x"
           targetNamespace="urn:x">
    <xs:complexType name="fooType"/>
</xs:schema>`
	file := writeTestSchema(t, tempDir, "x.xsd", schemaDoc)

	repo := NewSchemaRepository(WithBaseDir(tempDir))
	if err := repo.Parse(ParseOptions{Files: []string{file}}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := repo.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	schema := repo.Schemas()[0]
	if got := repo.QualifyLocal(schema, "fooType"); got != "x:fooType" {
		t.Errorf("QualifyLocal() = %q, want %q", got, "x:fooType")
	}
}

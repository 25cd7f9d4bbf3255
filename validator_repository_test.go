package xsd

import (
	"strings"
	"testing"

	"github.com/agentflare-ai/go-xmldom"
)

func TestRepositoryValidatorResolvesElementsAcrossImports(t *testing.T) {
	dir := t.TempDir()

	typesSchema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="http://example.com/types">
    <xs:element name="greeting" type="xs:string"/>
</xs:schema>`
	writeTestSchema(t, dir, "types.xsd", typesSchema)

	mainSchema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="http://example.com/main"
           xmlns:types="http://example.com/types">
    <xs:import namespace="http://example.com/types" schemaLocation="types.xsd"/>
    <xs:element name="envelope" type="xs:string"/>
</xs:schema>`
	mainFile := writeTestSchema(t, dir, "main.xsd", mainSchema)

	repo := NewSchemaRepository(WithBaseDir(dir))
	if err := repo.Parse(ParseOptions{Files: []string{mainFile}}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := repo.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	var entry *Schema
	for _, s := range repo.Schemas() {
		if s.TargetNamespace == "http://example.com/main" {
			entry = s
		}
	}
	if entry == nil {
		t.Fatal("expected to find the main schema among the repository's schemas")
	}

	// greeting is declared in types.xsd, not in main.xsd: a validator scoped
	// to entry alone cannot resolve it at the document root, but a
	// repository-backed one can.
	xml := `<types:greeting xmlns:types="http://example.com/types">hello</types:greeting>`
	doc, err := xmldom.Decode(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("failed to parse instance XML: %v", err)
	}

	validator := NewRepositoryValidator(repo, entry)
	violations := validator.Validate(doc)
	for _, v := range violations {
		t.Errorf("unexpected violation: %+v", v)
	}
}

func TestPlainValidatorMissesElementsDeclaredInAnImportedSchema(t *testing.T) {
	dir := t.TempDir()

	typesSchema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="http://example.com/types">
    <xs:element name="greeting" type="xs:string"/>
</xs:schema>`
	writeTestSchema(t, dir, "types2.xsd", typesSchema)

	mainSchema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="http://example.com/main2"
           xmlns:types="http://example.com/types">
    <xs:import namespace="http://example.com/types" schemaLocation="types2.xsd"/>
    <xs:element name="envelope" type="xs:string"/>
</xs:schema>`
	mainFile := writeTestSchema(t, dir, "main2.xsd", mainSchema)

	repo := NewSchemaRepository(WithBaseDir(dir))
	if err := repo.Parse(ParseOptions{Files: []string{mainFile}}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := repo.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	var entry *Schema
	for _, s := range repo.Schemas() {
		if s.TargetNamespace == "http://example.com/main2" {
			entry = s
		}
	}
	if entry == nil {
		t.Fatal("expected to find the main schema among the repository's schemas")
	}

	xml := `<types:greeting xmlns:types="http://example.com/types">hello</types:greeting>`
	doc, err := xmldom.Decode(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("failed to parse instance XML: %v", err)
	}

	validator := NewValidator(entry)
	violations := validator.Validate(doc)

	found := false
	for _, v := range violations {
		if v.Code == "cvc-elt.1" {
			found = true
		}
	}
	if !found {
		t.Error("expected a plain, non-repository validator to fail to resolve an element declared in an imported schema")
	}
}

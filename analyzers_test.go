package xsd

import (
	"os"
	"testing"

	"github.com/agentflare-ai/go-xsd/internal/depgraph"
)

func TestTypeHierarchyOfFindsAncestorsAndDescendants(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "xsd-hierarchy-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	schema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:h">
    <xs:complexType name="baseType">
        <xs:sequence>
            <xs:element name="id" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
    <xs:complexType name="midType">
        <xs:complexContent>
            <xs:extension base="baseType"/>
        </xs:complexContent>
    </xs:complexType>
    <xs:complexType name="leafType">
        <xs:complexContent>
            <xs:extension base="midType"/>
        </xs:complexContent>
    </xs:complexType>
</xs:schema>`
	file := writeTestSchema(t, tempDir, "h.xsd", schema)

	repo := NewSchemaRepository(WithBaseDir(tempDir))
	if err := repo.Parse(ParseOptions{Files: []string{file}}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := repo.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	h := TypeHierarchyOf(repo, QName{Namespace: "urn:h", Local: "leafType"})
	if len(h.Ancestors) != 2 {
		t.Fatalf("expected 2 ancestors, got %v", h.Ancestors)
	}
	if h.Ancestors[0].Local != "midType" || h.Ancestors[1].Local != "baseType" {
		t.Errorf("unexpected ancestor order: %v", h.Ancestors)
	}

	base := TypeHierarchyOf(repo, QName{Namespace: "urn:h", Local: "baseType"})
	if len(base.Descendants) != 1 || base.Descendants[0].Local != "midType" {
		t.Fatalf("expected baseType's direct descendant to be midType, got %v", base.Descendants)
	}
}

func TestDependencyGraphOfCollectsTransitiveReferences(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "xsd-depgraph-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	schema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:d">
    <xs:complexType name="addressType">
        <xs:sequence>
            <xs:element name="city" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
    <xs:complexType name="personType">
        <xs:sequence>
            <xs:element name="home" type="addressType"/>
            <xs:element name="work" type="addressType"/>
        </xs:sequence>
    </xs:complexType>
</xs:schema>`
	file := writeTestSchema(t, tempDir, "d.xsd", schema)

	repo := NewSchemaRepository(WithBaseDir(tempDir))
	if err := repo.Parse(ParseOptions{Files: []string{file}}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := repo.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	personType := QName{Namespace: "urn:d", Local: "personType"}
	g := DependencyGraphOf(repo, personType)
	deps := g.Dependencies(depgraph.Node(FormatClark(personType)))
	if len(deps) != 1 {
		t.Fatalf("expected personType to depend on exactly addressType once (deduped), got %v", deps)
	}

	reverse := ReverseDependents(repo, QName{Namespace: "urn:d", Local: "addressType"})
	if len(reverse) != 1 || reverse[0].Local != "personType" {
		t.Errorf("expected personType as sole reverse dependent of addressType, got %v", reverse)
	}
}

func TestAnalyzeCoverageReportsUnusedTypes(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "xsd-coverage-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	schema := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:c">
    <xs:complexType name="usedType">
        <xs:sequence>
            <xs:element name="v" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
    <xs:complexType name="orphanType">
        <xs:sequence>
            <xs:element name="v" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
</xs:schema>`
	file := writeTestSchema(t, tempDir, "c.xsd", schema)

	repo := NewSchemaRepository(WithBaseDir(tempDir))
	if err := repo.Parse(ParseOptions{Files: []string{file}}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := repo.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	report := AnalyzeCoverage(repo, []string{"{urn:c}usedType"})
	if report.Total != 2 {
		t.Fatalf("expected 2 total indexed types, got %d", report.Total)
	}
	if report.Used != 1 {
		t.Errorf("expected 1 used type, got %d", report.Used)
	}
	found := false
	for _, u := range report.Unused {
		if u == "{urn:c}orphanType" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected orphanType to be reported unused, got %v", report.Unused)
	}
	if report.CoveragePercent != 50 {
		t.Errorf("expected 50%% coverage, got %v", report.CoveragePercent)
	}
}

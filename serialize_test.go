package xsd

import (
	"strings"
	"testing"

	"github.com/agentflare-ai/go-xmldom"
)

func reparse(t *testing.T, data []byte) *Schema {
	t.Helper()
	decoder := xmldom.NewDecoderFromBytes(data)
	doc, err := decoder.Decode()
	if err != nil {
		t.Fatalf("failed to re-decode serialized XML: %v\n%s", err, data)
	}
	schema, err := Parse(doc)
	if err != nil {
		t.Fatalf("failed to re-parse serialized schema: %v\n%s", err, data)
	}
	return schema
}

func TestSerializeRoundTripsComplexTypeAndElement(t *testing.T) {
	dir := t.TempDir()
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:ser">
    <xs:complexType name="addressType">
        <xs:sequence>
            <xs:element name="street" type="xs:string"/>
            <xs:element name="city" type="xs:string" minOccurs="0"/>
        </xs:sequence>
    </xs:complexType>
    <xs:element name="root" type="addressType"/>
</xs:schema>`
	schema := parseSchemaString(t, dir, "ser.xsd", doc)

	data, err := Serialize(schema, nil)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !strings.Contains(string(data), `targetNamespace="urn:ser"`) {
		t.Fatalf("expected serialized output to carry the target namespace, got:\n%s", data)
	}

	reparsed := reparse(t, data)
	if reparsed.TargetNamespace != "urn:ser" {
		t.Errorf("reparsed TargetNamespace = %q", reparsed.TargetNamespace)
	}

	qname := QName{Namespace: "urn:ser", Local: "addressType"}
	ct, ok := reparsed.TypeDefs[qname].(*ComplexType)
	if !ok {
		t.Fatalf("expected addressType to survive the round trip as a complexType")
	}
	mg, ok := ct.Content.(*ModelGroup)
	if !ok || len(mg.Particles) != 2 {
		t.Fatalf("expected a 2-particle sequence, got %#v", ct.Content)
	}

	elQName := QName{Namespace: "urn:ser", Local: "root"}
	if _, ok := reparsed.ElementDecls[elQName]; !ok {
		t.Error("expected the root element declaration to survive the round trip")
	}
}

func TestSerializeRoundTripsSimpleTypeRestriction(t *testing.T) {
	dir := t.TempDir()
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:ser2">
    <xs:simpleType name="zipType">
        <xs:restriction base="xs:string"/>
    </xs:simpleType>
</xs:schema>`
	schema := parseSchemaString(t, dir, "ser2.xsd", doc)

	data, err := Serialize(schema, nil)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	reparsed := reparse(t, data)
	qname := QName{Namespace: "urn:ser2", Local: "zipType"}
	st, ok := reparsed.TypeDefs[qname].(*SimpleType)
	if !ok || st.Restriction == nil {
		t.Fatalf("expected zipType to survive as a simpleType restriction, got %#v", reparsed.TypeDefs[qname])
	}
	if st.Restriction.Base.Local != "string" {
		t.Errorf("Restriction.Base = %v", st.Restriction.Base)
	}
}

func TestSerializeNilSchemaErrors(t *testing.T) {
	if _, err := Serialize(nil, nil); err == nil {
		t.Fatal("expected an error serializing a nil schema")
	}
}

func TestSerializeSkipsAlreadyVisitedSchema(t *testing.T) {
	dir := t.TempDir()
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:visited">
    <xs:complexType name="widgetType"/>
</xs:schema>`
	schema := parseSchemaString(t, dir, "visited.xsd", doc)

	visited := map[*Schema]bool{schema: true}
	data, err := Serialize(schema, visited)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if data != nil {
		t.Errorf("expected nil output for an already-visited schema, got %q", data)
	}
}

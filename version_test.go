package xsd

import "testing"

func parseSchemaString(t *testing.T, dir, name, doc string) *Schema {
	t.Helper()
	file := writeTestSchema(t, dir, name, doc)
	repo := NewSchemaRepository(WithBaseDir(dir))
	if err := repo.Parse(ParseOptions{Files: []string{file}}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return repo.Schemas()[0]
}

func TestDetectVersionPlainSchemaIs10(t *testing.T) {
	dir := t.TempDir()
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:v10">
    <xs:complexType name="plainType">
        <xs:sequence>
            <xs:element name="v" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
</xs:schema>`
	schema := parseSchemaString(t, dir, "v10.xsd", doc)
	if got := DetectVersion(schema); got != XSDVersion10 {
		t.Errorf("DetectVersion() = %q, want %q", got, XSDVersion10)
	}
}

func TestDetectVersionAssertElementIs11(t *testing.T) {
	dir := t.TempDir()
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:v11a">
    <xs:complexType name="assertedType">
        <xs:sequence>
            <xs:element name="v" type="xs:string"/>
        </xs:sequence>
        <xs:assert test="true()"/>
    </xs:complexType>
</xs:schema>`
	schema := parseSchemaString(t, dir, "v11a.xsd", doc)
	if got := DetectVersion(schema); got != XSDVersion11 {
		t.Errorf("DetectVersion() = %q, want %q", got, XSDVersion11)
	}
}

func TestDetectVersionXPathDefaultNamespaceAttributeIs11(t *testing.T) {
	dir := t.TempDir()
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:v11b"
           xpathDefaultNamespace="##targetNamespace">
    <xs:complexType name="plainType">
        <xs:sequence>
            <xs:element name="v" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
</xs:schema>`
	schema := parseSchemaString(t, dir, "v11b.xsd", doc)
	if got := DetectVersion(schema); got != XSDVersion11 {
		t.Errorf("DetectVersion() = %q, want %q", got, XSDVersion11)
	}
}

func TestDetectVersionAtomicTypeReferenceIs11(t *testing.T) {
	dir := t.TempDir()
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:v11c">
    <xs:element name="d" type="xs:dayTimeDuration"/>
</xs:schema>`
	schema := parseSchemaString(t, dir, "v11c.xsd", doc)
	if got := DetectVersion(schema); got != XSDVersion11 {
		t.Errorf("DetectVersion() = %q, want %q", got, XSDVersion11)
	}
}

func TestDetectVersionNilSchemaIs10(t *testing.T) {
	if got := DetectVersion(nil); got != XSDVersion10 {
		t.Errorf("DetectVersion(nil) = %q, want %q", got, XSDVersion10)
	}
}

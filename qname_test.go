package xsd

import "testing"

func TestParseQNameClarkNotation(t *testing.T) {
	pq, err := ParseQName("{urn:x}fooType", nil)
	if err != nil {
		t.Fatalf("ParseQName failed: %v", err)
	}
	if pq.Namespace != "urn:x" || pq.Local != "fooType" {
		t.Errorf("got %+v", pq.QName)
	}
	if pq.Prefix != "" {
		t.Errorf("expected empty prefix for Clark notation, got %q", pq.Prefix)
	}
}

func TestParseQNamePrefixed(t *testing.T) {
	reg := NewNamespaceRegistry()
	reg.Register("x", "urn:x")

	pq, err := ParseQName("x:fooType", reg)
	if err != nil {
		t.Fatalf("ParseQName failed: %v", err)
	}
	if pq.Namespace != "urn:x" || pq.Local != "fooType" || pq.Prefix != "x" {
		t.Errorf("got %+v prefix=%q", pq.QName, pq.Prefix)
	}
}

func TestParseQNameUnboundPrefixErrors(t *testing.T) {
	reg := NewNamespaceRegistry()
	if _, err := ParseQName("y:fooType", reg); err == nil {
		t.Fatal("expected error for unbound prefix")
	}
}

func TestParseQNameBareUsesDefaultNamespace(t *testing.T) {
	reg := NewNamespaceRegistry()
	reg.SetDefaultNamespace("urn:default")

	pq, err := ParseQName("bareName", reg)
	if err != nil {
		t.Fatalf("ParseQName failed: %v", err)
	}
	if pq.Namespace != "urn:default" || pq.Local != "bareName" {
		t.Errorf("got %+v", pq.QName)
	}
}

func TestParseQNameEmptyErrors(t *testing.T) {
	if _, err := ParseQName("", nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestFormatClarkAndPrefixed(t *testing.T) {
	q := QName{Namespace: "urn:x", Local: "fooType"}
	if got := FormatClark(q); got != "{urn:x}fooType" {
		t.Errorf("FormatClark() = %q", got)
	}

	reg := NewNamespaceRegistry()
	reg.Register("x", "urn:x")
	if got := FormatPrefixed(q, reg); got != "x:fooType" {
		t.Errorf("FormatPrefixed() = %q", got)
	}

	unregistered := QName{Namespace: "urn:y", Local: "barType"}
	if got := FormatPrefixed(unregistered, reg); got != "{urn:y}barType" {
		t.Errorf("FormatPrefixed() fallback = %q", got)
	}

	local := QName{Local: "bare"}
	if got := FormatClark(local); got != "bare" {
		t.Errorf("FormatClark() for unqualified name = %q", got)
	}
}

package xsd

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigurationErrorUnwrapAndMessage(t *testing.T) {
	inner := errors.New("boom")
	err := &ConfigurationError{Path: "config.yaml", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to see through ConfigurationError to its cause")
	}
	if got := err.Error(); got == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestLocationResolutionErrorUnwrap(t *testing.T) {
	inner := errors.New("file not found")
	err := &LocationResolutionError{Location: "types.xsd", BaseURI: "/schemas", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to see through LocationResolutionError to its cause")
	}
}

func TestReferenceNotFoundErrorMessageIncludesSuggestions(t *testing.T) {
	err := &ReferenceNotFoundError{
		Kind:        CategoryComplexType,
		QName:       QName{Namespace: "urn:x", Local: "addresType"},
		From:        "main.xsd",
		Suggestions: []string{"addressType"},
	}
	msg := err.Error()
	if !containsAll(msg, "addresType", "addressType", "main.xsd") {
		t.Errorf("error message missing expected details: %q", msg)
	}
}

func TestReferenceNotFoundErrorMessageWithoutSuggestions(t *testing.T) {
	err := &ReferenceNotFoundError{Kind: CategorySimpleType, QName: QName{Local: "unknownType"}}
	msg := err.Error()
	if !containsAll(msg, "unknownType", "not found") {
		t.Errorf("error message missing expected details: %q", msg)
	}
}

func TestPackageErrorUnwrapAndAs(t *testing.T) {
	inner := errors.New("zip: not a valid zip file")
	err := &PackageError{Op: "read", Path: "bundle.lxr", Err: inner}

	var target *PackageError
	if !errors.As(err, &target) {
		t.Fatal("expected errors.As to match *PackageError")
	}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to see through PackageError to its cause")
	}
}

func TestReferenceNotFoundErrorWarningSeverityPrefixesMessage(t *testing.T) {
	err := &ReferenceNotFoundError{
		Kind:     "import",
		QName:    QName{Namespace: "urn:never-declared"},
		From:     "main.xsd",
		Severity: SeverityWarning,
	}
	if !containsAll(err.Error(), "warning:", "urn:never-declared") {
		t.Errorf("expected a warning-severity message to say so, got %q", err.Error())
	}
}

func TestDuplicateDefinitionErrorMessage(t *testing.T) {
	err := &DuplicateDefinitionError{
		Kind:      CategoryComplexType,
		QName:     QName{Namespace: "urn:dup", Local: "widgetType"},
		First:     "a.xsd",
		Duplicate: "b.xsd",
	}
	if !containsAll(err.Error(), "widgetType", "a.xsd", "b.xsd") {
		t.Errorf("error message missing expected details: %q", err.Error())
	}
}

func TestIOErrorUnwrap(t *testing.T) {
	inner := errors.New("permission denied")
	err := &IOError{Location: "/etc/shadow.xsd", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to see through IOError to its cause")
	}
}

func containsAll(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

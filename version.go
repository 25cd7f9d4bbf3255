package xsd

import (
	"strings"

	"github.com/agentflare-ai/go-xmldom"
)

// XSDVersion identifies which revision of the XML Schema language a schema
// document uses.
type XSDVersion string

const (
	XSDVersion10 XSDVersion = "1.0"
	XSDVersion11 XSDVersion = "1.1"
)

// xsd11Elements are element local names that exist only in XSD 1.1.
var xsd11Elements = map[string]bool{
	"assert":             true,
	"assertion":          true,
	"alternative":        true,
	"openContent":        true,
	"defaultOpenContent": true,
}

// xsd11Attributes are attribute local names that exist only in XSD 1.1.
var xsd11Attributes = map[string]bool{
	"defaultAttributes":     true,
	"xpathDefaultNamespace": true,
}

// xsd11AtomicTypes are built-in simple type names introduced in XSD 1.1.
var xsd11AtomicTypes = map[string]bool{
	"anyAtomicType":     true,
	"dateTimeStamp":     true,
	"yearMonthDuration": true,
	"dayTimeDuration":   true,
}

// DetectVersion scans schema's underlying document for any construct
// exclusive to XSD 1.1, returning XSDVersion11 if one is found and
// XSDVersion10 otherwise. It does not recurse into imported/included
// schemas; callers that need a repository-wide verdict should call it on
// every schema in SchemaRepository.Schemas() and take the maximum.
func DetectVersion(schema *Schema) XSDVersion {
	if schema == nil || schema.doc == nil {
		return XSDVersion10
	}
	root := schema.doc.DocumentElement()
	if root == nil {
		return XSDVersion10
	}
	if scanFor11Features(root) {
		return XSDVersion11
	}
	return XSDVersion10
}

func scanFor11Features(elem xmldom.Element) bool {
	if elem == nil {
		return false
	}
	if string(elem.NamespaceURI()) == XSDNamespace && xsd11Elements[string(elem.LocalName())] {
		return true
	}

	attrs := elem.Attributes()
	for i := uint(0); i < attrs.Length(); i++ {
		node := attrs.Item(i)
		if node == nil {
			continue
		}
		attr, ok := node.(xmldom.Attr)
		if !ok {
			continue
		}
		if xsd11Attributes[string(attr.LocalName())] {
			return true
		}
		if referencesXSD11AtomicType(string(attr.NodeValue())) {
			return true
		}
	}

	children := elem.Children()
	for i := uint(0); i < children.Length(); i++ {
		if scanFor11Features(children.Item(i)) {
			return true
		}
	}
	return false
}

// referencesXSD11AtomicType checks a lexical QName value (e.g. "xs:dateTimeStamp"
// or "dateTimeStamp") for an XSD 1.1-only atomic type name.
func referencesXSD11AtomicType(value string) bool {
	local := value
	if idx := strings.IndexByte(value, ':'); idx >= 0 {
		local = value[idx+1:]
	}
	return xsd11AtomicTypes[local]
}

package xsd

import (
	"fmt"
	"strings"
)

// ParsedQName is a qualified name resolved against a NamespaceRegistry,
// retaining the original lexical prefix (if any) for diagnostics.
type ParsedQName struct {
	QName
	Prefix string // empty for Clark notation or an unprefixed name
}

// ParseQName resolves a lexical QName in one of three notations:
//
//   - Clark notation: "{namespace}local"
//   - prefixed: "prefix:local", looked up against reg
//   - bare: "local", resolved against reg's default namespace
//
// An empty input, or a prefix with no registered namespace, is an error.
func ParseQName(lexical string, reg *NamespaceRegistry) (ParsedQName, error) {
	if lexical == "" {
		return ParsedQName{}, fmt.Errorf("xsd: empty qualified name")
	}

	if strings.HasPrefix(lexical, "{") {
		end := strings.IndexByte(lexical, '}')
		if end < 0 {
			return ParsedQName{}, fmt.Errorf("xsd: malformed Clark notation %q: missing closing brace", lexical)
		}
		local := lexical[end+1:]
		if local == "" {
			return ParsedQName{}, fmt.Errorf("xsd: malformed Clark notation %q: empty local name", lexical)
		}
		return ParsedQName{QName: QName{Namespace: lexical[1:end], Local: local}}, nil
	}

	if idx := strings.IndexByte(lexical, ':'); idx >= 0 {
		prefix, local := lexical[:idx], lexical[idx+1:]
		if local == "" {
			return ParsedQName{}, fmt.Errorf("xsd: malformed qualified name %q: empty local name", lexical)
		}
		if reg == nil {
			return ParsedQName{}, fmt.Errorf("xsd: cannot resolve prefix %q: no namespace registry", prefix)
		}
		uri, ok := reg.URI(prefix)
		if !ok {
			return ParsedQName{}, fmt.Errorf("xsd: unbound prefix %q in qualified name %q", prefix, lexical)
		}
		return ParsedQName{QName: QName{Namespace: uri, Local: local}, Prefix: prefix}, nil
	}

	ns := ""
	if reg != nil {
		ns = reg.DefaultNamespace()
	}
	return ParsedQName{QName: QName{Namespace: ns, Local: lexical}}, nil
}

// MustParseQName is ParseQName for callers that already know the input is
// well-formed, such as tests exercising builtin XSD names.
func MustParseQName(lexical string, reg *NamespaceRegistry) ParsedQName {
	pq, err := ParseQName(lexical, reg)
	if err != nil {
		panic(err)
	}
	return pq
}

// FormatClark renders q in Clark notation, "{namespace}local", omitting the
// braces when q has no namespace.
func FormatClark(q QName) string {
	if q.Namespace == "" {
		return q.Local
	}
	return "{" + q.Namespace + "}" + q.Local
}

// FormatPrefixed renders q using reg's primary prefix for its namespace,
// falling back to Clark notation when no prefix is registered.
func FormatPrefixed(q QName, reg *NamespaceRegistry) string {
	if q.Namespace == "" {
		return q.Local
	}
	if reg != nil {
		if prefix, ok := reg.PrimaryPrefix(q.Namespace); ok {
			return prefix + ":" + q.Local
		}
	}
	return FormatClark(q)
}

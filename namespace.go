package xsd

import (
	"sort"
	"sync"

	"github.com/agentflare-ai/go-xmldom"
)

// NamespaceRegistry is a bidirectional prefix<->URI map with a default
// namespace, shared by the qualified-name parser and the SchemaRepository.
type NamespaceRegistry struct {
	mu               sync.RWMutex
	prefixToURI      map[string]string
	uriToPrefixes    map[string][]string // first entry is the primary prefix
	defaultNamespace string
}

// NewNamespaceRegistry creates an empty registry.
func NewNamespaceRegistry() *NamespaceRegistry {
	return &NamespaceRegistry{
		prefixToURI:   make(map[string]string),
		uriToPrefixes: make(map[string][]string),
	}
}

// Register associates prefix with uri. It is idempotent: registering the
// same (prefix, uri) pair twice has no additional effect, and registering a
// prefix that already maps to uri is a no-op.
func (r *NamespaceRegistry) Register(prefix, uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.prefixToURI[prefix]; ok && existing == uri {
		return
	}
	r.prefixToURI[prefix] = uri

	for _, p := range r.uriToPrefixes[uri] {
		if p == prefix {
			return
		}
	}
	r.uriToPrefixes[uri] = append(r.uriToPrefixes[uri], prefix)
}

// SetDefaultNamespace sets the namespace that unprefixed names resolve to.
func (r *NamespaceRegistry) SetDefaultNamespace(uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultNamespace = uri
}

// DefaultNamespace returns the registry's default namespace.
func (r *NamespaceRegistry) DefaultNamespace() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultNamespace
}

// URI returns the URI registered for prefix, if any.
func (r *NamespaceRegistry) URI(prefix string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uri, ok := r.prefixToURI[prefix]
	return uri, ok
}

// PrimaryPrefix returns the first prefix registered for uri.
func (r *NamespaceRegistry) PrimaryPrefix(uri string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefixes := r.uriToPrefixes[uri]
	if len(prefixes) == 0 {
		return "", false
	}
	return prefixes[0], true
}

// Prefixes returns every prefix registered for uri.
func (r *NamespaceRegistry) Prefixes(uri string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.uriToPrefixes[uri]))
	copy(out, r.uriToPrefixes[uri])
	return out
}

// AllMappings returns every registered primary prefix/uri pair, sorted by
// uri, for serialization into package metadata.
func (r *NamespaceRegistry) AllMappings() []NamespaceMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NamespaceMapping, 0, len(r.uriToPrefixes))
	for uri, prefixes := range r.uriToPrefixes {
		if len(prefixes) == 0 {
			continue
		}
		out = append(out, NamespaceMapping{Prefix: prefixes[0], URI: uri})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// ExtractFromSchemas scans each schema's targetNamespace and fills in a
// primary prefix for any namespace the caller did not already register,
// using the schema's own xmlns declarations when available.
func (r *NamespaceRegistry) ExtractFromSchemas(schemas []*Schema) {
	for _, s := range schemas {
		if s == nil || !s.HasTargetNamespace() {
			continue
		}
		if _, ok := r.PrimaryPrefix(s.TargetNamespace); ok {
			continue
		}
		if prefix := primaryPrefixFromDoc(s); prefix != "" {
			r.Register(prefix, s.TargetNamespace)
		}
	}
}

// primaryPrefixFromDoc inspects a schema's underlying document for an
// xmlns:prefix declaration whose value equals the schema's target namespace.
func primaryPrefixFromDoc(s *Schema) string {
	if s.doc == nil {
		return ""
	}
	root := s.doc.DocumentElement()
	if root == nil {
		return ""
	}
	attrs := root.Attributes()
	for i := uint(0); i < attrs.Length(); i++ {
		node := attrs.Item(i)
		if node == nil {
			continue
		}
		attr, ok := node.(xmldom.Attr)
		if !ok {
			continue
		}
		name := string(attr.NodeName())
		if name == "xmlns" {
			continue
		}
		if len(name) > 6 && name[:6] == "xmlns:" && string(attr.NodeValue()) == s.TargetNamespace {
			return name[6:]
		}
	}
	return ""
}

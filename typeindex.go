package xsd

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// TypeCategory classifies an entry in a TypeIndex.
type TypeCategory string

const (
	CategorySimpleType     TypeCategory = "simpleType"
	CategoryComplexType    TypeCategory = "complexType"
	CategoryElement        TypeCategory = "element"
	CategoryAttribute      TypeCategory = "attribute"
	CategoryGroup          TypeCategory = "group"
	CategoryAttributeGroup TypeCategory = "attributeGroup"
	CategoryNotation       TypeCategory = "notation"
)

// TypeIndexEntry is one indexed component, along with the schema it was
// declared in.
type TypeIndexEntry struct {
	QName    QName
	Category TypeCategory
	Schema   *Schema
	Value    any // *SimpleType, *ComplexType, *ElementDecl, *AttributeDecl, *ModelGroup, *AttributeGroup, or *Notation
}

// TypeResolutionResult is the outcome of a FindByNamespaceAndName lookup: on
// a miss, Suggestions holds up to three near-name candidates.
type TypeResolutionResult struct {
	Entry       *TypeIndexEntry
	Found       bool
	Suggestions []string
}

// maxSuggestions bounds the candidate list returned on a failed lookup.
const maxSuggestions = 3

// suggestionDistanceThreshold is the maximum edit distance considered a
// plausible typo.
const suggestionDistanceThreshold = 2

// TypeIndex is a namespace+name index over every named component across a
// set of schemas, built once and queried many times by the repository and
// the reference-closure validator.
type TypeIndex struct {
	mu      sync.RWMutex
	entries map[TypeCategory]map[QName]*TypeIndexEntry

	// duplicates records every rejected second registration for a
	// (category, qname) pair already occupied; the first registration
	// always wins. Surfaced by ValidateClosure.
	duplicates []*DuplicateDefinitionError
}

// NewTypeIndex creates an empty index.
func NewTypeIndex() *TypeIndex {
	return &TypeIndex{
		entries: map[TypeCategory]map[QName]*TypeIndexEntry{
			CategorySimpleType:     make(map[QName]*TypeIndexEntry),
			CategoryComplexType:    make(map[QName]*TypeIndexEntry),
			CategoryElement:        make(map[QName]*TypeIndexEntry),
			CategoryAttribute:      make(map[QName]*TypeIndexEntry),
			CategoryGroup:          make(map[QName]*TypeIndexEntry),
			CategoryAttributeGroup: make(map[QName]*TypeIndexEntry),
			CategoryNotation:       make(map[QName]*TypeIndexEntry),
		},
	}
}

// Add indexes schema's own top-level components. It does not recurse into
// schema.ImportedSchemas; the caller (typically a SchemaRepository) is
// expected to call Add once per distinct schema it holds.
func (idx *TypeIndex) Add(schema *Schema) {
	if schema == nil {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for qname, t := range schema.TypeDefs {
		switch t.(type) {
		case *SimpleType:
			idx.put(CategorySimpleType, qname, schema, t)
		case *ComplexType:
			idx.put(CategoryComplexType, qname, schema, t)
		}
	}
	for qname, e := range schema.ElementDecls {
		idx.put(CategoryElement, qname, schema, e)
	}
	for qname, g := range schema.Groups {
		idx.put(CategoryGroup, qname, schema, g)
	}
	for qname, ag := range schema.AttributeGroups {
		idx.put(CategoryAttributeGroup, qname, schema, ag)
	}
	for qname, n := range schema.Notations {
		idx.put(CategoryNotation, qname, schema, n)
	}
}

// put registers value under (cat, qname). The first registration wins: a
// second attempt at an already-occupied key is rejected and recorded as a
// duplicate-definition issue rather than overwriting the original entry.
func (idx *TypeIndex) put(cat TypeCategory, qname QName, schema *Schema, value any) {
	bucket := idx.entries[cat]
	if existing, ok := bucket[qname]; ok {
		idx.duplicates = append(idx.duplicates, &DuplicateDefinitionError{
			Kind:      cat,
			QName:     qname,
			First:     existing.Schema.Location,
			Duplicate: schema.Location,
		})
		return
	}
	bucket[qname] = &TypeIndexEntry{QName: qname, Category: cat, Schema: schema, Value: value}
}

// Duplicates returns every duplicate-definition issue recorded while
// building the index, in registration order. The type index itself keeps
// only the first entry for each (category, qname) pair; ValidateClosure
// surfaces the rejected duplicates from here.
func (idx *TypeIndex) Duplicates() []*DuplicateDefinitionError {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*DuplicateDefinitionError, len(idx.duplicates))
	copy(out, idx.duplicates)
	return out
}

// FindByNamespaceAndName looks up a component of the given category. On a
// miss it scans every indexed name in that category within the same
// namespace and returns up to maxSuggestions near matches by edit distance.
func (idx *TypeIndex) FindByNamespaceAndName(cat TypeCategory, namespace, name string) TypeResolutionResult {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	qname := QName{Namespace: namespace, Local: name}
	bucket := idx.entries[cat]
	if entry, ok := bucket[qname]; ok {
		return TypeResolutionResult{Entry: entry, Found: true}
	}

	type candidate struct {
		name     string
		distance int
	}
	var candidates []candidate
	nameLower := strings.ToLower(name)
	for q := range bucket {
		if q.Namespace != namespace {
			continue
		}
		d := levenshteinDistance(nameLower, strings.ToLower(q.Local))
		if d <= suggestionDistanceThreshold {
			candidates = append(candidates, candidate{name: q.Local, distance: d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].name < candidates[j].name
	})

	var suggestions []string
	for i := 0; i < len(candidates) && i < maxSuggestions; i++ {
		suggestions = append(suggestions, candidates[i].name)
	}
	return TypeResolutionResult{Found: false, Suggestions: suggestions}
}

// All returns every entry in cat, sorted by qualified name for deterministic
// output (statistics, package metadata, CLI listings).
func (idx *TypeIndex) All(cat TypeCategory) []*TypeIndexEntry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entries := make([]*TypeIndexEntry, 0, len(idx.entries[cat]))
	for _, e := range idx.entries[cat] {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].QName.Namespace != entries[j].QName.Namespace {
			return entries[i].QName.Namespace < entries[j].QName.Namespace
		}
		return entries[i].QName.Local < entries[j].QName.Local
	})
	return entries
}

// Count returns the number of indexed entries across every category.
func (idx *TypeIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	total := 0
	for _, bucket := range idx.entries {
		total += len(bucket)
	}
	return total
}

// describeMiss renders a human-readable diagnostic for a failed lookup,
// used by the reference-closure validator when it reports broken references.
func describeMiss(cat TypeCategory, qname QName, result TypeResolutionResult) string {
	if len(result.Suggestions) == 0 {
		return fmt.Sprintf("%s %s not found", cat, FormatClark(qname))
	}
	return fmt.Sprintf("%s %s not found; did you mean %s?", cat, FormatClark(qname), strings.Join(result.Suggestions, ", "))
}

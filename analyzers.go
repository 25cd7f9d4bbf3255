package xsd

import (
	"sort"

	"github.com/agentflare-ai/go-xsd/internal/depgraph"
)

// maxHierarchyDepth bounds ancestor-chain traversal against ill-formed or
// maliciously circular schemas.
const maxHierarchyDepth = 64

// TypeHierarchy describes a type's position in the base-type lattice: the
// chain of ancestors it derives from, and every type the index reports as
// deriving from it.
type TypeHierarchy struct {
	QName       QName
	Ancestors   []QName
	Descendants []QName
}

// TypeHierarchyOf walks qname's base-type chain via complexContent/
// simpleContent extension or restriction (or a simpleType restriction base)
// up to maxHierarchyDepth, then linearly scans the type index for every
// complex or simple type whose declared base resolves to qname.
func TypeHierarchyOf(r *SchemaRepository, qname QName) TypeHierarchy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := TypeHierarchy{QName: qname}
	visited := map[QName]bool{qname: true}
	cur := qname
	for depth := 0; depth < maxHierarchyDepth; depth++ {
		base, ok := r.baseOfLocked(cur)
		if !ok || isBuiltinRef(base) || visited[base] {
			break
		}
		h.Ancestors = append(h.Ancestors, base)
		visited[base] = true
		cur = base
	}

	for _, cat := range []TypeCategory{CategoryComplexType, CategorySimpleType} {
		for _, entry := range r.types.All(cat) {
			if entry.QName == qname {
				continue
			}
			if base, ok := baseOfValue(entry.Value); ok && base == qname {
				h.Descendants = append(h.Descendants, entry.QName)
			}
		}
	}
	sort.Slice(h.Descendants, func(i, j int) bool {
		if h.Descendants[i].Namespace != h.Descendants[j].Namespace {
			return h.Descendants[i].Namespace < h.Descendants[j].Namespace
		}
		return h.Descendants[i].Local < h.Descendants[j].Local
	})
	return h
}

// baseOfLocked resolves qname to its declared Type and extracts its base, if
// any. r.mu must already be held (at least for reading).
func (r *SchemaRepository) baseOfLocked(qname QName) (QName, bool) {
	for _, cat := range []TypeCategory{CategoryComplexType, CategorySimpleType} {
		result := r.types.FindByNamespaceAndName(cat, qname.Namespace, qname.Local)
		if result.Found {
			return baseOfValue(result.Entry.Value)
		}
	}
	return QName{}, false
}

// baseOfValue extracts the declared base QName from a *ComplexType or
// *SimpleType's Value, as indexed by TypeIndex.
func baseOfValue(value any) (QName, bool) {
	switch t := value.(type) {
	case *ComplexType:
		base := contentBase(QName{}, nil, nil)
		switch c := t.Content.(type) {
		case *ComplexContent:
			base = contentBase(c.Base, c.Extension, c.Restriction)
		case *SimpleContent:
			base = contentBase(c.Base, c.Extension, c.Restriction)
		}
		if base != (QName{}) {
			return base, true
		}
	case *SimpleType:
		if t.Restriction != nil && t.Restriction.Base != (QName{}) {
			return t.Restriction.Base, true
		}
		if t.Base != (QName{}) {
			return t.Base, true
		}
	}
	return QName{}, false
}

// maxDependencyDepth bounds the reference-collection walk performed by
// DependencyGraphOf.
const maxDependencyDepth = 64

// DependencyGraphOf builds a depgraph.Graph rooted at qname, recursively
// collecting every type, element, attribute, and group reference it touches
// (element/attribute types, complex/simple type bases, particle element and
// group refs, attribute refs) up to maxDependencyDepth. Nodes are keyed by
// Clark-notation qualified name.
func DependencyGraphOf(r *SchemaRepository, qname QName) *depgraph.Graph {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g := &depgraph.Graph{}
	seen := make(map[QName]bool)
	var walk func(q QName, depth int)
	walk = func(q QName, depth int) {
		if depth > maxDependencyDepth || seen[q] || isBuiltinRef(q) {
			return
		}
		seen[q] = true

		for _, cat := range []TypeCategory{CategoryComplexType, CategorySimpleType, CategoryElement, CategoryGroup, CategoryAttributeGroup} {
			result := r.types.FindByNamespaceAndName(cat, q.Namespace, q.Local)
			if !result.Found {
				continue
			}
			for _, dep := range referencesOf(result.Entry.Value) {
				g.Add(depgraph.Node(FormatClark(q)), depgraph.Node(FormatClark(dep)))
				walk(dep, depth+1)
			}
			break
		}
	}
	walk(qname, 0)
	return g
}

// referencesOf extracts every directly-referenced QName from an indexed
// component's Value: base types, attribute types, particle element/group
// refs, and attribute group refs.
func referencesOf(value any) []QName {
	var out []QName
	add := func(q QName) {
		if q != (QName{}) {
			out = append(out, q)
		}
	}

	switch t := value.(type) {
	case *ComplexType:
		if base, ok := baseOfValue(t); ok {
			add(base)
		}
		for _, attr := range t.Attributes {
			if st, ok := attr.Type.(*SimpleType); ok {
				add(st.QName)
			}
		}
		for _, ag := range t.AttributeGroup {
			add(ag)
		}
		if gr, ok := t.Content.(*GroupRef); ok {
			add(gr.Ref)
		}
		out = append(out, particleRefs(contentParticles(t.Content))...)
	case *SimpleType:
		if base, ok := baseOfValue(t); ok {
			add(base)
		}
		if t.List != nil {
			add(t.List.ItemType)
		}
		for _, m := range t.Union.members() {
			add(m)
		}
	case *ElementDecl:
		if st, ok := t.Type.(*SimpleType); ok {
			add(st.QName)
		} else if ct, ok := t.Type.(*ComplexType); ok {
			add(ct.QName)
		}
		if t.SubstitutionGroup != (QName{}) {
			add(t.SubstitutionGroup)
		}
	case *ModelGroup:
		out = append(out, particleRefs(t.Particles)...)
	case *AttributeGroup:
		for _, attr := range t.Attributes {
			if st, ok := attr.Type.(*SimpleType); ok {
				add(st.QName)
			}
		}
	}
	return out
}

// contentParticles extracts the particle list from a ComplexType's content
// model, if it is a group directly (sequence/choice/all) rather than a
// simple/complex content derivation.
func contentParticles(content Content) []Particle {
	if mg, ok := content.(*ModelGroup); ok {
		return mg.Particles
	}
	return nil
}

// particleRefs recursively collects element and group references out of a
// particle list, descending into nested model groups.
func particleRefs(particles []Particle) []QName {
	var out []QName
	for _, p := range particles {
		switch particle := p.(type) {
		case *ElementRef:
			out = append(out, particle.Ref)
		case *GroupRef:
			out = append(out, particle.Ref)
		case *ModelGroup:
			out = append(out, particleRefs(particle.Particles)...)
		case *ElementDecl:
			if st, ok := particle.Type.(*SimpleType); ok {
				out = append(out, st.QName)
			} else if ct, ok := particle.Type.(*ComplexType); ok {
				out = append(out, ct.QName)
			}
		}
	}
	return out
}

// ReverseDependents scans the type index for every component whose direct
// references include qname.
func ReverseDependents(r *SchemaRepository, qname QName) []QName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []QName
	for _, cat := range []TypeCategory{CategoryComplexType, CategorySimpleType, CategoryElement, CategoryGroup, CategoryAttributeGroup} {
		for _, entry := range r.types.All(cat) {
			for _, ref := range referencesOf(entry.Value) {
				if ref == qname {
					out = append(out, entry.QName)
					break
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Local < out[j].Local
	})
	return out
}

// CoverageReport summarizes how much of a repository's indexed vocabulary is
// reachable from a set of entry-point type names.
type CoverageReport struct {
	Total           int
	Used            int
	Unused          []string
	CoveragePercent float64
	ByNamespace     map[string]int
}

// AnalyzeCoverage computes the transitive closure of every type reachable
// from entryPoints (Clark-notation or plain local names resolved against the
// repository's namespaces) and reports how much of the indexed type universe
// that closure covers.
func AnalyzeCoverage(r *SchemaRepository, entryPoints []string) CoverageReport {
	r.mu.RLock()
	allEntries := append(r.types.All(CategoryComplexType), r.types.All(CategorySimpleType)...)
	r.mu.RUnlock()

	reachable := make(map[QName]bool)
	for _, ep := range entryPoints {
		result := r.FindType(ep)
		if !result.Found {
			continue
		}
		g := DependencyGraphOf(r, result.Entry.QName)
		reachable[result.Entry.QName] = true
		for _, n := range g.Targets() {
			reachable[clarkToQName(string(n))] = true
			for _, dep := range g.Dependencies(n) {
				reachable[clarkToQName(string(dep))] = true
			}
		}
	}

	report := CoverageReport{Total: len(allEntries), ByNamespace: make(map[string]int)}
	for _, e := range allEntries {
		if reachable[e.QName] {
			report.Used++
			report.ByNamespace[e.QName.Namespace]++
		} else {
			report.Unused = append(report.Unused, FormatClark(e.QName))
		}
	}
	sort.Strings(report.Unused)
	if report.Total > 0 {
		report.CoveragePercent = float64(report.Used) / float64(report.Total) * 100
	}
	return report
}

// clarkToQName parses a Clark-notation "{uri}local" or bare "local" string
// back into a QName, for translating depgraph.Node keys.
func clarkToQName(clark string) QName {
	if len(clark) == 0 || clark[0] != '{' {
		return QName{Local: clark}
	}
	for i := 1; i < len(clark); i++ {
		if clark[i] == '}' {
			return QName{Namespace: clark[1:i], Local: clark[i+1:]}
		}
	}
	return QName{Local: clark}
}

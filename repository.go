package xsd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agentflare-ai/go-xmldom"
	"github.com/agentflare-ai/go-xsd/internal/depgraph"
)

// httpFetchTimeout bounds remote schemaLocation fetches.
const httpFetchTimeout = 30 * time.Second

// SchemaLocationMapping rewrites a logical schemaLocation to a concrete one,
// either by exact match or, when Pattern is set, by regexp substitution
// (Go's regexp numbered-capture syntax, e.g. "vendor/gml/$1").
type SchemaLocationMapping struct {
	From    string
	To      string
	Pattern bool

	regex *regexp.Regexp
}

// NamespaceMapping pre-registers a prefix for a namespace URI.
type NamespaceMapping struct {
	Prefix string
	URI    string
}

// ParseOptions configures a SchemaRepository.Parse call.
type ParseOptions struct {
	Files                  []string
	SchemaLocationMappings []SchemaLocationMapping
	Verbose                bool
}

// RepositoryStatistics summarizes a resolved SchemaRepository.
type RepositoryStatistics struct {
	Schemas          int
	Namespaces       int
	CountsByCategory map[TypeCategory]int
	Resolved         bool
	Warnings         int
}

// SchemaRepository aggregates every schema reached while parsing a set of
// entry-point XSD documents, keeping each parsed Schema distinct rather than
// merging them into one combined document. Unlike the package-level
// GlobalCache, its processed-schemas map and in-progress set live on the
// instance so independent repositories never share state.
type SchemaRepository struct {
	mu sync.RWMutex

	BaseDir    string
	httpClient *http.Client
	logger     *slog.Logger

	locationMappings []SchemaLocationMapping

	processedSchemas map[string]*Schema
	inProgress       map[string]bool
	entryLocations   []string
	warnings         []string

	// locationEdges records every import/include/redefine target location
	// reached while parsing, including ones cut short by the in-progress
	// cycle guard. Unlike processedSchemas/ImportedSchemas it never loses a
	// back-edge, so circular-import detection in Validate sees the full
	// graph.
	locationEdges map[string][]string

	namespaces *NamespaceRegistry
	types      *TypeIndex
	resolved   bool

	// XSDMode governs the severity ValidateClosure assigns to missing
	// import/include/redefine targets: ModeAllowExternal downgrades them
	// to warnings, the zero value (same as ModeIncludeAll) keeps them as
	// errors. FromPackage sets this from the package's declared xsd_mode.
	XSDMode XSDMode

	extractedDir string // set by FromPackage; removed by Close
}

// RepositoryOption configures a SchemaRepository at construction time.
type RepositoryOption func(*SchemaRepository)

// WithBaseDir sets the directory relative schemaLocations are resolved
// against.
func WithBaseDir(dir string) RepositoryOption {
	return func(r *SchemaRepository) { r.BaseDir = dir }
}

// WithHTTPClient overrides the client used for http(s) schemaLocations.
func WithHTTPClient(client *http.Client) RepositoryOption {
	return func(r *SchemaRepository) { r.httpClient = client }
}

// WithLogger overrides the structured logger, defaulting to slog.Default().
func WithLogger(logger *slog.Logger) RepositoryOption {
	return func(r *SchemaRepository) { r.logger = logger }
}

// WithXSDMode sets the package mode governing closure-validation severity
// for missing import/include/redefine targets. Defaults to ModeIncludeAll.
func WithXSDMode(mode XSDMode) RepositoryOption {
	return func(r *SchemaRepository) { r.XSDMode = mode }
}

// NewSchemaRepository creates an empty repository ready for Parse.
func NewSchemaRepository(opts ...RepositoryOption) *SchemaRepository {
	r := &SchemaRepository{
		httpClient:       http.DefaultClient,
		logger:           slog.Default(),
		processedSchemas: make(map[string]*Schema),
		inProgress:       make(map[string]bool),
		locationEdges:    make(map[string][]string),
		namespaces:       NewNamespaceRegistry(),
		types:            NewTypeIndex(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Parse loads each file in opts.Files (and everything they import, include,
// or redefine) into the repository's processed-schemas map. It is
// idempotent: a location already present in processed-schemas is not
// re-parsed.
func (r *SchemaRepository) Parse(opts ParseOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.compileMappings(opts.SchemaLocationMappings); err != nil {
		return &ConfigurationError{Err: err}
	}

	for _, f := range opts.Files {
		schema, err := r.loadSchemaRecursive(f, true)
		if err != nil {
			return fmt.Errorf("xsd: failed to parse entry schema %s: %w", f, err)
		}
		r.entryLocations = append(r.entryLocations, schema.Location)
		if opts.Verbose {
			r.logger.Info("parsed entry schema", "location", schema.Location, "namespace", schema.TargetNamespace)
		}
	}
	return nil
}

func (r *SchemaRepository) compileMappings(mappings []SchemaLocationMapping) error {
	compiled := make([]SchemaLocationMapping, len(mappings))
	for i, m := range mappings {
		compiled[i] = m
		if m.Pattern {
			re, err := regexp.Compile(m.From)
			if err != nil {
				return fmt.Errorf("invalid schema_location_mapping pattern %q: %w", m.From, err)
			}
			compiled[i].regex = re
		}
	}
	r.locationMappings = compiled
	return nil
}

// loadSchemaRecursive resolves location, parses it if not already processed
// or in progress, and recurses into its imports/includes/redefines.
// entry marks a top-level Files entry, whose parse failure aborts Parse
// rather than being swallowed as a warning.
func (r *SchemaRepository) loadSchemaRecursive(location string, entry bool) (*Schema, error) {
	absLocation, err := r.resolveLocation(location)
	if err != nil {
		locErr := &LocationResolutionError{Location: location, BaseURI: r.BaseDir, Err: err}
		if entry {
			return nil, locErr
		}
		r.logger.Warn("failed to resolve schema location", "location", location, "error", err)
		r.warnings = append(r.warnings, locErr.Error())
		return nil, locErr
	}

	if schema, ok := r.processedSchemas[absLocation]; ok {
		return schema, nil
	}
	if r.inProgress[absLocation] {
		// Forward declaration: the caller creates the Import/Include/Redefine
		// node but does not recurse further; the cycle is broken here.
		return nil, nil
	}

	r.inProgress[absLocation] = true
	defer delete(r.inProgress, absLocation)

	data, err := r.fetchBytes(absLocation)
	if err != nil {
		ioErr := &IOError{Location: absLocation, Err: err}
		if entry {
			return nil, ioErr
		}
		r.logger.Warn("failed to read schema", "location", absLocation, "error", err)
		r.warnings = append(r.warnings, ioErr.Error())
		return nil, ioErr
	}

	decoder := xmldom.NewDecoderFromBytes(data)
	doc, err := decoder.Decode()
	if err != nil {
		parseErr := &SchemaValidationError{Location: absLocation, Violations: nil}
		if entry {
			return nil, fmt.Errorf("xsd: failed to parse XML at %s: %w", absLocation, err)
		}
		r.logger.Warn("failed to parse schema XML", "location", absLocation, "error", err)
		r.warnings = append(r.warnings, parseErr.Error())
		return nil, err
	}

	schema, err := Parse(doc)
	if err != nil {
		if entry {
			return nil, fmt.Errorf("xsd: failed to parse schema at %s: %w", absLocation, err)
		}
		r.logger.Warn("failed to parse schema", "location", absLocation, "error", err)
		r.warnings = append(r.warnings, err.Error())
		return nil, err
	}
	schema.Location = absLocation
	r.processedSchemas[absLocation] = schema

	for _, imp := range schema.Imports {
		if imp.SchemaLocation == "" {
			continue
		}
		impLoc := r.resolveRelative(imp.SchemaLocation, absLocation)
		r.locationEdges[absLocation] = append(r.locationEdges[absLocation], impLoc)
		imported, err := r.loadSchemaRecursive(impLoc, false)
		if err != nil {
			r.logger.Warn("failed to import schema", "location", imp.SchemaLocation, "error", err)
			continue
		}
		if imported != nil {
			schema.ImportedSchemas[impLoc] = imported
		}
	}

	for _, inc := range schema.Includes {
		if inc.SchemaLocation == "" {
			continue
		}
		incLoc := r.resolveRelative(inc.SchemaLocation, absLocation)
		r.locationEdges[absLocation] = append(r.locationEdges[absLocation], incLoc)
		included, err := r.loadSchemaRecursive(incLoc, false)
		if err != nil {
			r.logger.Warn("failed to include schema", "location", inc.SchemaLocation, "error", err)
			continue
		}
		inc.Resolved = included
	}

	for _, red := range schema.Redefines {
		if red.SchemaLocation == "" {
			continue
		}
		redLoc := r.resolveRelative(red.SchemaLocation, absLocation)
		r.locationEdges[absLocation] = append(r.locationEdges[absLocation], redLoc)
		redefined, err := r.loadSchemaRecursive(redLoc, false)
		if err != nil {
			r.logger.Warn("failed to redefine schema", "location", red.SchemaLocation, "error", err)
			continue
		}
		red.Resolved = redefined
		if redefined != nil {
			applyRedefine(schema, red)
		}
	}

	return schema, nil
}

// resolveLocation applies configured schema_location_mappings (first match
// wins), then falls back to treating the logical location as absolute or
// relative to BaseDir.
func (r *SchemaRepository) resolveLocation(location string) (string, error) {
	for _, m := range r.locationMappings {
		if m.Pattern {
			if m.regex != nil && m.regex.MatchString(location) {
				return m.regex.ReplaceAllString(location, m.To), nil
			}
			continue
		}
		if m.From == location {
			return m.To, nil
		}
	}

	if filepath.IsAbs(location) {
		return location, nil
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return location, nil
	}
	if r.BaseDir != "" {
		return filepath.Abs(filepath.Join(r.BaseDir, location))
	}
	return filepath.Abs(location)
}

// resolveRelative resolves a nested schemaLocation against the location of
// the schema that referenced it.
func (r *SchemaRepository) resolveRelative(relative, base string) string {
	if filepath.IsAbs(relative) {
		return relative
	}
	if strings.HasPrefix(relative, "http://") || strings.HasPrefix(relative, "https://") {
		return relative
	}
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		baseURL, err := url.Parse(base)
		if err != nil {
			return relative
		}
		relURL, err := baseURL.Parse(relative)
		if err != nil {
			return relative
		}
		return relURL.String()
	}
	return filepath.Join(filepath.Dir(base), relative)
}

// fetchBytes reads a resolved location from disk or, for http(s) locations,
// over the network with a bounded timeout.
func (r *SchemaRepository) fetchBytes(location string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		ctx, cancel := context.WithTimeout(context.Background(), httpFetchTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, err
		}
		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, location)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(location)
}

// Resolve extracts namespace prefixes (C4) and builds the type index (C6)
// from the current processed-schemas contents. It is idempotent: calling it
// again rebuilds from scratch using whatever has been parsed so far.
func (r *SchemaRepository) Resolve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schemas := make([]*Schema, 0, len(r.processedSchemas))
	for _, s := range r.processedSchemas {
		schemas = append(schemas, s)
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Location < schemas[j].Location })

	r.namespaces.ExtractFromSchemas(schemas)

	r.types = NewTypeIndex()
	for _, s := range schemas {
		r.types.Add(s)
	}

	r.resolved = true
	return nil
}

// QualifyLocal rewrites an unprefixed local name to "prefix:local" using the
// primary prefix registered for schema's target namespace, or returns local
// unchanged if no prefix is registered.
func (r *SchemaRepository) QualifyLocal(schema *Schema, local string) string {
	if schema == nil || !schema.HasTargetNamespace() {
		return local
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if prefix, ok := r.namespaces.PrimaryPrefix(schema.TargetNamespace); ok {
		return prefix + ":" + local
	}
	return local
}

// FindType resolves a qualified name against the type index across both
// simpleType and complexType buckets, preferring an exact category match.
func (r *SchemaRepository) FindType(qname string) TypeResolutionResult {
	return r.findIn(qname, CategoryComplexType, CategorySimpleType)
}

// FindElement resolves qname against the element declaration bucket.
func (r *SchemaRepository) FindElement(qname string) *TypeIndexEntry {
	return r.findSingle(qname, CategoryElement)
}

// FindAttribute resolves qname against the attribute bucket.
func (r *SchemaRepository) FindAttribute(qname string) *TypeIndexEntry {
	return r.findSingle(qname, CategoryAttribute)
}

// FindGroup resolves qname against the model group bucket.
func (r *SchemaRepository) FindGroup(qname string) *TypeIndexEntry {
	return r.findSingle(qname, CategoryGroup)
}

// FindAttributeGroup resolves qname against the attribute group bucket.
func (r *SchemaRepository) FindAttributeGroup(qname string) *TypeIndexEntry {
	return r.findSingle(qname, CategoryAttributeGroup)
}

func (r *SchemaRepository) findSingle(qname string, cat TypeCategory) *TypeIndexEntry {
	result := r.findIn(qname, cat)
	return result.Entry
}

func (r *SchemaRepository) findIn(qname string, cats ...TypeCategory) TypeResolutionResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pq, err := ParseQName(qname, r.namespaces)
	if err != nil {
		return TypeResolutionResult{Found: false}
	}

	if pq.Namespace != "" {
		for _, cat := range cats {
			if result := r.types.FindByNamespaceAndName(cat, pq.Namespace, pq.Local); result.Found {
				return result
			}
		}
	} else {
		// Unqualified: search every namespace in sorted order for determinism.
		namespaces := r.knownNamespacesLocked()
		for _, ns := range namespaces {
			for _, cat := range cats {
				if result := r.types.FindByNamespaceAndName(cat, ns, pq.Local); result.Found {
					return result
				}
			}
		}
	}

	var suggestions []string
	for _, cat := range cats {
		res := r.types.FindByNamespaceAndName(cat, pq.Namespace, pq.Local)
		suggestions = append(suggestions, res.Suggestions...)
		if len(suggestions) >= maxSuggestions {
			break
		}
	}
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return TypeResolutionResult{Found: false, Suggestions: suggestions}
}

func (r *SchemaRepository) knownNamespacesLocked() []string {
	seen := make(map[string]bool)
	for _, s := range r.processedSchemas {
		if s.HasTargetNamespace() {
			seen[s.TargetNamespace] = true
		}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// AllTypeNames returns the sorted, Clark-notation qualified names of every
// indexed entry in category, optionally filtered by namespace. An empty
// category returns names across every category.
func (r *SchemaRepository) AllTypeNames(namespace, category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cats := []TypeCategory{
		CategorySimpleType, CategoryComplexType, CategoryElement,
		CategoryAttribute, CategoryGroup, CategoryAttributeGroup, CategoryNotation,
	}
	if category != "" {
		cats = []TypeCategory{TypeCategory(category)}
	}

	var names []string
	for _, cat := range cats {
		for _, e := range r.types.All(cat) {
			if namespace != "" && e.QName.Namespace != namespace {
				continue
			}
			names = append(names, FormatClark(e.QName))
		}
	}
	sort.Strings(names)
	return names
}

// Statistics reports counts across the repository's current state.
func (r *SchemaRepository) Statistics() RepositoryStatistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[TypeCategory]int{}
	for _, cat := range []TypeCategory{
		CategorySimpleType, CategoryComplexType, CategoryElement,
		CategoryAttribute, CategoryGroup, CategoryAttributeGroup, CategoryNotation,
	} {
		counts[cat] = len(r.types.All(cat))
	}

	return RepositoryStatistics{
		Schemas:          len(r.processedSchemas),
		Namespaces:       len(r.knownNamespacesLocked()),
		CountsByCategory: counts,
		Resolved:         r.resolved,
		Warnings:         len(r.warnings),
	}
}

// Schemas returns every processed schema, sorted by location.
func (r *SchemaRepository) Schemas() []*Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Schema, 0, len(r.processedSchemas))
	for _, s := range r.processedSchemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// Warnings returns every non-fatal warning accumulated so far by Parse,
// Validate (issues downgraded to warnings) and FromPackage.
func (r *SchemaRepository) Warnings() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// Validate runs reference-closure validation plus circular-import detection
// over the repository's processed schemas. With strict=true it returns as
// soon as the first error is found; otherwise it collects everything.
func (r *SchemaRepository) Validate(strict bool) []error {
	var errs []error

	if cyc, found := r.importCycle(); found {
		errs = append(errs, fmt.Errorf("xsd: circular import/include/redefine chain: %s", strings.Join(cyc, " -> ")))
		if strict {
			return errs
		}
	}

	for _, issue := range ValidateClosure(r) {
		if rnf, ok := issue.(*ReferenceNotFoundError); ok && rnf.Severity == SeverityWarning {
			r.mu.Lock()
			r.warnings = append(r.warnings, rnf.Error())
			r.mu.Unlock()
			continue
		}
		errs = append(errs, issue)
		if strict {
			return errs
		}
	}

	return errs
}

// importCycle runs a DFS over the location-level import/include/redefine
// graph and reports the first cycle found, if any.
func (r *SchemaRepository) importCycle() ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	graph := buildLocationGraph(r.locationEdges)
	cycle, found := graph.FindCycle()
	if !found {
		return nil, false
	}
	out := make([]string, len(cycle))
	for i, n := range cycle {
		out[i] = string(n)
	}
	return out, true
}

// buildLocationGraph builds a dependency graph over schema locations from
// every import/include/redefine edge recorded during parsing, including
// ones the in-progress cycle guard prevented from being recursed into.
func buildLocationGraph(edges map[string][]string) *depgraph.Graph {
	var g depgraph.Graph
	for loc, deps := range edges {
		for _, dep := range deps {
			g.Add(depgraph.Node(loc), depgraph.Node(dep))
		}
	}
	return &g
}

// Close releases any resources owned by the repository, currently the
// temporary directory created by FromPackage.
func (r *SchemaRepository) Close() error {
	r.mu.Lock()
	dir := r.extractedDir
	r.extractedDir = ""
	r.mu.Unlock()

	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}

package xsd

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// packageCodecVersion is this engine's package format version, written to
// metadata.yaml and compared against on read.
const packageCodecVersion = "1.0.0"

// XSDMode is the package mode. ToPackage bundles every processed XSD in
// either mode; only allow_external keeps schema_location_mappings in the
// metadata, and allow_external downgrades missing import/include/redefine
// targets to warnings in closure validation.
type XSDMode string

const (
	ModeIncludeAll    XSDMode = "include_all"
	ModeAllowExternal XSDMode = "allow_external"
)

// ResolutionMode controls whether a package carries pre-resolved Schema
// state or just the raw XSD bytes.
type ResolutionMode string

const (
	ResolutionBare     ResolutionMode = "bare"
	ResolutionResolved ResolutionMode = "resolved"
)

// SerializationFormat selects how a resolved Schema is encoded into
// schemas_data/.
type SerializationFormat string

const (
	FormatMarshal SerializationFormat = "marshal"
	FormatJSON    SerializationFormat = "json"
	FormatYAML    SerializationFormat = "yaml"
	FormatParse   SerializationFormat = "parse"
)

// PackageConfig controls how ToPackage builds an archive.
type PackageConfig struct {
	XSDMode             XSDMode
	ResolutionMode      ResolutionMode
	SerializationFormat SerializationFormat
	Name                string
	Version             string
	Description         string
}

// PackageMetadata is the parsed form of a package's metadata.yaml.
type PackageMetadata struct {
	Files                  []string                 `yaml:"files"`
	SchemaLocationMappings []configLocationMapping  `yaml:"schema_location_mappings"`
	NamespaceMappings      []configNamespaceMapping `yaml:"namespace_mappings"`
	XSDMode                XSDMode                  `yaml:"xsd_mode"`
	ResolutionMode         ResolutionMode           `yaml:"resolution_mode"`
	SerializationFormat    SerializationFormat      `yaml:"serialization_format"`
	EngineVersion          string                   `yaml:"lutaml_xsd_version"`
	CreatedAt              string                   `yaml:"created_at"`
	Name                   string                   `yaml:"name,omitempty"`
	Version                string                   `yaml:"version,omitempty"`
	Description            string                   `yaml:"description,omitempty"`
}

func init() {
	gob.Register(&SimpleType{})
	gob.Register(&ComplexType{})
	gob.Register(&ComplexContent{})
	gob.Register(&SimpleContent{})
	gob.Register(&AllowAnyContent{})
	gob.Register(&ModelGroup{})
	gob.Register(&ElementRef{})
	gob.Register(&GroupRef{})
	gob.Register(&AnyElement{})
	gob.Register(&ElementDecl{})
	gob.Register(&PatternFacet{})
	gob.Register(&EnumerationFacet{})
	gob.Register(&LengthFacet{})
	gob.Register(&MinLengthFacet{})
	gob.Register(&MaxLengthFacet{})
	gob.Register(&MinInclusiveFacet{})
	gob.Register(&MaxInclusiveFacet{})
	gob.Register(&MinExclusiveFacet{})
	gob.Register(&MaxExclusiveFacet{})
	gob.Register(&TotalDigitsFacet{})
	gob.Register(&FractionDigitsFacet{})
	gob.Register(&WhiteSpaceFacet{})
}

// ToPackage writes the repository's current processed-schemas as a
// self-contained LXR archive at dest: XSD sources under schemas/, an
// optional serialized form under schemas_data/, and a metadata.yaml
// manifest. The archive is written to a temp file beside dest and then
// renamed into place atomically.
func (r *SchemaRepository) ToPackage(dest string, cfg PackageConfig) error {
	r.mu.RLock()
	schemas := make([]*Schema, 0, len(r.processedSchemas))
	for _, s := range r.processedSchemas {
		schemas = append(schemas, s)
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Location < schemas[j].Location })
	namespaceMappings := r.namespaces.AllMappings()
	r.mu.RUnlock()

	basenames, err := r.assignPackageBasenames(schemas)
	if err != nil {
		return &PackageError{Op: "write", Path: dest, Err: err}
	}

	dir := filepath.Dir(dest)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, ".lxr-*.tmp")
	if err != nil {
		return &PackageError{Op: "write", Path: dest, Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	zw := zip.NewWriter(tmp)

	files := make([]string, 0, len(schemas))
	for _, s := range schemas {
		base := basenames[s.Location]
		data, err := r.fetchBytes(s.Location)
		if err != nil {
			zw.Close()
			tmp.Close()
			return &PackageError{Op: "write", Path: s.Location, Err: err}
		}
		if err := writeZipEntry(zw, "schemas/"+base, data); err != nil {
			zw.Close()
			tmp.Close()
			return &PackageError{Op: "write", Path: base, Err: err}
		}
		files = append(files, base)

		if cfg.ResolutionMode == ResolutionResolved && cfg.SerializationFormat != "" && cfg.SerializationFormat != FormatParse {
			encoded, err := encodeSchema(s, cfg.SerializationFormat)
			if err != nil {
				zw.Close()
				tmp.Close()
				return &PackageError{Op: "write", Path: base, Err: err}
			}
			stem := strings.TrimSuffix(base, filepath.Ext(base))
			name := "schemas_data/" + stem + serializationExt(cfg.SerializationFormat)
			if err := writeZipEntry(zw, name, encoded); err != nil {
				zw.Close()
				tmp.Close()
				return &PackageError{Op: "write", Path: name, Err: err}
			}
		}
	}
	sort.Strings(files)

	meta := PackageMetadata{
		Files:               files,
		XSDMode:             cfg.XSDMode,
		ResolutionMode:      cfg.ResolutionMode,
		SerializationFormat: cfg.SerializationFormat,
		EngineVersion:       packageCodecVersion,
		CreatedAt:           time.Now().UTC().Format(time.RFC3339),
		Name:                cfg.Name,
		Version:             cfg.Version,
		Description:         cfg.Description,
	}
	// Bundled XSDs no longer need external location remapping.
	if cfg.XSDMode != ModeIncludeAll {
		r.mu.RLock()
		for _, m := range r.locationMappings {
			meta.SchemaLocationMappings = append(meta.SchemaLocationMappings, configLocationMapping{From: m.From, To: m.To, Pattern: m.Pattern})
		}
		r.mu.RUnlock()
	}
	for _, m := range namespaceMappings {
		meta.NamespaceMappings = append(meta.NamespaceMappings, configNamespaceMapping{Prefix: m.Prefix, URI: m.URI})
	}

	metaBytes, err := yaml.Marshal(meta)
	if err != nil {
		zw.Close()
		tmp.Close()
		return &PackageError{Op: "write", Path: dest, Err: err}
	}
	if err := writeZipEntry(zw, "metadata.yaml", metaBytes); err != nil {
		zw.Close()
		tmp.Close()
		return &PackageError{Op: "write", Path: dest, Err: err}
	}

	if err := zw.Close(); err != nil {
		tmp.Close()
		return &PackageError{Op: "write", Path: dest, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PackageError{Op: "write", Path: dest, Err: err}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return &PackageError{Op: "write", Path: dest, Err: err}
	}
	return nil
}

// assignPackageBasenames picks a unique schemas/ basename per schema
// location: the plain basename, then a primary-prefix suffix on collision,
// then an 8-hex-char content hash if still colliding.
func (r *SchemaRepository) assignPackageBasenames(schemas []*Schema) (map[string]string, error) {
	used := make(map[string]bool, len(schemas))
	basenames := make(map[string]string, len(schemas))

	for _, s := range schemas {
		base := filepath.Base(s.Location)
		if !used[base] {
			used[base] = true
			basenames[s.Location] = base
			continue
		}

		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		prefix, _ := r.namespaces.PrimaryPrefix(s.TargetNamespace)
		if prefix != "" {
			candidate := stem + "_" + prefix + ext
			if !used[candidate] {
				used[candidate] = true
				basenames[s.Location] = candidate
				continue
			}
		}

		data, err := r.fetchBytes(s.Location)
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256(data)
		hash := fmt.Sprintf("%x", sum)[:8]
		candidate := stem + "_" + hash + ext
		used[candidate] = true
		basenames[s.Location] = candidate
	}
	return basenames, nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func serializationExt(format SerializationFormat) string {
	switch format {
	case FormatMarshal:
		return ".gob"
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	default:
		return ""
	}
}

func encodeSchema(s *Schema, format SerializationFormat) ([]byte, error) {
	switch format {
	case FormatMarshal:
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(s); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON:
		return json.Marshal(s)
	case FormatYAML:
		return yaml.Marshal(s)
	default:
		return nil, fmt.Errorf("xsd: unsupported serialization format %q", format)
	}
}

func decodeSchema(data []byte, format SerializationFormat) (*Schema, error) {
	var s Schema
	var err error
	switch format {
	case FormatMarshal:
		err = gob.NewDecoder(bytes.NewReader(data)).Decode(&s)
	case FormatJSON:
		err = json.Unmarshal(data, &s)
	case FormatYAML:
		err = yaml.Unmarshal(data, &s)
	default:
		return nil, fmt.Errorf("xsd: unsupported serialization format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FromPackage reads an LXR archive at path, extracts it to a temporary
// directory (removed by the returned repository's Close), and builds a
// resolved SchemaRepository from its contents.
func FromPackage(path string, opts ...RepositoryOption) (*SchemaRepository, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &PackageError{Op: "read", Path: path, Err: err}
	}
	defer zr.Close()

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	metaEntry, ok := entries["metadata.yaml"]
	if !ok {
		return nil, &PackageError{Op: "read", Path: path, Err: fmt.Errorf("missing metadata.yaml")}
	}
	metaBytes, err := readZipEntry(metaEntry)
	if err != nil {
		return nil, &PackageError{Op: "read", Path: path, Err: err}
	}
	var meta PackageMetadata
	if err := yaml.Unmarshal(metaBytes, &meta); err != nil {
		return nil, &PackageError{Op: "read", Path: path, Err: fmt.Errorf("malformed metadata.yaml: %w", err)}
	}
	if len(meta.Files) == 0 {
		return nil, &PackageError{Op: "read", Path: path, Err: fmt.Errorf("metadata.yaml declares no files")}
	}

	hasXSD := false
	for name := range entries {
		if strings.HasPrefix(name, "schemas/") && strings.HasSuffix(name, ".xsd") {
			hasXSD = true
			break
		}
	}
	if !hasXSD {
		return nil, &PackageError{Op: "read", Path: path, Err: fmt.Errorf("package contains no schemas/*.xsd entries")}
	}

	var warnings []string
	if meta.EngineVersion != "" && meta.EngineVersion > packageCodecVersion {
		warnings = append(warnings, fmt.Sprintf("package version %s is newer than reader version %s", meta.EngineVersion, packageCodecVersion))
	}
	for _, m := range meta.SchemaLocationMappings {
		switch {
		case strings.HasPrefix(m.To, "http://") || strings.HasPrefix(m.To, "https://"):
			return nil, &PackageError{Op: "read", Path: path, Err: fmt.Errorf("schema_location_mapping %q -> %q is an absolute URL, not self-contained", m.From, m.To)}
		case strings.HasPrefix(m.To, "/") || strings.HasPrefix(m.To, "../"):
			warnings = append(warnings, fmt.Sprintf("schema_location_mapping %q -> %q escapes the package directory", m.From, m.To))
		}
	}

	extractedDir, err := os.MkdirTemp("", "xsd-package-*")
	if err != nil {
		return nil, &PackageError{Op: "read", Path: path, Err: err}
	}

	var entryFiles []string
	dataEntries := make(map[string]*zip.File)
	for name, f := range entries {
		switch {
		case strings.HasPrefix(name, "schemas/"):
			data, err := readZipEntry(f)
			if err != nil {
				os.RemoveAll(extractedDir)
				return nil, &PackageError{Op: "read", Path: name, Err: err}
			}
			dst := filepath.Join(extractedDir, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
				os.RemoveAll(extractedDir)
				return nil, &PackageError{Op: "read", Path: dst, Err: err}
			}
			if err := os.WriteFile(dst, data, 0644); err != nil {
				os.RemoveAll(extractedDir)
				return nil, &PackageError{Op: "read", Path: dst, Err: err}
			}
			if strings.HasSuffix(name, ".xsd") {
				entryFiles = append(entryFiles, dst)
			}
		case strings.HasPrefix(name, "schemas_data/"):
			dataEntries[name] = f
		}
	}
	sort.Strings(entryFiles)

	r := NewSchemaRepository(opts...)
	r.BaseDir = filepath.Join(extractedDir, "schemas")
	r.extractedDir = extractedDir
	r.XSDMode = meta.XSDMode
	r.warnings = append(r.warnings, warnings...)
	for _, m := range meta.NamespaceMappings {
		r.namespaces.Register(m.Prefix, m.URI)
	}

	if meta.SerializationFormat != "" && meta.SerializationFormat != FormatParse {
		for name, f := range dataEntries {
			data, err := readZipEntry(f)
			if err != nil {
				r.Close()
				return nil, &PackageError{Op: "read", Path: name, Err: err}
			}
			schema, err := decodeSchema(data, meta.SerializationFormat)
			if err != nil {
				r.Close()
				return nil, &PackageError{Op: "read", Path: name, Err: err}
			}
			stem := strings.TrimSuffix(strings.TrimPrefix(name, "schemas_data/"), filepath.Ext(name))
			loc := filepath.Join(extractedDir, "schemas", stem+".xsd")
			schema.Location = loc
			r.processedSchemas[loc] = schema
		}
	} else {
		if err := r.Parse(ParseOptions{Files: entryFiles}); err != nil {
			r.Close()
			return nil, err
		}
	}

	if err := r.Resolve(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// FromFile loads path as a YAML configuration (".yml"/".yaml" extension, via
// LoadConfig and ApplyConfig), as a package via FromPackage when it is a
// recognized LXR archive (".lxr" extension, or the ZIP magic number when
// the extension is ambiguous), or otherwise as a raw XSD entry document. The
// single-XSD path is memoized through GlobalCache, so loading the same schema
// for many instance-document validations in a row parses and resolves it
// only once.
func FromFile(path string, opts ...RepositoryOption) (*SchemaRepository, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		cfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		return ApplyConfig(cfg, opts...)
	}
	if strings.EqualFold(filepath.Ext(path), ".lxr") || looksLikeZip(path) {
		return FromPackage(path, opts...)
	}
	return GlobalCache.GetRepository(path, opts...)
}

func looksLikeZip(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return false
	}
	return magic[0] == 'P' && magic[1] == 'K' && magic[2] == 0x03 && magic[3] == 0x04
}

// FromFileCached loads src through a cached package at lxr: if lxr exists and
// is at least as new as src, it is loaded directly; otherwise src is parsed
// fresh and the result is written out to lxr via ToPackage for next time.
func FromFileCached(src, lxr string, cfg PackageConfig, opts ...RepositoryOption) (*SchemaRepository, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return nil, &IOError{Location: src, Err: err}
	}

	if lxrInfo, err := os.Stat(lxr); err == nil && !lxrInfo.ModTime().Before(srcInfo.ModTime()) {
		return FromPackage(lxr, opts...)
	}

	r, err := FromFile(src, opts...)
	if err != nil {
		return nil, err
	}
	if err := r.ToPackage(lxr, cfg); err != nil {
		return r, err
	}
	return r, nil
}

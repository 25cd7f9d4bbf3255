package xsd

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// xsdPrefix is the prefix this serializer always uses for the XSD
// namespace, regardless of what prefix the source document used.
const xsdPrefix = "xs"

// xmlWriter accumulates indented XML text. It is intentionally a thin,
// hand-rolled writer: none of the retrieved example libraries, including
// the engine's own xmldom dependency, expose an encoder for the DOM it
// builds on decode, so round-tripping falls back to the standard library
// (see DESIGN.md).
type xmlWriter struct {
	buf    bytes.Buffer
	indent int
}

func (w *xmlWriter) open(tag string, attrs ...[2]string) {
	w.pad()
	w.buf.WriteByte('<')
	w.buf.WriteString(tag)
	for _, a := range attrs {
		if a[1] == "" {
			continue
		}
		w.buf.WriteByte(' ')
		w.buf.WriteString(a[0])
		w.buf.WriteString(`="`)
		w.writeEscaped(a[1])
		w.buf.WriteString(`"`)
	}
	w.buf.WriteString(">\n")
	w.indent++
}

func (w *xmlWriter) selfClose(tag string, attrs ...[2]string) {
	w.pad()
	w.buf.WriteByte('<')
	w.buf.WriteString(tag)
	for _, a := range attrs {
		if a[1] == "" {
			continue
		}
		w.buf.WriteByte(' ')
		w.buf.WriteString(a[0])
		w.buf.WriteString(`="`)
		w.writeEscaped(a[1])
		w.buf.WriteString(`"`)
	}
	w.buf.WriteString("/>\n")
}

func (w *xmlWriter) close(tag string) {
	w.indent--
	w.pad()
	w.buf.WriteString("</")
	w.buf.WriteString(tag)
	w.buf.WriteString(">\n")
}

func (w *xmlWriter) text(s string) {
	w.pad()
	w.writeEscaped(s)
	w.buf.WriteByte('\n')
}

func (w *xmlWriter) pad() {
	for i := 0; i < w.indent; i++ {
		w.buf.WriteString("  ")
	}
}

func (w *xmlWriter) writeEscaped(s string) {
	_ = xml.EscapeText(&w.buf, []byte(s))
}

// Serialize renders schema back to XSD XML text. Round-tripping through
// Parse then Serialize preserves every top-level construct and their
// attributes, though insignificant whitespace in mixed content is not
// preserved. visited records every *Schema already serialized: a schema
// already in it yields nil output, so callers sharing one map across several
// schemas write each schema at most once. Serialize writes a schema's
// import/include/redefine elements but does not descend into the schemas
// they reference.
func Serialize(schema *Schema, visited map[*Schema]bool) ([]byte, error) {
	if schema == nil {
		return nil, fmt.Errorf("xsd: cannot serialize a nil schema")
	}
	if visited == nil {
		visited = make(map[*Schema]bool)
	}
	if visited[schema] {
		return nil, nil
	}
	visited[schema] = true

	w := &xmlWriter{}
	w.buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")

	attrs := []([2]string){
		{"xmlns:" + xsdPrefix, XSDNamespace},
		{"targetNamespace", schema.TargetNamespace},
		{"elementFormDefault", schema.ElementFormDefault},
		{"attributeFormDefault", schema.AttrFormDefault},
		{"finalDefault", schema.FinalDefault},
		{"blockDefault", schema.BlockDefault},
		{"id", schema.ID},
		{"version", schema.Version},
	}
	w.openTag(xsdPrefix+":schema", attrs...)

	for _, imp := range schema.Imports {
		w.selfClose(xsdPrefix+":import", [2]string{"namespace", imp.Namespace}, [2]string{"schemaLocation", imp.SchemaLocation})
	}
	for _, inc := range schema.Includes {
		w.selfClose(xsdPrefix+":include", [2]string{"schemaLocation", inc.SchemaLocation})
	}
	for _, red := range schema.Redefines {
		w.selfClose(xsdPrefix+":redefine", [2]string{"schemaLocation", red.SchemaLocation})
	}

	for _, ann := range schema.Annotations {
		writeAnnotation(w, ann)
	}

	for _, qname := range schema.ResolvedElementOrder() {
		writeTopLevel(w, schema, qname)
	}

	w.close(xsdPrefix + ":schema")
	return w.buf.Bytes(), nil
}

// openTag is a convenience wrapper that forwards to open, which takes the
// same variadic attrs, to read naturally at call sites with many optional
// attributes.
func (w *xmlWriter) openTag(tag string, attrs ...[2]string) {
	w.open(tag, attrs...)
}

func writeTopLevel(w *xmlWriter, schema *Schema, qname QName) {
	if t, ok := schema.TypeDefs[qname]; ok {
		switch typ := t.(type) {
		case *SimpleType:
			writeSimpleType(w, typ)
			return
		case *ComplexType:
			writeComplexType(w, typ)
			return
		}
	}
	if decl, ok := schema.ElementDecls[qname]; ok {
		writeElementDecl(w, decl, true)
		return
	}
	if group, ok := schema.Groups[qname]; ok {
		w.openTag(xsdPrefix+":group", [2]string{"name", qname.Local})
		writeModelGroupBody(w, group)
		w.close(xsdPrefix + ":group")
		return
	}
	if ag, ok := schema.AttributeGroups[qname]; ok {
		w.openTag(xsdPrefix+":attributeGroup", [2]string{"name", qname.Local})
		for _, attr := range ag.Attributes {
			writeAttributeDecl(w, attr)
		}
		w.close(xsdPrefix + ":attributeGroup")
		return
	}
	if not, ok := schema.Notations[qname]; ok {
		w.selfClose(xsdPrefix+":notation", [2]string{"name", not.Name.Local}, [2]string{"public", not.Public}, [2]string{"system", not.System})
		return
	}
}

func writeSimpleType(w *xmlWriter, st *SimpleType) {
	w.openTag(xsdPrefix+":simpleType", [2]string{"name", st.QName.Local})
	switch {
	case st.Restriction != nil:
		w.openTag(xsdPrefix+":restriction", [2]string{"base", FormatClark(st.Restriction.Base)})
		w.close(xsdPrefix + ":restriction")
	case st.List != nil:
		w.selfClose(xsdPrefix+":list", [2]string{"itemType", FormatClark(st.List.ItemType)})
	case st.Union != nil:
		members := make([]string, 0, len(st.Union.MemberTypes))
		for _, m := range st.Union.MemberTypes {
			members = append(members, FormatClark(m))
		}
		w.selfClose(xsdPrefix+":union", [2]string{"memberTypes", joinSpace(members)})
	}
	w.close(xsdPrefix + ":simpleType")
}

func writeComplexType(w *xmlWriter, ct *ComplexType) {
	attrs := []([2]string){{"name", ct.QName.Local}}
	if ct.Abstract {
		attrs = append(attrs, [2]string{"abstract", "true"})
	}
	if ct.Mixed {
		attrs = append(attrs, [2]string{"mixed", "true"})
	}
	w.openTag(xsdPrefix+":complexType", attrs...)

	switch content := ct.Content.(type) {
	case *ModelGroup:
		writeModelGroupBody(w, content)
	case *ComplexContent:
		w.openTag(xsdPrefix + ":complexContent")
		writeDerivation(w, "extension", content.Base, content.Extension, content.Restriction)
		w.close(xsdPrefix + ":complexContent")
	case *SimpleContent:
		w.openTag(xsdPrefix + ":simpleContent")
		writeDerivation(w, "extension", content.Base, content.Extension, content.Restriction)
		w.close(xsdPrefix + ":simpleContent")
	}

	for _, attr := range ct.Attributes {
		writeAttributeDecl(w, attr)
	}
	for _, ref := range ct.AttributeGroup {
		w.selfClose(xsdPrefix+":attributeGroup", [2]string{"ref", FormatClark(ref)})
	}
	if ct.AnyAttribute != nil {
		w.selfClose(xsdPrefix+":anyAttribute", [2]string{"namespace", ct.AnyAttribute.Namespace}, [2]string{"processContents", ct.AnyAttribute.ProcessContents})
	}

	w.close(xsdPrefix + ":complexType")
}

func writeDerivation(w *xmlWriter, kind string, base QName, ext *Extension, restr *Restriction) {
	if ext != nil {
		w.openTag(xsdPrefix+":extension", [2]string{"base", FormatClark(ext.Base)})
		if mg, ok := ext.Content.(*ModelGroup); ok {
			writeModelGroupBody(w, mg)
		}
		for _, attr := range ext.Attributes {
			writeAttributeDecl(w, attr)
		}
		w.close(xsdPrefix + ":extension")
		return
	}
	if restr != nil {
		w.openTag(xsdPrefix+":restriction", [2]string{"base", FormatClark(restr.Base)})
		if mg, ok := restr.Content.(*ModelGroup); ok {
			writeModelGroupBody(w, mg)
		}
		for _, attr := range restr.Attributes {
			writeAttributeDecl(w, attr)
		}
		w.close(xsdPrefix + ":restriction")
		return
	}
	if base != (QName{}) {
		w.openTag(xsdPrefix+":extension", [2]string{"base", FormatClark(base)})
		w.close(xsdPrefix + ":extension")
	}
}

func writeModelGroupBody(w *xmlWriter, group *ModelGroup) {
	if group == nil {
		return
	}
	tag := xsdPrefix + ":" + string(group.Kind)
	attrs := occursAttrs(group.MinOcc, group.MaxOcc)
	w.openTag(tag, attrs...)
	for _, p := range group.Particles {
		writeParticle(w, p)
	}
	w.close(tag)
}

func writeParticle(w *xmlWriter, p Particle) {
	switch particle := p.(type) {
	case *ElementRef:
		w.selfClose(xsdPrefix+":element", append([][2]string{{"ref", FormatClark(particle.Ref)}}, occursAttrs(particle.MinOcc, particle.MaxOcc)...)...)
	case *ElementDecl:
		writeElementDecl(w, particle, false)
	case *GroupRef:
		w.selfClose(xsdPrefix+":group", append([][2]string{{"ref", FormatClark(particle.Ref)}}, occursAttrs(particle.MinOcc, particle.MaxOcc)...)...)
	case *ModelGroup:
		writeModelGroupBody(w, particle)
	case *AnyElement:
		w.selfClose(xsdPrefix+":any", append([][2]string{{"namespace", particle.Namespace}, {"processContents", particle.ProcessContents}}, occursAttrs(particle.MinOcc, particle.MaxOcc)...)...)
	}
}

func writeElementDecl(w *xmlWriter, decl *ElementDecl, topLevel bool) {
	attrs := [][2]string{{"name", decl.Name.Local}}
	if decl.Type != nil {
		if named, ok := typeQName(decl.Type); ok {
			attrs = append(attrs, [2]string{"type", FormatClark(named)})
		}
	}
	if decl.Nillable {
		attrs = append(attrs, [2]string{"nillable", "true"})
	}
	if decl.Abstract {
		attrs = append(attrs, [2]string{"abstract", "true"})
	}
	if decl.SubstitutionGroup != (QName{}) {
		attrs = append(attrs, [2]string{"substitutionGroup", FormatClark(decl.SubstitutionGroup)})
	}
	if !topLevel {
		attrs = append(attrs, occursAttrs(decl.MinOcc, decl.MaxOcc)...)
	}
	w.selfClose(xsdPrefix+":element", attrs...)
}

func writeAttributeDecl(w *xmlWriter, attr *AttributeDecl) {
	attrs := [][2]string{{"name", attr.Name.Local}}
	if attr.Type != nil {
		if named, ok := typeQName(attr.Type); ok {
			attrs = append(attrs, [2]string{"type", FormatClark(named)})
		}
	}
	if attr.Use != "" && attr.Use != OptionalUse {
		attrs = append(attrs, [2]string{"use", string(attr.Use)})
	}
	if attr.Default != "" {
		attrs = append(attrs, [2]string{"default", attr.Default})
	}
	if attr.Fixed != "" {
		attrs = append(attrs, [2]string{"fixed", attr.Fixed})
	}
	w.selfClose(xsdPrefix+":attribute", attrs...)
}

func writeAnnotation(w *xmlWriter, ann *Annotation) {
	if ann == nil || (len(ann.Documentation) == 0 && len(ann.AppInfo) == 0) {
		return
	}
	w.openTag(xsdPrefix + ":annotation")
	for _, doc := range ann.Documentation {
		w.openTag(xsdPrefix+":documentation", [2]string{"source", doc.Source}, [2]string{"xml:lang", doc.Lang})
		if doc.Text != "" {
			w.text(doc.Text)
		}
		w.close(xsdPrefix + ":documentation")
	}
	for _, info := range ann.AppInfo {
		w.openTag(xsdPrefix+":appinfo", [2]string{"source", info.Source})
		if info.Text != "" {
			w.text(info.Text)
		}
		w.close(xsdPrefix + ":appinfo")
	}
	w.close(xsdPrefix + ":annotation")
}

func typeQName(t Type) (QName, bool) {
	switch typ := t.(type) {
	case *SimpleType:
		return typ.QName, true
	case *ComplexType:
		return typ.QName, true
	}
	return QName{}, false
}

func occursAttrs(minOcc, maxOcc int) [][2]string {
	var attrs [][2]string
	if minOcc != 1 && minOcc != 0 {
		attrs = append(attrs, [2]string{"minOccurs", fmt.Sprint(minOcc)})
	} else if minOcc == 0 {
		attrs = append(attrs, [2]string{"minOccurs", "0"})
	}
	if maxOcc == -1 {
		attrs = append(attrs, [2]string{"maxOccurs", "unbounded"})
	} else if maxOcc != 1 && maxOcc != 0 {
		attrs = append(attrs, [2]string{"maxOccurs", fmt.Sprint(maxOcc)})
	}
	return attrs
}

func joinSpace(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

package xsd

import (
	"github.com/agentflare-ai/go-xmldom"
)

// Include represents an xs:include: folds another document into the same
// target namespace.
type Include struct {
	ID             string
	SchemaLocation string
	Resolved       *Schema
}

// Redefine represents an xs:redefine: includes another document and
// overrides some of its top-level simpleType/complexType/group/
// attributeGroup components.
type Redefine struct {
	ID                   string
	SchemaLocation       string
	Resolved             *Schema
	OverriddenComplex    []QName
	OverriddenSimple     []QName
	OverriddenGroups     []QName
	OverriddenAttrGroups []QName
}

// Notation represents an xs:notation declaration.
type Notation struct {
	Name     QName
	Public   string
	System   string
	Annotate *Annotation
}

// Annotation represents an xs:annotation: its documentation and appinfo
// children, kept in two separate lists; the relative order of documentation
// and appinfo children is not kept.
type Annotation struct {
	Documentation []*Documentation
	AppInfo       []*AppInfo
}

// Documentation represents an xs:documentation element.
type Documentation struct {
	Source string
	Lang   string
	Text   string
}

// AppInfo represents an xs:appinfo element.
type AppInfo struct {
	Source string
	Text   string
}

func (s *Schema) parseInclude(elem xmldom.Element) error {
	inc := &Include{
		ID:             string(elem.GetAttribute("id")),
		SchemaLocation: string(elem.GetAttribute("schemaLocation")),
	}
	s.Includes = append(s.Includes, inc)
	return nil
}

func (s *Schema) parseRedefine(elem xmldom.Element) error {
	r := &Redefine{
		ID:             string(elem.GetAttribute("id")),
		SchemaLocation: string(elem.GetAttribute("schemaLocation")),
	}

	children := elem.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		name := string(child.GetAttribute("name"))
		if name == "" {
			continue
		}
		qname := QName{Namespace: s.TargetNamespace, Local: name}
		switch string(child.LocalName()) {
		case "complexType":
			if err := s.parseComplexType(child); err != nil {
				return err
			}
			r.OverriddenComplex = append(r.OverriddenComplex, qname)
		case "simpleType":
			if err := s.parseSimpleType(child); err != nil {
				return err
			}
			r.OverriddenSimple = append(r.OverriddenSimple, qname)
		case "group":
			if err := s.parseGroup(child); err != nil {
				return err
			}
			r.OverriddenGroups = append(r.OverriddenGroups, qname)
		case "attributeGroup":
			if err := s.parseAttributeGroup(child); err != nil {
				return err
			}
			r.OverriddenAttrGroups = append(r.OverriddenAttrGroups, qname)
		}
	}

	s.Redefines = append(s.Redefines, r)
	return nil
}

// redefinedBaseSuffix marks the shadow qname under which a redefine target's
// pre-override definition is kept reachable, so a self-referencing
// extension/restriction in the overriding component still resolves.
const redefinedBaseSuffix = "#redefined-base"

// applyRedefine installs red's overriding components into red.Resolved,
// shadowing the pre-override definitions so self-referencing
// extension/restriction bases in the new components keep working.
func applyRedefine(redefiner *Schema, red *Redefine) {
	target := red.Resolved
	if target == nil {
		return
	}
	target.mu.Lock()
	defer target.mu.Unlock()

	shadow := func(q QName) QName {
		return QName{Namespace: q.Namespace, Local: q.Local + redefinedBaseSuffix}
	}

	for _, q := range red.OverriddenComplex {
		newDef, ok := redefiner.TypeDefs[q].(*ComplexType)
		if !ok {
			continue
		}
		if old, exists := target.TypeDefs[q]; exists {
			target.TypeDefs[shadow(q)] = old
		}
		rewriteComplexTypeSelfBase(newDef, q, shadow(q))
		target.TypeDefs[q] = newDef
	}

	for _, q := range red.OverriddenSimple {
		newDef, ok := redefiner.TypeDefs[q].(*SimpleType)
		if !ok {
			continue
		}
		if old, exists := target.TypeDefs[q]; exists {
			target.TypeDefs[shadow(q)] = old
		}
		if newDef.Restriction != nil && newDef.Restriction.Base == q {
			newDef.Restriction.Base = shadow(q)
		}
		target.TypeDefs[q] = newDef
	}

	for _, q := range red.OverriddenGroups {
		newDef, exists := redefiner.Groups[q]
		if !exists {
			continue
		}
		if old, exists := target.Groups[q]; exists {
			target.Groups[shadow(q)] = old
		}
		rewriteGroupSelfRef(newDef, q, shadow(q))
		target.Groups[q] = newDef
	}

	for _, q := range red.OverriddenAttrGroups {
		newDef, exists := redefiner.AttributeGroups[q]
		if !exists {
			continue
		}
		if old, exists := target.AttributeGroups[q]; exists {
			target.AttributeGroups[shadow(q)] = old
		}
		target.AttributeGroups[q] = newDef
	}
}

func rewriteComplexTypeSelfBase(ct *ComplexType, self, shadowName QName) {
	switch content := ct.Content.(type) {
	case *ComplexContent:
		if content.Base == self {
			content.Base = shadowName
		}
		if content.Extension != nil && content.Extension.Base == self {
			content.Extension.Base = shadowName
		}
		if content.Restriction != nil && content.Restriction.Base == self {
			content.Restriction.Base = shadowName
		}
	case *SimpleContent:
		if content.Base == self {
			content.Base = shadowName
		}
		if content.Extension != nil && content.Extension.Base == self {
			content.Extension.Base = shadowName
		}
		if content.Restriction != nil && content.Restriction.Base == self {
			content.Restriction.Base = shadowName
		}
	}
}

func rewriteGroupSelfRef(group *ModelGroup, self, shadowName QName) {
	for _, p := range group.Particles {
		if gr, ok := p.(*GroupRef); ok && gr.Ref == self {
			gr.Ref = shadowName
		}
	}
}

func (s *Schema) parseNotation(elem xmldom.Element) {
	name := string(elem.GetAttribute("name"))
	if name == "" {
		return
	}
	not := &Notation{
		Name:   QName{Namespace: s.TargetNamespace, Local: name},
		Public: string(elem.GetAttribute("public")),
		System: string(elem.GetAttribute("system")),
	}
	s.mu.Lock()
	s.Notations[not.Name] = not
	s.mu.Unlock()
}

func (s *Schema) parseAnnotation(elem xmldom.Element) *Annotation {
	ann := &Annotation{}
	children := elem.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		switch string(child.LocalName()) {
		case "documentation":
			ann.Documentation = append(ann.Documentation, &Documentation{
				Source: string(child.GetAttribute("source")),
				Lang:   string(child.GetAttribute("xml:lang")),
				Text:   string(child.TextContent()),
			})
		case "appinfo":
			ann.AppInfo = append(ann.AppInfo, &AppInfo{
				Source: string(child.GetAttribute("source")),
				Text:   string(child.TextContent()),
			})
		}
	}
	return ann
}

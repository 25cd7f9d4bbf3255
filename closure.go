package xsd

// isBuiltinRef reports whether qname names an XSD/XSI built-in, identified
// by its namespace URI (the XSD or the XSI namespace).
func isBuiltinRef(qname QName) bool {
	return qname.Namespace == XSDNamespace || qname.Namespace == "http://www.w3.org/2001/XMLSchema-instance"
}

// ValidateClosure walks every schema in the repository's processed-schemas
// map and reports every dangling reference: element/attribute types,
// complexType/simpleType bases, element/group/attributeGroup refs, and
// unresolved imports/includes/redefines, plus any duplicate-definition
// issues recorded while the type index was built. Attribute refs are not
// checked: the parser records no AttributeDecl for an xs:attribute ref.
// Built-in XSD types are never reported as dangling. Missing
// import/include/redefine targets carry SeverityWarning instead of
// SeverityError when r.XSDMode is ModeAllowExternal.
func ValidateClosure(r *SchemaRepository) []error {
	var issues []error

	for _, dup := range r.types.Duplicates() {
		issues = append(issues, dup)
	}

	for _, schema := range r.Schemas() {
		for _, issue := range checkElementsAndAttributes(r, schema) {
			issues = append(issues, issue)
		}
		for _, issue := range checkTypeDefs(r, schema) {
			issues = append(issues, issue)
		}
		for _, issue := range checkGroups(r, schema) {
			issues = append(issues, issue)
		}
		for _, issue := range checkImports(r, schema) {
			issues = append(issues, issue)
		}
		for _, issue := range checkIncludes(r, schema) {
			issues = append(issues, issue)
		}
		for _, issue := range checkRedefines(r, schema) {
			issues = append(issues, issue)
		}
	}
	return issues
}

// externalTargetSeverity reports the severity missing import/include/
// redefine targets should carry for a package declaring mode.
func externalTargetSeverity(mode XSDMode) Severity {
	if mode == ModeAllowExternal {
		return SeverityWarning
	}
	return SeverityError
}

func reportMissing(r *SchemaRepository, schema *Schema, cat TypeCategory, qname QName) *ReferenceNotFoundError {
	if isBuiltinRef(qname) {
		return nil
	}
	result := r.types.FindByNamespaceAndName(cat, qname.Namespace, qname.Local)
	if result.Found {
		return nil
	}
	return &ReferenceNotFoundError{Kind: cat, QName: qname, From: schema.Location, Suggestions: result.Suggestions, Severity: SeverityError}
}

func checkElementsAndAttributes(r *SchemaRepository, schema *Schema) []*ReferenceNotFoundError {
	var issues []*ReferenceNotFoundError
	for _, decl := range schema.ElementDecls {
		if st, ok := decl.Type.(*SimpleType); ok && st.Restriction == nil && st.List == nil && st.Union == nil {
			if issue := reportMissing(r, schema, CategorySimpleType, st.QName); issue != nil {
				if issue2 := reportMissing(r, schema, CategoryComplexType, st.QName); issue2 != nil {
					issues = append(issues, issue)
				}
			}
		}
	}
	for _, t := range schema.TypeDefs {
		ct, ok := t.(*ComplexType)
		if !ok {
			continue
		}
		for _, attr := range ct.Attributes {
			if st, ok := attr.Type.(*SimpleType); ok && st.Restriction == nil && st.List == nil && st.Union == nil {
				if issue := reportMissing(r, schema, CategorySimpleType, st.QName); issue != nil {
					issues = append(issues, issue)
				}
			}
		}
	}
	return issues
}

func checkTypeDefs(r *SchemaRepository, schema *Schema) []*ReferenceNotFoundError {
	var issues []*ReferenceNotFoundError
	for _, t := range schema.TypeDefs {
		switch typ := t.(type) {
		case *SimpleType:
			if typ.Restriction != nil && typ.Restriction.Base != (QName{}) {
				if issue := reportMissing(r, schema, CategorySimpleType, typ.Restriction.Base); issue != nil {
					issues = append(issues, issue)
				}
			}
			if typ.List != nil && typ.List.ItemType != (QName{}) {
				if issue := reportMissing(r, schema, CategorySimpleType, typ.List.ItemType); issue != nil {
					issues = append(issues, issue)
				}
			}
			for _, member := range typ.Union.members() {
				if issue := reportMissing(r, schema, CategorySimpleType, member); issue != nil {
					issues = append(issues, issue)
				}
			}
		case *ComplexType:
			issues = append(issues, checkContentBase(r, schema, typ.Content)...)
		}
	}
	return issues
}

// members guards against a nil Union receiver.
func (u *Union) members() []QName {
	if u == nil {
		return nil
	}
	return u.MemberTypes
}

func checkContentBase(r *SchemaRepository, schema *Schema, content Content) []*ReferenceNotFoundError {
	var issues []*ReferenceNotFoundError
	var base QName
	switch c := content.(type) {
	case *ComplexContent:
		base = contentBase(c.Base, c.Extension, c.Restriction)
	case *SimpleContent:
		base = contentBase(c.Base, c.Extension, c.Restriction)
	default:
		return nil
	}
	if base == (QName{}) {
		return nil
	}
	if issue := reportMissing(r, schema, CategoryComplexType, base); issue != nil {
		if issue2 := reportMissing(r, schema, CategorySimpleType, base); issue2 != nil {
			issues = append(issues, issue)
		}
	}
	return issues
}

func contentBase(declared QName, ext *Extension, restr *Restriction) QName {
	if ext != nil && ext.Base != (QName{}) {
		return ext.Base
	}
	if restr != nil && restr.Base != (QName{}) {
		return restr.Base
	}
	return declared
}

func checkGroups(r *SchemaRepository, schema *Schema) []*ReferenceNotFoundError {
	var issues []*ReferenceNotFoundError
	for _, t := range schema.TypeDefs {
		ct, ok := t.(*ComplexType)
		if !ok {
			continue
		}
		for _, agRef := range ct.AttributeGroup {
			if issue := reportMissing(r, schema, CategoryAttributeGroup, agRef); issue != nil {
				issues = append(issues, issue)
			}
		}
		if gr, ok := ct.Content.(*GroupRef); ok {
			if issue := reportMissing(r, schema, CategoryGroup, gr.Ref); issue != nil {
				issues = append(issues, issue)
			}
		}
	}
	for _, group := range schema.Groups {
		for _, p := range group.Particles {
			switch particle := p.(type) {
			case *ElementRef:
				if issue := reportMissing(r, schema, CategoryElement, particle.Ref); issue != nil {
					issues = append(issues, issue)
				}
			case *GroupRef:
				if issue := reportMissing(r, schema, CategoryGroup, particle.Ref); issue != nil {
					issues = append(issues, issue)
				}
			}
		}
	}
	return issues
}

func checkImports(r *SchemaRepository, schema *Schema) []*ReferenceNotFoundError {
	var issues []*ReferenceNotFoundError
	for _, imp := range schema.Imports {
		if imp.Namespace == "" {
			continue
		}
		found := false
		for _, s := range r.Schemas() {
			if s.TargetNamespace == imp.Namespace {
				found = true
				break
			}
		}
		if !found {
			issues = append(issues, &ReferenceNotFoundError{
				Kind:     "import",
				QName:    QName{Namespace: imp.Namespace},
				From:     schema.Location,
				Severity: externalTargetSeverity(r.XSDMode),
			})
		}
	}
	return issues
}

func checkIncludes(r *SchemaRepository, schema *Schema) []*ReferenceNotFoundError {
	var issues []*ReferenceNotFoundError
	for _, inc := range schema.Includes {
		if inc.SchemaLocation != "" && inc.Resolved == nil {
			issues = append(issues, &ReferenceNotFoundError{
				Kind:     "include",
				QName:    QName{Local: inc.SchemaLocation},
				From:     schema.Location,
				Severity: externalTargetSeverity(r.XSDMode),
			})
		}
	}
	return issues
}

func checkRedefines(r *SchemaRepository, schema *Schema) []*ReferenceNotFoundError {
	var issues []*ReferenceNotFoundError
	for _, red := range schema.Redefines {
		if red.SchemaLocation != "" && red.Resolved == nil {
			issues = append(issues, &ReferenceNotFoundError{
				Kind:     "redefine",
				QName:    QName{Local: red.SchemaLocation},
				From:     schema.Location,
				Severity: externalTargetSeverity(r.XSDMode),
			})
			continue
		}
		if red.Resolved == nil {
			continue
		}
		for _, q := range append(append(append(append([]QName{}, red.OverriddenComplex...), red.OverriddenSimple...), red.OverriddenGroups...), red.OverriddenAttrGroups...) {
			shadowed := QName{Namespace: q.Namespace, Local: q.Local + redefinedBaseSuffix}
			_, hasShadow := red.Resolved.TypeDefs[shadowed]
			_, hasCurrent := red.Resolved.TypeDefs[q]
			if !hasShadow && !hasCurrent {
				if _, ok := red.Resolved.Groups[q]; ok {
					continue
				}
				if _, ok := red.Resolved.AttributeGroups[q]; ok {
					continue
				}
				issues = append(issues, &ReferenceNotFoundError{
					Kind:     "redefine-target",
					QName:    q,
					From:     schema.Location,
					Severity: SeverityError,
				})
			}
		}
	}
	return issues
}

package example

import (
	"sort"

	"github.com/beevik/etree"

	"github.com/regurgitator/swagger2regurgitator/internal/spec"
)

// BuildXML returns the XML-shaped example for schema. The element is named after the
// schema's xml.name, then its component name, then fallback. It makes the same choices
// as Build: a nil element where Build returns nil, and a literal example where Build
// returns one.
func (s *Synthesizer) BuildXML(fallback string, schema *spec.Schema) (*etree.Element, error) {
	if fallback == "" {
		fallback = "xml"
	}
	r, err := s.flatten(schema, 0)
	if err != nil {
		return nil, err
	}
	switch {
	case r.HasProperties(), r.Type == "array":
		return s.buildXML(fallback, schema, 0)
	case r.Type == "object":
		el := newElement(elementName(r, fallback), r.XML)
		if r.Example != nil {
			appendExample(el, r.Example)
		}
		return el, nil
	case r.Type != "":
		if r.Example == nil {
			return nil, nil
		}
		el := newElement(elementName(r, fallback), r.XML)
		el.SetText(text(s.scalar(r)))
		return el, nil
	case r.Example != nil:
		el := newElement(elementName(r, fallback), r.XML)
		appendExample(el, r.Example)
		return el, nil
	}
	return nil, &UnconstructableSchemaError{Reason: describe(schema)}
}

// buildXML builds an object or array element.
func (s *Synthesizer) buildXML(fallback string, schema *spec.Schema, depth int) (*etree.Element, error) {
	r, err := s.flatten(schema, depth)
	if err != nil {
		return nil, err
	}
	el := newElement(elementName(r, fallback), r.XML)
	if depth >= MaxDepth {
		return el, nil
	}

	if r.Type == "array" && !r.HasProperties() {
		if r.Items == nil {
			return nil, &UnconstructableSchemaError{Reason: "array without items"}
		}
		item, err := s.xmlItem(itemName(r.Items, el.Tag), r.Items, depth+1)
		if err != nil {
			return nil, err
		}
		el.AddChild(item)
		return el, nil
	}
	props, err := s.properties(r, depth)
	if err != nil {
		return nil, err
	}
	for _, p := range props {
		if err := s.appendProperty(el, p, depth+1); err != nil {
			return nil, err
		}
	}
	return el, nil
}

// appendProperty adds one property to parent as a child element, an attribute, or for
// arrays an optionally wrapped item element.
func (s *Synthesizer) appendProperty(parent *etree.Element, p spec.Property, depth int) error {
	name := p.Name
	if x := p.Schema.XML; x != nil && x.Name != "" {
		name = x.Name
	}
	r, err := s.flatten(p.Schema, depth)
	if err != nil {
		return err
	}

	switch {
	case depth >= MaxDepth && nested(r):
		parent.AddChild(newElement(elementName(r, name), r.XML))
	case r.HasProperties() || r.Type == "object":
		child, err := s.buildXML(name, p.Schema, depth)
		if err != nil {
			return err
		}
		parent.AddChild(child)
	case r.Type == "array":
		if r.Items == nil {
			return &UnconstructableSchemaError{Reason: "array without items"}
		}
		target := parent
		if x := p.Schema.XML; x != nil && x.Wrapped {
			target = parent.CreateElement(name)
		}
		item, err := s.xmlItem(itemName(r.Items, p.Name), r.Items, depth+1)
		if err != nil {
			return err
		}
		target.AddChild(item)
	default:
		v := text(s.scalar(r))
		if x := p.Schema.XML; x != nil && x.Attribute {
			parent.CreateAttr(name, v)
			return nil
		}
		parent.CreateElement(name).SetText(v)
	}
	return nil
}

// xmlItem builds one array item: objects recurse, scalars become a text element.
func (s *Synthesizer) xmlItem(name string, schema *spec.Schema, depth int) (*etree.Element, error) {
	r, err := s.flatten(schema, depth)
	if err != nil {
		return nil, err
	}
	if nested(r) {
		if depth >= MaxDepth {
			return newElement(elementName(r, name), r.XML), nil
		}
		return s.buildXML(name, schema, depth)
	}
	el := newElement(name, r.XML)
	el.SetText(text(s.scalar(r)))
	return el, nil
}

// appendExample renders a literal example into el: mappings become child elements in key
// order, sequences repeat the child element and anything else becomes text.
func appendExample(el *etree.Element, v any) {
	switch ex := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(ex))
		for k := range ex {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			appendExampleChild(el, k, ex[k])
		}
	case []any:
		for _, item := range ex {
			appendExample(el.CreateElement(el.Tag), item)
		}
	case nil:
	default:
		el.SetText(text(ex))
	}
}

func appendExampleChild(parent *etree.Element, name string, v any) {
	if items, ok := v.([]any); ok {
		for _, item := range items {
			appendExample(parent.CreateElement(name), item)
		}
		return
	}
	appendExample(parent.CreateElement(name), v)
}

func itemName(items *spec.Schema, fallback string) string {
	if items.XML != nil && items.XML.Name != "" {
		return items.XML.Name
	}
	return fallback
}

func elementName(r *spec.Schema, fallback string) string {
	if r.XML != nil && r.XML.Name != "" {
		return r.XML.Name
	}
	if r.Name != "" {
		return r.Name
	}
	return fallback
}

// newElement applies the prefix and declares the namespace on the element that owns it.
func newElement(name string, x *spec.XML) *etree.Element {
	if x == nil {
		return etree.NewElement(name)
	}
	el := etree.NewElement(name)
	if x.Prefix != "" {
		el.Space = x.Prefix
	}
	switch {
	case x.Namespace != "" && x.Prefix != "":
		el.CreateAttr("xmlns:"+x.Prefix, x.Namespace)
	case x.Namespace != "":
		el.CreateAttr("xmlns", x.Namespace)
	}
	return el
}

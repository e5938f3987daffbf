// Package xmlemitter encodes and decodes the XML form of regurgitator configuration.
package xmlemitter

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/regurgitator/swagger2regurgitator/internal/dsl"
)

// Namespaces declared on every configuration root.
const (
	CoreNamespace      = "http://core.regurgitator.emarte.uk"
	ExtensionNamespace = "http://extensions.regurgitator.emarte.uk"
	WebNamespace       = "http://web.extensions.regurgitator.emarte.uk"
	InstanceNamespace  = "http://www.w3.org/2001/XMLSchema-instance"
)

const (
	core = "rg"
	web  = "rgw"

	rootTag = "regurgitator-configuration"
)

// Document builds the configuration as an etree document.
func Document(cfg *dsl.Configuration) (*etree.Document, error) {
	if cfg == nil {
		return nil, fmt.Errorf("xmlemitter: nil configuration")
	}
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(core + ":" + rootTag)
	root.CreateAttr("xmlns:rg", CoreNamespace)
	root.CreateAttr("xmlns:rge", ExtensionNamespace)
	root.CreateAttr("xmlns:rgw", WebNamespace)
	root.CreateAttr("xmlns:xsi", InstanceNamespace)
	if err := encodeSteps(root, cfg.Steps); err != nil {
		return nil, err
	}
	return doc, nil
}

// Encode renders cfg as indented XML.
func Encode(cfg *dsl.Configuration) ([]byte, error) {
	doc, err := Document(cfg)
	if err != nil {
		return nil, err
	}
	doc.Indent(2)
	return doc.WriteToBytes()
}

func encodeSteps(parent *etree.Element, steps []dsl.Step) error {
	for _, s := range steps {
		if err := encodeStep(parent, s); err != nil {
			return err
		}
	}
	return nil
}

func setIfPresent(el *etree.Element, key, value string) {
	if value != "" {
		el.CreateAttr(key, value)
	}
}

func encodeStep(parent *etree.Element, s dsl.Step) error {
	switch s.Kind() {
	case dsl.KindCreateHTTPResponse:
		v := s.(dsl.CreateHTTPResponse)
		el := parent.CreateElement(web + ":" + string(v.Kind()))
		setIfPresent(el, "id", v.ID)
		setIfPresent(el, "value", v.Value)
		setIfPresent(el, "file", v.File)
		if v.StatusCode != 0 {
			el.CreateAttr("status-code", strconv.Itoa(v.StatusCode))
		}
		setIfPresent(el, "content-type", v.ContentType)
	case dsl.KindCreateResponse:
		v := s.(dsl.CreateResponse)
		el := parent.CreateElement(core + ":" + string(v.Kind()))
		setIfPresent(el, "id", v.ID)
		setIfPresent(el, "value", v.Value)
		setIfPresent(el, "file", v.File)
	case dsl.KindCreateParameter:
		v := s.(dsl.CreateParameter)
		el := parent.CreateElement(core + ":" + string(v.Kind()))
		setIfPresent(el, "name", v.Name)
		setIfPresent(el, "source", v.Source)
		setIfPresent(el, "value", v.Value)
		if v.Optional {
			el.CreateAttr("optional", "true")
		}
		switch p := v.Processor.(type) {
		case nil:
		case dsl.ExtractProcessor:
			pe := el.CreateElement(core + ":" + p.ProcessorKind())
			pe.CreateAttr("format", p.Format)
			pe.CreateAttr("index", strconv.Itoa(p.Index))
		case dsl.QueryParamProcessor:
			pe := el.CreateElement(web + ":" + p.ProcessorKind())
			pe.CreateAttr("key", p.Key)
		default:
			return fmt.Errorf("xmlemitter: unknown processor %q", p.ProcessorKind())
		}
	case dsl.KindSequence:
		v := s.(dsl.Sequence)
		el := parent.CreateElement(core + ":" + string(v.Kind()))
		setIfPresent(el, "id", v.ID)
		return encodeSteps(el, v.Steps)
	case dsl.KindSequenceRef:
		v := s.(dsl.SequenceRef)
		el := parent.CreateElement(core + ":" + string(v.Kind()))
		setIfPresent(el, "id", v.ID)
		setIfPresent(el, "file", v.File)
	case dsl.KindDecision:
		v := s.(dsl.Decision)
		el := parent.CreateElement(core + ":" + string(v.Kind()))
		setIfPresent(el, "id", v.ID)
		if err := encodeSteps(el.CreateElement(core+":steps"), v.Steps); err != nil {
			return err
		}
		rules := el.CreateElement(core + ":rules")
		setIfPresent(rules, "default-step", v.DefaultStep)
		for _, r := range v.Rules {
			re := rules.CreateElement(core + ":rule")
			re.CreateAttr("step", r.Step)
			for _, c := range r.Conditions {
				ce := re.CreateElement(core + ":condition")
				ce.CreateAttr("source", c.Source)
				switch c.Op {
				case dsl.OpEquals:
					ce.CreateAttr("equals", c.Value)
				case dsl.OpMatches:
					ce.CreateAttr("matches", c.Value)
				case dsl.OpExists:
					ce.CreateAttr("exists", "true")
				default:
					return fmt.Errorf("xmlemitter: unknown operator %q", c.Op)
				}
			}
		}
	default:
		return fmt.Errorf("xmlemitter: unknown step kind %q", s.Kind())
	}
	return nil
}

// Decode parses the XML form back into a configuration. Elements are matched by local
// name; prefixes are not checked.
func Decode(data []byte) (*dsl.Configuration, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("xmlemitter: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != rootTag {
		return nil, fmt.Errorf("xmlemitter: missing %s root element", rootTag)
	}
	steps, err := decodeSteps(root)
	if err != nil {
		return nil, err
	}
	return &dsl.Configuration{Steps: steps}, nil
}

func decodeSteps(parent *etree.Element) ([]dsl.Step, error) {
	var out []dsl.Step
	for _, el := range parent.ChildElements() {
		s, err := decodeStep(el)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func attr(el *etree.Element, key string) string {
	return el.SelectAttrValue(key, "")
}

func decodeStep(el *etree.Element) (dsl.Step, error) {
	switch dsl.Kind(el.Tag) {
	case dsl.KindCreateHTTPResponse:
		s := dsl.CreateHTTPResponse{ID: attr(el, "id"), Value: attr(el, "value"), File: attr(el, "file"), ContentType: attr(el, "content-type")}
		if code := attr(el, "status-code"); code != "" {
			n, err := strconv.Atoi(code)
			if err != nil {
				return nil, fmt.Errorf("xmlemitter: %s status-code %q: %w", s.ID, code, err)
			}
			s.StatusCode = n
		}
		return s, nil
	case dsl.KindCreateResponse:
		return dsl.CreateResponse{ID: attr(el, "id"), Value: attr(el, "value"), File: attr(el, "file")}, nil
	case dsl.KindCreateParameter:
		p := dsl.CreateParameter{Name: attr(el, "name"), Source: attr(el, "source"), Value: attr(el, "value"), Optional: attr(el, "optional") == "true"}
		if children := el.ChildElements(); len(children) > 0 {
			proc, err := decodeProcessor(children[0])
			if err != nil {
				return nil, err
			}
			p.Processor = proc
		}
		return p, nil
	case dsl.KindSequence:
		steps, err := decodeSteps(el)
		if err != nil {
			return nil, err
		}
		return dsl.Sequence{ID: attr(el, "id"), Steps: steps}, nil
	case dsl.KindSequenceRef:
		return dsl.SequenceRef{ID: attr(el, "id"), File: attr(el, "file")}, nil
	case dsl.KindDecision:
		return decodeDecision(el)
	}
	return nil, fmt.Errorf("xmlemitter: unknown step element %q", el.FullTag())
}

func decodeProcessor(el *etree.Element) (dsl.Processor, error) {
	switch el.Tag {
	case dsl.ExtractProcessor{}.ProcessorKind():
		idx, err := strconv.Atoi(attr(el, "index"))
		if err != nil {
			return nil, fmt.Errorf("xmlemitter: extract-processor index: %w", err)
		}
		return dsl.ExtractProcessor{Format: attr(el, "format"), Index: idx}, nil
	case dsl.QueryParamProcessor{}.ProcessorKind():
		return dsl.QueryParamProcessor{Key: attr(el, "key")}, nil
	}
	return nil, fmt.Errorf("xmlemitter: unknown processor element %q", el.FullTag())
}

func decodeDecision(el *etree.Element) (dsl.Step, error) {
	d := dsl.Decision{ID: attr(el, "id")}
	if steps := el.FindElement("./steps"); steps != nil {
		s, err := decodeSteps(steps)
		if err != nil {
			return nil, err
		}
		d.Steps = s
	}
	rules := el.FindElement("./rules")
	if rules == nil {
		return d, nil
	}
	d.DefaultStep = attr(rules, "default-step")
	for _, re := range rules.SelectElements("rule") {
		r := dsl.Rule{Step: attr(re, "step")}
		for _, ce := range re.SelectElements("condition") {
			c, err := decodeCondition(ce)
			if err != nil {
				return nil, err
			}
			r.Conditions = append(r.Conditions, c)
		}
		d.Rules = append(d.Rules, r)
	}
	return d, nil
}

func decodeCondition(el *etree.Element) (dsl.Condition, error) {
	source := attr(el, "source")
	var found []dsl.Condition
	if a := el.SelectAttr("equals"); a != nil {
		found = append(found, dsl.Equals(source, a.Value))
	}
	if a := el.SelectAttr("matches"); a != nil {
		found = append(found, dsl.Matches(source, a.Value))
	}
	if el.SelectAttr("exists") != nil {
		found = append(found, dsl.Exists(source))
	}
	if len(found) != 1 {
		return dsl.Condition{}, fmt.Errorf("xmlemitter: condition on %q needs exactly one of equals, matches, exists", source)
	}
	return found[0], nil
}

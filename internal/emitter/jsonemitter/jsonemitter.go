// Package jsonemitter encodes and decodes the JSON form of regurgitator configuration.
package jsonemitter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/regurgitator/swagger2regurgitator/internal/dsl"
)

// Encode renders cfg as indented JSON.
func Encode(cfg *dsl.Configuration) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("jsonemitter: nil configuration")
	}
	steps, err := encodeSteps(cfg.Steps)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(configDoc{Kind: configurationKind, Steps: steps}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeSteps(steps []dsl.Step) ([]stepDoc, error) {
	out := make([]stepDoc, 0, len(steps))
	for _, s := range steps {
		d, err := encodeStep(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func encodeStep(s dsl.Step) (stepDoc, error) {
	d := stepDoc{Kind: string(s.Kind())}
	switch s.Kind() {
	case dsl.KindCreateHTTPResponse:
		v := s.(dsl.CreateHTTPResponse)
		d.ID, d.Value, d.File, d.StatusCode, d.ContentType = v.ID, v.Value, v.File, v.StatusCode, v.ContentType
	case dsl.KindCreateResponse:
		v := s.(dsl.CreateResponse)
		d.ID, d.Value, d.File = v.ID, v.Value, v.File
	case dsl.KindCreateParameter:
		v := s.(dsl.CreateParameter)
		d.Name, d.Source, d.Value, d.Optional = v.Name, v.Source, v.Value, v.Optional
		p, err := encodeProcessor(v.Processor)
		if err != nil {
			return d, err
		}
		d.Processor = p
	case dsl.KindSequence:
		v := s.(dsl.Sequence)
		d.ID = v.ID
		steps, err := encodeSteps(v.Steps)
		if err != nil {
			return d, err
		}
		d.Steps = steps
	case dsl.KindSequenceRef:
		v := s.(dsl.SequenceRef)
		d.ID, d.File = v.ID, v.File
	case dsl.KindDecision:
		v := s.(dsl.Decision)
		d.ID, d.DefaultStep = v.ID, v.DefaultStep
		steps, err := encodeSteps(v.Steps)
		if err != nil {
			return d, err
		}
		d.Steps = steps
		for _, r := range v.Rules {
			rd := ruleDoc{Step: r.Step, Conditions: make([]conditionDoc, 0, len(r.Conditions))}
			for _, c := range r.Conditions {
				cd, err := encodeCondition(c)
				if err != nil {
					return d, err
				}
				rd.Conditions = append(rd.Conditions, cd)
			}
			d.Rules = append(d.Rules, rd)
		}
	default:
		return d, fmt.Errorf("jsonemitter: unknown step kind %q", s.Kind())
	}
	return d, nil
}

func encodeProcessor(p dsl.Processor) (*processorDoc, error) {
	switch v := p.(type) {
	case nil:
		return nil, nil
	case dsl.ExtractProcessor:
		idx := v.Index
		return &processorDoc{Kind: v.ProcessorKind(), Format: v.Format, Index: &idx}, nil
	case dsl.QueryParamProcessor:
		return &processorDoc{Kind: v.ProcessorKind(), Key: v.Key}, nil
	}
	return nil, fmt.Errorf("jsonemitter: unknown processor %q", p.ProcessorKind())
}

func encodeCondition(c dsl.Condition) (conditionDoc, error) {
	cd := conditionDoc{Source: c.Source}
	switch c.Op {
	case dsl.OpEquals:
		v := c.Value
		cd.Equals = &v
	case dsl.OpMatches:
		v := c.Value
		cd.Matches = &v
	case dsl.OpExists:
		cd.Exists = "true"
	default:
		return cd, fmt.Errorf("jsonemitter: unknown operator %q", c.Op)
	}
	return cd, nil
}

// Decode parses the JSON form back into a configuration.
func Decode(data []byte) (*dsl.Configuration, error) {
	var doc configDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jsonemitter: %w", err)
	}
	if doc.Kind != configurationKind {
		return nil, fmt.Errorf("jsonemitter: unexpected document kind %q", doc.Kind)
	}
	steps, err := decodeSteps(doc.Steps)
	if err != nil {
		return nil, err
	}
	return &dsl.Configuration{Steps: steps}, nil
}

func decodeSteps(docs []stepDoc) ([]dsl.Step, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := make([]dsl.Step, 0, len(docs))
	for _, d := range docs {
		s, err := decodeStep(d)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeStep(d stepDoc) (dsl.Step, error) {
	switch dsl.Kind(d.Kind) {
	case dsl.KindCreateHTTPResponse:
		return dsl.CreateHTTPResponse{ID: d.ID, Value: d.Value, File: d.File, StatusCode: d.StatusCode, ContentType: d.ContentType}, nil
	case dsl.KindCreateResponse:
		return dsl.CreateResponse{ID: d.ID, Value: d.Value, File: d.File}, nil
	case dsl.KindCreateParameter:
		p := dsl.CreateParameter{Name: d.Name, Source: d.Source, Value: d.Value, Optional: d.Optional}
		if d.Processor != nil {
			proc, err := decodeProcessor(d.Processor)
			if err != nil {
				return nil, err
			}
			p.Processor = proc
		}
		return p, nil
	case dsl.KindSequence:
		steps, err := decodeSteps(d.Steps)
		if err != nil {
			return nil, err
		}
		return dsl.Sequence{ID: d.ID, Steps: steps}, nil
	case dsl.KindSequenceRef:
		return dsl.SequenceRef{ID: d.ID, File: d.File}, nil
	case dsl.KindDecision:
		steps, err := decodeSteps(d.Steps)
		if err != nil {
			return nil, err
		}
		dec := dsl.Decision{ID: d.ID, Steps: steps, DefaultStep: d.DefaultStep}
		for _, rd := range d.Rules {
			r := dsl.Rule{Step: rd.Step}
			for _, cd := range rd.Conditions {
				c, err := decodeCondition(cd)
				if err != nil {
					return nil, err
				}
				r.Conditions = append(r.Conditions, c)
			}
			dec.Rules = append(dec.Rules, r)
		}
		return dec, nil
	}
	return nil, fmt.Errorf("jsonemitter: unknown step kind %q", d.Kind)
}

func decodeProcessor(p *processorDoc) (dsl.Processor, error) {
	switch p.Kind {
	case dsl.ExtractProcessor{}.ProcessorKind():
		idx := 0
		if p.Index != nil {
			idx = *p.Index
		}
		return dsl.ExtractProcessor{Format: p.Format, Index: idx}, nil
	case dsl.QueryParamProcessor{}.ProcessorKind():
		return dsl.QueryParamProcessor{Key: p.Key}, nil
	}
	return nil, fmt.Errorf("jsonemitter: unknown processor kind %q", p.Kind)
}

func decodeCondition(cd conditionDoc) (dsl.Condition, error) {
	set := 0
	c := dsl.Condition{Source: cd.Source}
	if cd.Equals != nil {
		c.Op, c.Value = dsl.OpEquals, *cd.Equals
		set++
	}
	if cd.Matches != nil {
		c.Op, c.Value = dsl.OpMatches, *cd.Matches
		set++
	}
	if cd.Exists != "" {
		c.Op = dsl.OpExists
		set++
	}
	if set != 1 {
		return c, fmt.Errorf("jsonemitter: condition on %q needs exactly one of equals, matches, exists", cd.Source)
	}
	return c, nil
}

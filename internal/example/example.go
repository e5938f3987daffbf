// Package example synthesizes example payloads from schemas.
//
// Build produces a JSON-shaped tree (Object, []any and scalars) and BuildXML an
// element tree. Both walk the schema with an explicit depth counter and pick scalar
// values through the same choosers, so they only differ in container shape. Nested
// objects and arrays at MaxDepth become an empty mapping, which keeps self-referencing
// component graphs finite.
package example

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/regurgitator/swagger2regurgitator/internal/spec"
)

// MaxDepth bounds recursive expansion.
const MaxDepth = 20

// UnconstructableSchemaError reports a schema with no type, no properties and no
// example. Callers skip the example for that media type.
type UnconstructableSchemaError struct {
	Reason string
}

func (e *UnconstructableSchemaError) Error() string {
	return "cannot construct example: " + e.Reason
}

// Synthesizer builds examples against a set of component schemas.
type Synthesizer struct {
	components spec.Components
	now        func() time.Time
	newUUID    func() string
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithClock sets the clock used for date and date-time values.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithUUID sets the generator used for uuid values.
func WithUUID(gen func() string) Option {
	return func(s *Synthesizer) {
		if gen != nil {
			s.newUUID = gen
		}
	}
}

// New returns a Synthesizer resolving references against components.
func New(components spec.Components, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		components: components,
		now:        time.Now,
		newUUID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SequentialUUIDs returns a generator of name-based UUIDs derived from seed and a
// counter. Two generators with the same seed yield the same sequence.
func SequentialUUIDs(seed string) func() string {
	n := 0
	return func() string {
		n++
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s/%d", seed, n))).String()
	}
}

// Build returns the JSON-shaped example for schema.
func (s *Synthesizer) Build(schema *spec.Schema) (any, error) {
	return s.build(schema, 0)
}

func (s *Synthesizer) build(schema *spec.Schema, depth int) (any, error) {
	r, err := s.flatten(schema, depth)
	if err != nil {
		return nil, err
	}
	switch {
	case r.HasProperties(), r.Type == "array":
		return s.value(r, depth)
	case r.Type == "object":
		if r.Example != nil {
			return r.Example, nil
		}
		return Object{}, nil
	case r.Type != "":
		if r.Example == nil {
			return nil, nil
		}
		return s.scalar(r), nil
	case r.Example != nil:
		return r.Example, nil
	}
	return nil, &UnconstructableSchemaError{Reason: describe(schema)}
}

// value builds the example of a property or array item. Scalars are always computed;
// only nested containers are cut off at MaxDepth.
func (s *Synthesizer) value(schema *spec.Schema, depth int) (any, error) {
	r, err := s.flatten(schema, depth)
	if err != nil {
		return nil, err
	}
	switch {
	case depth >= MaxDepth && nested(r):
		return Object{}, nil
	case r.HasProperties() || r.Type == "object":
		return s.object(r, depth)
	case r.Type == "array":
		if r.Items == nil {
			return nil, &UnconstructableSchemaError{Reason: "array without items"}
		}
		item, err := s.value(r.Items, depth+1)
		if err != nil {
			return nil, err
		}
		return []any{item}, nil
	}
	return s.scalar(r), nil
}

func (s *Synthesizer) object(r *spec.Schema, depth int) (Object, error) {
	props, err := s.properties(r, depth)
	if err != nil {
		return nil, err
	}
	obj := make(Object, 0, len(props))
	for _, p := range props {
		v, err := s.value(p.Schema, depth+1)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", p.Name, err)
		}
		obj = append(obj, Field{Key: p.Name, Value: v})
	}
	return obj, nil
}

// properties returns the declared properties, or those of an additionalProperties
// object schema when none are declared.
func (s *Synthesizer) properties(r *spec.Schema, depth int) ([]spec.Property, error) {
	if len(r.Properties) > 0 || r.AdditionalProperties == nil {
		return r.Properties, nil
	}
	ap, err := s.flatten(r.AdditionalProperties, depth+1)
	if err != nil {
		return nil, err
	}
	return ap.Properties, nil
}

// flatten resolves references and compositions: allOf merges its members' properties in
// order and oneOf/anyOf take their first variant.
func (s *Synthesizer) flatten(schema *spec.Schema, depth int) (*spec.Schema, error) {
	if schema == nil {
		return nil, &UnconstructableSchemaError{Reason: "missing schema"}
	}
	r, err := spec.Resolve(schema, s.components)
	if err != nil {
		return nil, err
	}
	if depth >= MaxDepth {
		return r, nil
	}
	switch {
	case len(r.AllOf) > 0:
		merged := *r
		merged.AllOf = nil
		merged.Properties = nil
		for _, member := range r.AllOf {
			m, err := s.flatten(member, depth+1)
			if err != nil {
				return nil, err
			}
			merged.Properties = mergeProperties(merged.Properties, m.Properties)
			if merged.Type == "" {
				merged.Type = m.Type
			}
			if merged.XML == nil {
				merged.XML = m.XML
			}
		}
		merged.Properties = mergeProperties(merged.Properties, r.Properties)
		return &merged, nil
	case len(r.OneOf) > 0 && !r.HasProperties():
		return s.flatten(r.OneOf[0], depth+1)
	case len(r.AnyOf) > 0 && !r.HasProperties():
		return s.flatten(r.AnyOf[0], depth+1)
	}
	return r, nil
}

// nested reports whether r expands into a container rather than a scalar.
func nested(r *spec.Schema) bool {
	return r.HasProperties() || r.Type == "object" || r.Type == "array" ||
		len(r.AllOf) > 0 || len(r.OneOf) > 0 || len(r.AnyOf) > 0
}

// mergeProperties appends add to base; a repeated name replaces the earlier schema in
// its original position.
func mergeProperties(base, add []spec.Property) []spec.Property {
	for _, p := range add {
		replaced := false
		for i := range base {
			if base[i].Name == p.Name {
				base[i].Schema = p.Schema
				replaced = true
				break
			}
		}
		if !replaced {
			base = append(base, p)
		}
	}
	return base
}

func describe(schema *spec.Schema) string {
	if schema.Ref != "" {
		return "schema " + schema.Ref + " has no type, properties or example"
	}
	if schema.Name != "" {
		return "schema " + schema.Name + " has no type, properties or example"
	}
	return "schema has no type, properties or example"
}

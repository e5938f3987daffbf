package spec

import (
    "fmt"
    "strings"
)

// maxAliasHops bounds component-to-component alias chains such as A: {$ref: B}.
const maxAliasHops = 20

// ReferenceResolutionError reports a $ref whose target is not a known component schema.
type ReferenceResolutionError struct {
    Ref  string
    Name string
}

func (e *ReferenceResolutionError) Error() string {
    return fmt.Sprintf("unresolved schema reference %q (no component %q)", e.Ref, e.Name)
}

// RefName returns the trailing name segment of a reference.
func RefName(ref string) string {
    if i := strings.LastIndex(ref, "/"); i >= 0 {
        return ref[i+1:]
    }
    return ref
}

// Resolve returns the schema a reference points at, or schema itself when it carries no
// reference. Lookup is by the reference's trailing name segment.
func Resolve(schema *Schema, components Components) (*Schema, error) {
    for hops := 0; schema != nil && schema.Ref != ""; hops++ {
        if hops >= maxAliasHops {
            return nil, &ReferenceResolutionError{Ref: schema.Ref, Name: RefName(schema.Ref)}
        }
        name := RefName(schema.Ref)
        target, ok := components[name]
        if !ok || target == nil {
            return nil, &ReferenceResolutionError{Ref: schema.Ref, Name: name}
        }
        schema = target
    }
    return schema, nil
}

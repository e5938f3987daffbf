package spec

import (
    "context"
    "fmt"
    "sort"
    "strings"

    "github.com/bmatcuk/doublestar/v4"
    "github.com/getkin/kin-openapi/openapi3"
)

// BuildOption configures how the Document is built from an OpenAPI doc.
type BuildOption func(*buildConfig)

type buildConfig struct {
    includeTags map[string]struct{}
    excludeTags map[string]struct{}
    methods     map[HttpMethod]struct{}
    pathGlobs   []string
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
    return func(c *buildConfig) {
        c.includeTags = addTags(c.includeTags, tags)
    }
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
    return func(c *buildConfig) {
        c.excludeTags = addTags(c.excludeTags, tags)
    }
}

func addTags(set map[string]struct{}, tags []string) map[string]struct{} {
    for _, t := range tags {
        t = strings.TrimSpace(t)
        if t == "" {
            continue
        }
        if set == nil {
            set = make(map[string]struct{}, len(tags))
        }
        set[t] = struct{}{}
    }
    return set
}

// WithMethods keeps only operations using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
    return func(c *buildConfig) {
        for _, m := range methods {
            if c.methods == nil {
                c.methods = make(map[HttpMethod]struct{}, len(methods))
            }
            c.methods[HttpMethod(strings.ToUpper(string(m)))] = struct{}{}
        }
    }
}

// WithPathGlobs keeps only operations whose path template matches at least one
// doublestar glob, e.g. "/pets/**" or "/stores/*/orders".
func WithPathGlobs(globs []string) BuildOption {
    return func(c *buildConfig) {
        for _, g := range globs {
            if g = strings.TrimSpace(g); g != "" {
                c.pathGlobs = append(c.pathGlobs, g)
            }
        }
    }
}

// BuildDocument converts a loaded OpenAPI v3 document into the Document model. Paths,
// responses, media types and properties keep their declaration order; operations of a
// path follow Methods order.
func BuildDocument(ctx context.Context, src *Source, opts ...BuildOption) (*Document, error) {
    _ = ctx
    if src == nil || src.Doc == nil {
        return nil, fmt.Errorf("nil document")
    }
    cfg := &buildConfig{}
    for _, opt := range opts {
        opt(cfg)
    }
    for _, g := range cfg.pathGlobs {
        if !doublestar.ValidatePattern(g) {
            return nil, fmt.Errorf("invalid path glob %q", g)
        }
    }

    doc := src.Doc
    c := &converter{order: src.Order}
    out := &Document{}
    if doc.Info != nil {
        out.Title = safeStr(doc.Info.Title)
        out.Version = safeStr(doc.Info.Version)
        out.Description = safeStr(doc.Info.Description)
    }
    for _, s := range doc.Servers {
        if s == nil {
            continue
        }
        out.Servers = append(out.Servers, Server{URL: safeStr(s.URL), Description: safeStr(s.Description)})
    }

    out.Schemas = Components{}
    if doc.Components != nil {
        for name, ref := range doc.Components.Schemas {
            s := c.schema(ref, pointer("#/components/schemas", name))
            if s == nil {
                continue
            }
            if s.Ref == "" {
                s.Name = name
            }
            out.Schemas[name] = s
        }
    }

    paths := make([]string, 0, len(doc.Paths))
    for p := range doc.Paths {
        paths = append(paths, p)
    }
    for _, p := range c.order.Ordered("#/paths", paths) {
        item := doc.Paths[p]
        if item == nil || !cfg.allowPath(p) {
            continue
        }
        itemPtr := pointer("#/paths", p)
        base := c.parameters(nil, item.Parameters)

        for _, m := range Methods {
            op := item.GetOperation(string(m))
            if op == nil {
                continue
            }
            if len(cfg.methods) > 0 {
                if _, ok := cfg.methods[m]; !ok {
                    continue
                }
            }
            tags := make([]string, 0, len(op.Tags))
            for _, t := range op.Tags {
                if t = strings.TrimSpace(t); t != "" {
                    tags = append(tags, t)
                }
            }
            if !allowByTags(tags, cfg) {
                continue
            }
            opPtr := pointer(itemPtr, strings.ToLower(string(m)))
            out.Operations = append(out.Operations, Operation{
                ID:          string(m) + " " + p,
                Method:      m,
                Path:        p,
                Summary:     safeStr(op.Summary),
                Description: safeStr(op.Description),
                Tags:        tags,
                Parameters:  c.parameters(base, op.Parameters),
                RequestBody: c.requestBody(op.RequestBody, opPtr+"/requestBody"),
                Responses:   c.responses(op.Responses, opPtr+"/responses"),
            })
        }
    }

    out.Tags = collectSortedTags(out.Operations)
    return out, nil
}

func (c *buildConfig) allowPath(p string) bool {
    if len(c.pathGlobs) == 0 {
        return true
    }
    for _, g := range c.pathGlobs {
        if ok, _ := doublestar.Match(g, p); ok {
            return true
        }
    }
    return false
}

func allowByTags(tags []string, cfg *buildConfig) bool {
    if len(cfg.includeTags) > 0 {
        ok := false
        for _, t := range tags {
            if _, yes := cfg.includeTags[t]; yes {
                ok = true
                break
            }
        }
        if !ok {
            return false
        }
    }
    for _, t := range tags {
        if _, blocked := cfg.excludeTags[t]; blocked {
            return false
        }
    }
    return true
}

func safeStr(s string) string { return strings.TrimSpace(s) }

type converter struct {
    order KeyOrder
}

// parameters merges refs onto base: an entry with the same in+name replaces the base
// entry in place, new entries are appended in declaration order.
func (c *converter) parameters(base []Parameter, refs openapi3.Parameters) []Parameter {
    out := append([]Parameter(nil), base...)
    for _, pref := range refs {
        if pref == nil || pref.Value == nil {
            continue
        }
        p := pref.Value
        pm := Parameter{
            Name:     safeStr(p.Name),
            In:       safeStr(p.In),
            Required: p.Required,
        }
        if p.Schema != nil {
            pm.Schema = c.schema(p.Schema, "")
            if p.Schema.Value != nil {
                pm.Type = safeStr(p.Schema.Value.Type)
            }
        }
        replaced := false
        for i := range out {
            if out[i].In == pm.In && out[i].Name == pm.Name {
                out[i] = pm
                replaced = true
                break
            }
        }
        if !replaced {
            out = append(out, pm)
        }
    }
    return out
}

func (c *converter) requestBody(ref *openapi3.RequestBodyRef, ptr string) *RequestBody {
    if ref == nil || ref.Value == nil {
        return nil
    }
    ptr = refPointer(ref.Ref, ptr)
    return &RequestBody{
        Required: ref.Value.Required,
        Content:  c.content(ref.Value.Content, ptr+"/content"),
    }
}

func (c *converter) responses(rs openapi3.Responses, ptr string) []Response {
    codes := make([]string, 0, len(rs))
    for code := range rs {
        codes = append(codes, code)
    }
    var out []Response
    for _, code := range c.order.Ordered(ptr, codes) {
        rref := rs[code]
        if rref == nil || rref.Value == nil {
            continue
        }
        desc := ""
        if rref.Value.Description != nil {
            desc = safeStr(*rref.Value.Description)
        }
        rptr := refPointer(rref.Ref, pointer(ptr, code))
        out = append(out, Response{
            Status:      code,
            Description: desc,
            Content:     c.content(rref.Value.Content, rptr+"/content"),
        })
    }
    return out
}

func (c *converter) content(content openapi3.Content, ptr string) []Media {
    if len(content) == 0 {
        return nil
    }
    mimes := make([]string, 0, len(content))
    for k := range content {
        mimes = append(mimes, k)
    }
    out := make([]Media, 0, len(mimes))
    for _, mime := range c.order.Ordered(ptr, mimes) {
        mt := content[mime]
        if mt == nil {
            continue
        }
        var ex any
        if mt.Example != nil {
            ex = mt.Example
        } else if len(mt.Examples) > 0 {
            names := make([]string, 0, len(mt.Examples))
            for name := range mt.Examples {
                names = append(names, name)
            }
            first := c.order.Ordered(pointer(ptr, mime, "examples"), names)[0]
            if ref := mt.Examples[first]; ref != nil && ref.Value != nil {
                ex = ref.Value.Value
            }
        }
        out = append(out, Media{
            Mime:    mime,
            Schema:  c.schema(mt.Schema, pointer(ptr, mime, "schema")),
            Example: ex,
        })
    }
    return out
}

// schema converts a kin-openapi schema. References stay references so cyclic component
// graphs remain finite; ptr locates the node in the raw document for key order.
func (c *converter) schema(ref *openapi3.SchemaRef, ptr string) *Schema {
    if ref == nil {
        return nil
    }
    if ref.Ref != "" {
        return &Schema{Ref: ref.Ref}
    }
    v := ref.Value
    if v == nil {
        return &Schema{}
    }
    s := &Schema{
        Type:        safeStr(v.Type),
        Format:      safeStr(v.Format),
        Description: safeStr(v.Description),
        Example:     v.Example,
        Minimum:     v.Min,
    }
    if len(v.Enum) > 0 {
        s.Enum = append([]any(nil), v.Enum...)
    }
    if v.XML != nil {
        s.XML = &XML{
            Name:      v.XML.Name,
            Namespace: v.XML.Namespace,
            Prefix:    v.XML.Prefix,
            Attribute: v.XML.Attribute,
            Wrapped:   v.XML.Wrapped,
        }
    }
    if v.Properties != nil {
        names := make([]string, 0, len(v.Properties))
        for name := range v.Properties {
            names = append(names, name)
        }
        s.Properties = make([]Property, 0, len(names))
        for _, name := range c.order.Ordered(ptr+"/properties", names) {
            s.Properties = append(s.Properties, Property{
                Name:   name,
                Schema: c.schema(v.Properties[name], pointer(ptr, "properties", name)),
            })
        }
    }
    s.Items = c.schema(v.Items, ptr+"/items")
    s.AdditionalProperties = c.schema(v.AdditionalProperties.Schema, ptr+"/additionalProperties")
    if has := v.AdditionalProperties.Has; has != nil && *has {
        s.AdditionalAllowed = true
    }
    s.AllOf = c.schemaList(v.AllOf, ptr+"/allOf")
    s.AnyOf = c.schemaList(v.AnyOf, ptr+"/anyOf")
    s.OneOf = c.schemaList(v.OneOf, ptr+"/oneOf")
    return s
}

func (c *converter) schemaList(refs openapi3.SchemaRefs, ptr string) []*Schema {
    var out []*Schema
    for i, r := range refs {
        if s := c.schema(r, fmt.Sprintf("%s/%d", ptr, i)); s != nil {
            out = append(out, s)
        }
    }
    return out
}

// refPointer prefers the location a local $ref points at, since that is where the keys
// were declared.
func refPointer(ref, fallback string) string {
    if strings.HasPrefix(ref, "#/") {
        return ref
    }
    return fallback
}

func collectSortedTags(ops []Operation) []string {
    set := make(map[string]struct{})
    for _, op := range ops {
        for _, t := range op.Tags {
            set[t] = struct{}{}
        }
    }
    if len(set) == 0 {
        return nil
    }
    out := make([]string, 0, len(set))
    for t := range set {
        out = append(out, t)
    }
    sort.Strings(out)
    return out
}

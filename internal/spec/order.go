package spec

import (
    "sort"
    "strconv"
    "strings"

    "gopkg.in/yaml.v3"
)

// KeyOrder records the declaration order of mapping keys in the raw document, keyed by
// JSON pointer ("#/paths", "#/components/schemas/Pet/properties", ...). kin-openapi
// decodes paths, responses, content and properties into Go maps, so this index is what
// keeps routing priority and example property order tied to the document.
type KeyOrder map[string][]string

// IndexKeyOrder parses raw YAML or JSON and indexes every mapping's key order.
func IndexKeyOrder(raw []byte) (KeyOrder, error) {
    var root yaml.Node
    if err := yaml.Unmarshal(raw, &root); err != nil {
        return nil, err
    }
    ko := KeyOrder{}
    indexNode(&root, "#", ko)
    return ko, nil
}

func indexNode(n *yaml.Node, ptr string, ko KeyOrder) {
    if n == nil {
        return
    }
    switch n.Kind {
    case yaml.DocumentNode:
        for _, c := range n.Content {
            indexNode(c, ptr, ko)
        }
    case yaml.MappingNode:
        keys := make([]string, 0, len(n.Content)/2)
        for i := 0; i+1 < len(n.Content); i += 2 {
            k := n.Content[i].Value
            if k == "<<" {
                continue
            }
            keys = append(keys, k)
            indexNode(n.Content[i+1], ptr+"/"+escapePointer(k), ko)
        }
        ko[ptr] = keys
    case yaml.SequenceNode:
        for i, c := range n.Content {
            indexNode(c, ptr+"/"+strconv.Itoa(i), ko)
        }
    case yaml.AliasNode:
        indexNode(n.Alias, ptr, ko)
    }
}

// Ordered returns keys in document order for the mapping at ptr. Keys the index does
// not know about follow in lexical order, so the result is deterministic either way.
func (k KeyOrder) Ordered(ptr string, keys []string) []string {
    present := make(map[string]struct{}, len(keys))
    for _, key := range keys {
        present[key] = struct{}{}
    }
    out := make([]string, 0, len(keys))
    for _, key := range k[ptr] {
        if _, ok := present[key]; ok {
            out = append(out, key)
            delete(present, key)
        }
    }
    rest := make([]string, 0, len(present))
    for key := range present {
        rest = append(rest, key)
    }
    sort.Strings(rest)
    return append(out, rest...)
}

// Alias copies every entry under the from prefix to the same location under to, for
// documents whose locations moved during conversion.
func (k KeyOrder) Alias(from, to string) {
    for ptr, keys := range k {
        if ptr == from || strings.HasPrefix(ptr, from+"/") {
            k[to+strings.TrimPrefix(ptr, from)] = keys
        }
    }
}

func escapePointer(s string) string {
    s = strings.ReplaceAll(s, "~", "~0")
    return strings.ReplaceAll(s, "/", "~1")
}

// pointer joins reference tokens onto a base pointer.
func pointer(base string, tokens ...string) string {
    var b strings.Builder
    b.WriteString(base)
    for _, t := range tokens {
        b.WriteByte('/')
        b.WriteString(escapePointer(t))
    }
    return b.String()
}

// Package pathtmpl compiles OpenAPI path templates such as /pets/{petId} into request
// matchers and positional extraction formats.
package pathtmpl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/regurgitator/swagger2regurgitator/internal/dsl"
	"github.com/regurgitator/swagger2regurgitator/internal/spec"
)

const (
	numericClass      = "0-9"
	alphanumericClass = "A-Za-z0-9-"
)

// PathCompilationError reports a malformed path template.
type PathCompilationError struct {
	Path   string
	Offset int
	Reason string
}

func (e *PathCompilationError) Error() string {
	return fmt.Sprintf("path template %q: %s at offset %d", e.Path, e.Reason, e.Offset)
}

// Template is a parsed path template. Literals always has one more entry than Params:
// Literals[i] precedes Params[i] and the last literal trails the final placeholder.
type Template struct {
	Path     string
	Literals []string
	Params   []string
}

// Parse splits path into literal segments and placeholder names.
func Parse(path string) (*Template, error) {
	t := &Template{Path: path}
	open := -1
	last := 0
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '{':
			if open >= 0 {
				return nil, &PathCompilationError{Path: path, Offset: i, Reason: "nested '{'"}
			}
			open = i
		case '}':
			if open < 0 {
				return nil, &PathCompilationError{Path: path, Offset: i, Reason: "unbalanced '}'"}
			}
			name := path[open+1 : i]
			if strings.TrimSpace(name) == "" {
				return nil, &PathCompilationError{Path: path, Offset: open, Reason: "empty placeholder name"}
			}
			t.Literals = append(t.Literals, path[last:open])
			t.Params = append(t.Params, name)
			last = i + 1
			open = -1
		}
	}
	if open >= 0 {
		return nil, &PathCompilationError{Path: path, Offset: open, Reason: "unbalanced '{'"}
	}
	t.Literals = append(t.Literals, path[last:])
	return t, nil
}

// placeholder describes how one placeholder is matched.
type placeholder struct {
	integer  bool
	required bool
}

// lookup finds the in: path parameter named name. Undeclared placeholders are treated
// as required strings.
func lookup(name string, params []spec.Parameter) placeholder {
	for _, p := range params {
		if p.In == "path" && p.Name == name {
			return placeholder{integer: p.Type == "integer", required: p.Required}
		}
	}
	return placeholder{required: true}
}

// CompileCondition returns the condition matching request URIs against path. A template
// without placeholders compiles to an equality check on the whole path; otherwise to an
// anchored regular expression with one capture group per placeholder.
func CompileCondition(path string, params []spec.Parameter) (dsl.Condition, error) {
	t, err := Parse(path)
	if err != nil {
		return dsl.Condition{}, err
	}
	if len(t.Params) == 0 {
		return dsl.Equals(dsl.SourceRequestURI, path), nil
	}
	return dsl.Matches(dsl.SourceRequestURI, t.Regex(params)), nil
}

// Regex renders the anchored pattern for t.
func (t *Template) Regex(params []spec.Parameter) string {
	var b strings.Builder
	b.WriteByte('^')
	for i, lit := range t.Literals {
		b.WriteString(quoteLiteral(lit))
		if i == len(t.Params) {
			break
		}
		ph := lookup(t.Params[i], params)
		class := alphanumericClass
		if ph.integer {
			class = numericClass
		}
		quant := "*"
		if ph.required {
			quant = "+"
		}
		b.WriteString("([" + class + "]" + quant + ")")
	}
	b.WriteByte('$')
	return b.String()
}

func quoteLiteral(s string) string {
	return strings.ReplaceAll(regexp.QuoteMeta(s), "/", `\/`)
}

// Format renders the extraction format for t: literals verbatim, placeholders replaced
// by {0}, {1}, ... from left to right.
func (t *Template) Format() string {
	var b strings.Builder
	for i, lit := range t.Literals {
		b.WriteString(lit)
		if i < len(t.Params) {
			b.WriteString("{" + strconv.Itoa(i) + "}")
		}
	}
	return b.String()
}

// CompileExtraction returns the extraction format for path together with one parameter
// step per placeholder, each reading its slot of the request URI.
func CompileExtraction(path string, params []spec.Parameter) (string, []dsl.CreateParameter, error) {
	t, err := Parse(path)
	if err != nil {
		return "", nil, err
	}
	format := t.Format()
	steps := make([]dsl.CreateParameter, 0, len(t.Params))
	for i, name := range t.Params {
		steps = append(steps, dsl.CreateParameter{
			Name:      name,
			Source:    dsl.SourceRequestURI,
			Optional:  !lookup(name, params).required,
			Processor: dsl.ExtractProcessor{Format: format, Index: i},
		})
	}
	return format, steps, nil
}

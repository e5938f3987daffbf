// Package routing assembles the regurgitator routing tree for a document: one
// configuration per operation, and a root decision that dispatches on method and path.
package routing

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/regurgitator/swagger2regurgitator/internal/dsl"
	"github.com/regurgitator/swagger2regurgitator/internal/example"
	"github.com/regurgitator/swagger2regurgitator/internal/logging"
	"github.com/regurgitator/swagger2regurgitator/internal/pathtmpl"
	"github.com/regurgitator/swagger2regurgitator/internal/spec"
)

const (
	// DefaultFilePrefix is prepended to every file reference.
	DefaultFilePrefix = "classpath:/"
	// ConfigFileBase is the file name of every configuration document, before its
	// extension.
	ConfigFileBase = "regurgitator-configuration"

	plainText = "text/plain"
	noContent = "no content"
	okStatus  = 200
)

// Options configures Assemble.
type Options struct {
	// FilePrefix prefixes file references; DefaultFilePrefix when empty.
	FilePrefix string
	// ConfigExt is the extension of per-operation configuration files ("json" or "xml").
	ConfigExt string
	// Inline embeds each operation's steps in the root decision instead of referencing
	// its configuration file.
	Inline bool
	Logger *slog.Logger
	// Synthesizer builds example payloads; one over the document's components when nil.
	Synthesizer *example.Synthesizer
}

// Result is the assembled routing tree and everything it references.
type Result struct {
	Root       dsl.Configuration
	Operations []OperationResult
	ConfigExt  string
	Inline     bool
}

// OperationResult is the compiled form of one operation.
type OperationResult struct {
	Method      spec.HttpMethod
	Path        string
	Summary     string
	Dir         string
	Config      dsl.Configuration
	PathParams  []string
	QueryParams []string
	Request     *Payload
	Responses   []ResponseResult
}

// ConfigPath returns the operation's configuration file, relative to the output
// directory.
func (o *OperationResult) ConfigPath(ext string) string {
	return o.Dir + "/" + ConfigFileBase + "." + ext
}

// ResponseResult is one declared response and its example, if any.
type ResponseResult struct {
	Status      string
	Code        int // representative numeric code
	ContentType string
	Payload     *Payload
}

// Payloads returns every example file in operation order.
func (r *Result) Payloads() []*Payload {
	var out []*Payload
	for _, op := range r.Operations {
		if op.Request != nil {
			out = append(out, op.Request)
		}
		for _, resp := range op.Responses {
			if resp.Payload != nil {
				out = append(out, resp.Payload)
			}
		}
	}
	return out
}

// OperationError attaches the failing operation to a compilation error.
type OperationError struct {
	Method spec.HttpMethod
	Path   string
	Err    error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// DirName returns the directory an operation's files live in: the method followed by
// the path with '/' replaced by '%' and braces by '^'.
func DirName(method spec.HttpMethod, path string) string {
	r := strings.NewReplacer("/", "%", "{", "^", "}", "^")
	return string(method) + r.Replace(path)
}

type assembler struct {
	opts  Options
	synth *example.Synthesizer
	log   *slog.Logger
}

// Assemble compiles every operation of doc. Operations are routed in path order and,
// within a path, in spec.Methods order; any failure aborts the whole document.
func Assemble(doc *spec.Document, opts Options) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("routing: nil document")
	}
	if opts.FilePrefix == "" {
		opts.FilePrefix = DefaultFilePrefix
	}
	if opts.ConfigExt == "" {
		opts.ConfigExt = "json"
	}
	a := &assembler{opts: opts, synth: opts.Synthesizer, log: opts.Logger}
	if a.log == nil {
		a.log = logging.Nop()
	}
	if a.synth == nil {
		a.synth = example.New(doc.Schemas)
	}

	b := NewBuilder()
	res := &Result{ConfigExt: opts.ConfigExt, Inline: opts.Inline}
	for _, op := range dispatchOrder(doc.Operations) {
		or, err := a.operation(op)
		if err != nil {
			return nil, &OperationError{Method: op.Method, Path: op.Path, Err: err}
		}
		cond, err := pathtmpl.CompileCondition(op.Path, op.Parameters)
		if err != nil {
			return nil, &OperationError{Method: op.Method, Path: op.Path, Err: err}
		}

		id := b.NextID()
		var step dsl.Step = dsl.SequenceRef{ID: id, File: opts.FilePrefix + or.ConfigPath(opts.ConfigExt)}
		if opts.Inline {
			step = dsl.Sequence{ID: id, Steps: or.Config.Steps}
		}
		b.AddRoute(step, dsl.Equals(dsl.SourceMethod, string(op.Method)), cond)
		res.Operations = append(res.Operations, *or)
	}

	a.log.Debug("creating routing decision", "routes", b.Routes())
	res.Root = dsl.Configuration{Steps: []dsl.Step{b.Finish()}}
	return res, nil
}

// dispatchOrder groups operations by path in first-appearance order and sorts each
// group by spec.Methods. Methods outside that set are not routed.
func dispatchOrder(ops []spec.Operation) []spec.Operation {
	rank := make(map[spec.HttpMethod]int, len(spec.Methods))
	for i, m := range spec.Methods {
		rank[m] = i
	}
	var paths []string
	byPath := make(map[string][]spec.Operation)
	for _, op := range ops {
		if _, ok := rank[op.Method]; !ok {
			continue
		}
		if _, seen := byPath[op.Path]; !seen {
			paths = append(paths, op.Path)
		}
		byPath[op.Path] = append(byPath[op.Path], op)
	}
	out := make([]spec.Operation, 0, len(ops))
	for _, p := range paths {
		group := byPath[p]
		for _, m := range spec.Methods {
			for _, op := range group {
				if op.Method == m {
					out = append(out, op)
				}
			}
		}
	}
	return out
}

func (a *assembler) operation(op spec.Operation) (*OperationResult, error) {
	dir := DirName(op.Method, op.Path)
	a.log.Debug("processing route", "method", op.Method, "path", op.Path)

	or := &OperationResult{Method: op.Method, Path: op.Path, Summary: op.Summary, Dir: dir}

	_, pathSteps, err := pathtmpl.CompileExtraction(op.Path, op.Parameters)
	if err != nil {
		return nil, err
	}
	var steps []dsl.Step
	for _, s := range pathSteps {
		steps = append(steps, s)
		or.PathParams = append(or.PathParams, s.Name)
	}
	for _, q := range op.QueryParameters() {
		steps = append(steps, dsl.CreateParameter{
			Name:      q.Name,
			Source:    dsl.SourceQueryString,
			Optional:  !q.Required,
			Processor: dsl.QueryParamProcessor{Key: q.Name},
		})
		or.QueryParams = append(or.QueryParams, q.Name)
	}

	if rb := op.RequestBody; rb != nil && len(rb.Content) > 0 {
		p, err := a.payload(dir, "REQ", &rb.Content[0])
		if err != nil {
			return nil, err
		}
		if p != nil {
			a.log.Debug("generating request file", "file", p.Path)
		}
		or.Request = p
	}

	responses, err := a.responses(op, dir, or)
	if err != nil {
		return nil, err
	}
	steps = append(steps, responses)
	or.Config = dsl.Configuration{Steps: steps}
	return or, nil
}

type statusClass int

const (
	classExact statusClass = iota
	classWildcard
	classDefault
)

// classify sorts a response key into an exact code, a class wildcard such as "2XX", or
// "default".
func classify(status string) (statusClass, bool) {
	switch {
	case status == "default":
		return classDefault, true
	case len(status) == 3 && status[0] >= '1' && status[0] <= '5' && strings.EqualFold(status[1:], "XX"):
		return classWildcard, true
	case len(status) == 3:
		if code, err := strconv.Atoi(status); err == nil && code >= 100 && code <= 599 {
			return classExact, true
		}
	}
	return 0, false
}

type compiledResponse struct {
	status string
	class  statusClass
	step   dsl.Step
	rule   dsl.Rule
}

// responses builds the response step of an operation: the single response itself, a
// Decision over several, or a plain-text placeholder when none is declared.
func (a *assembler) responses(op spec.Operation, dir string, or *OperationResult) (dsl.Step, error) {
	var compiled []compiledResponse
	for i := range op.Responses {
		r := &op.Responses[i]
		class, ok := classify(r.Status)
		if !ok {
			a.log.Warn("skipping response with unsupported status", "method", op.Method, "path", op.Path, "status", r.Status)
			continue
		}
		var media *spec.Media
		if len(r.Content) > 0 {
			media = &r.Content[0]
		}
		p, err := a.payload(dir, r.Status, media)
		if err != nil {
			return nil, err
		}
		cr, rr := a.response(dir, r.Status, class, media, p)
		compiled = append(compiled, cr)
		or.Responses = append(or.Responses, rr)
	}

	switch len(compiled) {
	case 0:
		return dsl.CreateHTTPResponse{
			Value:       fmt.Sprintf("regurgitator : %s %s : %d %s", op.Method, op.Path, okStatus, plainText),
			StatusCode:  okStatus,
			ContentType: plainText,
		}, nil
	case 1:
		return compiled[0].step, nil
	}

	d := dsl.Decision{DefaultStep: chooseDefault(compiled).step.StepID()}
	var deferred []dsl.Rule
	for _, c := range compiled {
		d.Steps = append(d.Steps, c.step)
		if c.class == classDefault {
			deferred = append(deferred, c.rule)
			continue
		}
		d.Rules = append(d.Rules, c.rule)
	}
	d.Rules = append(d.Rules, deferred...)
	return d, nil
}

func (a *assembler) response(dir, status string, class statusClass, media *spec.Media, p *Payload) (compiledResponse, ResponseResult) {
	id := dir + "-" + status
	contentType := plainText
	value, file := noContent, ""
	if p != nil {
		contentType = media.Mime
		value, file = "", a.opts.FilePrefix+p.Path
		a.log.Debug("generating response file", "file", p.Path)
	}
	rr := ResponseResult{Status: status, ContentType: contentType, Payload: p}
	cr := compiledResponse{status: status, class: class}

	switch class {
	case classExact:
		code, _ := strconv.Atoi(status)
		rr.Code = code
		cr.step = dsl.CreateHTTPResponse{ID: id, Value: value, File: file, StatusCode: code, ContentType: contentType}
		cr.rule = dsl.Rule{Step: id, Conditions: []dsl.Condition{dsl.Equals(dsl.SourceResponseCode, status)}}
	case classWildcard:
		digit := status[:1]
		rr.Code, _ = strconv.Atoi(digit + "00")
		cr.step = dsl.Sequence{ID: id, Steps: []dsl.Step{
			dsl.CreateParameter{Name: dsl.ParamContentType, Value: contentType},
			dsl.CreateParameter{Name: dsl.ParamStatusCode, Value: digit + "00"},
			dsl.CreateResponse{Value: value, File: file},
		}}
		cr.rule = dsl.Rule{Step: id, Conditions: []dsl.Condition{dsl.Matches(dsl.SourceResponseCode, "^"+digit+"[0-9]{2}$")}}
	case classDefault:
		rr.Code = okStatus
		cr.step = dsl.Sequence{ID: id, Steps: []dsl.Step{
			dsl.CreateParameter{Name: dsl.ParamContentType, Value: contentType},
			dsl.CreateParameter{Name: dsl.ParamStatusCode, Source: dsl.SourceResponseCode, Value: strconv.Itoa(okStatus)},
			dsl.CreateResponse{Value: value, File: file},
		}}
		cr.rule = dsl.Rule{Step: id, Conditions: []dsl.Condition{dsl.Exists(dsl.SourceResponseCode)}}
	}
	return cr, rr
}

// chooseDefault picks a decision's default step: the first 2xx response (exact or
// wildcard), else the first exact code, else "default", else the first declared.
func chooseDefault(compiled []compiledResponse) compiledResponse {
	for _, c := range compiled {
		if c.class != classDefault && c.status[0] == '2' {
			return c
		}
	}
	for _, c := range compiled {
		if c.class == classExact {
			return c
		}
	}
	for _, c := range compiled {
		if c.class == classDefault {
			return c
		}
	}
	return compiled[0]
}

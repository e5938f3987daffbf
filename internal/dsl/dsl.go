// Package dsl models the regurgitator step/condition language: the steps, rules and
// decisions a mock-serving runtime interprets at request time.
//
// Every value in this package is built once during compilation and handed whole to an
// emitter; nothing is mutated after assembly.
package dsl

// Kind discriminates Step variants. Emitters dispatch on Kind, never on Go type identity.
type Kind string

const (
	KindCreateHTTPResponse Kind = "create-http-response"
	KindCreateResponse     Kind = "create-response"
	KindCreateParameter    Kind = "create-parameter"
	KindSequence           Kind = "sequence"
	KindSequenceRef        Kind = "sequence-ref"
	KindDecision           Kind = "decision"
)

// Signal sources and parameter names understood by the runtime.
const (
	SourceRequestURI   = "request-metadata:request-uri"
	SourceMethod       = "request-metadata:method"
	SourceQueryString  = "request-metadata:query-string"
	SourceResponseCode = "request-headers:mock-response-code"

	ParamContentType = "response-metadata:content-type"
	ParamStatusCode  = "response-metadata:status-code"
)

// Step is the closed set of executable configuration nodes.
type Step interface {
	Kind() Kind
	// StepID returns the identifier rules refer to. Parameter steps have none.
	StepID() string
}

// Configuration is one regurgitator configuration document.
type Configuration struct {
	Steps []Step
}

// CreateHTTPResponse returns a literal value or a referenced file with a status code.
type CreateHTTPResponse struct {
	ID          string
	Value       string
	File        string
	StatusCode  int
	ContentType string
}

func (CreateHTTPResponse) Kind() Kind       { return KindCreateHTTPResponse }
func (s CreateHTTPResponse) StepID() string { return s.ID }

// CreateResponse returns a value or file; status and content type come from parameters
// set earlier in the enclosing sequence.
type CreateResponse struct {
	ID    string
	Value string
	File  string
}

func (CreateResponse) Kind() Kind       { return KindCreateResponse }
func (s CreateResponse) StepID() string { return s.ID }

// CreateParameter sets a named parameter from a literal value or from a signal source,
// optionally run through a processor.
type CreateParameter struct {
	Name      string
	Source    string
	Value     string
	Optional  bool
	Processor Processor
}

func (CreateParameter) Kind() Kind     { return KindCreateParameter }
func (CreateParameter) StepID() string { return "" }

// Sequence executes its steps in order.
type Sequence struct {
	ID    string
	Steps []Step
}

func (Sequence) Kind() Kind       { return KindSequence }
func (s Sequence) StepID() string { return s.ID }

// SequenceRef loads and executes another configuration document.
type SequenceRef struct {
	ID   string
	File string
}

func (SequenceRef) Kind() Kind       { return KindSequenceRef }
func (s SequenceRef) StepID() string { return s.ID }

// Decision picks the step of the first rule whose conditions all hold, falling back to
// DefaultStep when none does.
type Decision struct {
	ID          string
	Steps       []Step
	Rules       []Rule
	DefaultStep string
}

func (Decision) Kind() Kind       { return KindDecision }
func (s Decision) StepID() string { return s.ID }

// Rule targets a step when every condition holds, evaluated left to right.
type Rule struct {
	Step       string
	Conditions []Condition
}

// Operator is the single check a Condition performs.
type Operator string

const (
	OpEquals  Operator = "equals"
	OpMatches Operator = "matches"
	OpExists  Operator = "exists"
)

// Condition checks one signal source. Value holds the literal for OpEquals and the
// regular expression for OpMatches; it is unused for OpExists.
type Condition struct {
	Source string
	Op     Operator
	Value  string
}

// Equals builds an equality condition.
func Equals(source, value string) Condition {
	return Condition{Source: source, Op: OpEquals, Value: value}
}

// Matches builds a regular-expression condition.
func Matches(source, pattern string) Condition {
	return Condition{Source: source, Op: OpMatches, Value: pattern}
}

// Exists builds a condition that holds whenever the source carries a value.
func Exists(source string) Condition {
	return Condition{Source: source, Op: OpExists}
}

// Processor transforms a parameter value read from its source.
type Processor interface {
	ProcessorKind() string
}

// ExtractProcessor reads capture group Index of a value laid out like Format, where
// Format holds positional slots such as "{0}".
type ExtractProcessor struct {
	Format string
	Index  int
}

func (ExtractProcessor) ProcessorKind() string { return "extract-processor" }

// QueryParamProcessor looks up Key in a query string.
type QueryParamProcessor struct {
	Key string
}

func (QueryParamProcessor) ProcessorKind() string { return "query-param-processor" }

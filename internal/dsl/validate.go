package dsl

import (
	"fmt"
	"regexp"
	"strconv"
)

// InvalidConfigurationError reports a broken invariant in an assembled tree.
type InvalidConfigurationError struct {
	Location string // e.g. "steps[0].rules[2]"
	Reason   string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("dsl: %s: %s", e.Location, e.Reason)
}

var slotRe = regexp.MustCompile(`\{\d+\}`)

// SlotCount returns the number of positional slots in an extraction format.
func SlotCount(format string) int {
	return len(slotRe.FindAllString(format, -1))
}

// Validate checks the structural invariants the runtime relies on: rule and default-step
// targets exist in their decision, every condition carries exactly one known operator with
// a compilable pattern, and extraction indexes stay within their format's slots.
func Validate(cfg *Configuration) error {
	if cfg == nil {
		return &InvalidConfigurationError{Location: "configuration", Reason: "nil configuration"}
	}
	return validateSteps("steps", cfg.Steps)
}

func validateSteps(loc string, steps []Step) error {
	for i, s := range steps {
		if err := validateStep(loc+"["+strconv.Itoa(i)+"]", s); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(loc string, s Step) error {
	switch s.Kind() {
	case KindDecision:
		d := s.(Decision)
		return validateDecision(loc, d)
	case KindSequence:
		return validateSteps(loc+".steps", s.(Sequence).Steps)
	case KindCreateParameter:
		p := s.(CreateParameter)
		if p.Name == "" {
			return &InvalidConfigurationError{Location: loc, Reason: "parameter without name"}
		}
		if ep, ok := p.Processor.(ExtractProcessor); ok {
			slots := SlotCount(ep.Format)
			if ep.Index < 0 || ep.Index >= slots {
				return &InvalidConfigurationError{
					Location: loc + ".processor",
					Reason:   fmt.Sprintf("index %d outside %d slot(s) of %q", ep.Index, slots, ep.Format),
				}
			}
		}
	case KindSequenceRef:
		if s.(SequenceRef).File == "" {
			return &InvalidConfigurationError{Location: loc, Reason: "sequence-ref without file"}
		}
	case KindCreateHTTPResponse, KindCreateResponse:
	default:
		return &InvalidConfigurationError{Location: loc, Reason: fmt.Sprintf("unknown step kind %q", s.Kind())}
	}
	return nil
}

func validateDecision(loc string, d Decision) error {
	ids := make(map[string]struct{}, len(d.Steps))
	for _, s := range d.Steps {
		if id := s.StepID(); id != "" {
			ids[id] = struct{}{}
		}
	}
	if d.DefaultStep == "" {
		return &InvalidConfigurationError{Location: loc, Reason: "decision without default step"}
	}
	if _, ok := ids[d.DefaultStep]; !ok {
		return &InvalidConfigurationError{Location: loc, Reason: fmt.Sprintf("default step %q not found", d.DefaultStep)}
	}
	for i, r := range d.Rules {
		rloc := loc + ".rules[" + strconv.Itoa(i) + "]"
		if _, ok := ids[r.Step]; !ok {
			return &InvalidConfigurationError{Location: rloc, Reason: fmt.Sprintf("target step %q not found", r.Step)}
		}
		if len(r.Conditions) == 0 {
			return &InvalidConfigurationError{Location: rloc, Reason: "rule without conditions"}
		}
		for j, c := range r.Conditions {
			if err := validateCondition(rloc+".conditions["+strconv.Itoa(j)+"]", c); err != nil {
				return err
			}
		}
	}
	return validateSteps(loc+".steps", d.Steps)
}

func validateCondition(loc string, c Condition) error {
	if c.Source == "" {
		return &InvalidConfigurationError{Location: loc, Reason: "condition without source"}
	}
	switch c.Op {
	case OpEquals, OpExists:
	case OpMatches:
		if _, err := regexp.Compile(c.Value); err != nil {
			return &InvalidConfigurationError{Location: loc, Reason: fmt.Sprintf("bad pattern: %v", err)}
		}
	default:
		return &InvalidConfigurationError{Location: loc, Reason: fmt.Sprintf("unknown operator %q", c.Op)}
	}
	return nil
}

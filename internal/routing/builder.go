package routing

import (
	"strconv"

	"github.com/regurgitator/swagger2regurgitator/internal/dsl"
)

const (
	rootDecisionID = "decision-1"
	unmappedValue  = "regurgitator : unmapped operation"
)

// Builder accumulates the document-level routing decision. It is owned by a single
// Assemble call; ids are assigned in the order steps are added.
type Builder struct {
	next  int
	steps []dsl.Step
	rules []dsl.Rule
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// NextID reserves the next "step-N" identifier.
func (b *Builder) NextID() string {
	b.next++
	return "step-" + strconv.Itoa(b.next)
}

// AddRoute appends step together with a rule targeting it. Rules keep the order routes
// are added in, which is their dispatch priority.
func (b *Builder) AddRoute(step dsl.Step, conditions ...dsl.Condition) {
	b.steps = append(b.steps, step)
	b.rules = append(b.rules, dsl.Rule{Step: step.StepID(), Conditions: conditions})
}

// Routes returns the number of routes added so far.
func (b *Builder) Routes() int { return len(b.rules) }

// Finish appends the rule-free fallback step and returns the root decision.
func (b *Builder) Finish() dsl.Decision {
	fallback := dsl.CreateHTTPResponse{
		ID:          b.NextID(),
		Value:       unmappedValue,
		StatusCode:  500,
		ContentType: plainText,
	}
	steps := append(append([]dsl.Step(nil), b.steps...), fallback)
	return dsl.Decision{
		ID:          rootDecisionID,
		Steps:       steps,
		Rules:       append([]dsl.Rule(nil), b.rules...),
		DefaultStep: fallback.ID,
	}
}

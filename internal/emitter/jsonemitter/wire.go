package jsonemitter

// Wire shapes of the JSON form. Every optional field is omitted when empty.

const configurationKind = "regurgitator-configuration"

type configDoc struct {
	Kind  string    `json:"kind"`
	Steps []stepDoc `json:"steps"`
}

// stepDoc carries the union of all step fields; Kind says which apply.
type stepDoc struct {
	Kind        string        `json:"kind"`
	ID          string        `json:"id,omitempty"`
	Name        string        `json:"name,omitempty"`
	Source      string        `json:"source,omitempty"`
	Value       string        `json:"value,omitempty"`
	File        string        `json:"file,omitempty"`
	Optional    bool          `json:"optional,omitempty"`
	StatusCode  int           `json:"status-code,omitempty"`
	ContentType string        `json:"content-type,omitempty"`
	Processor   *processorDoc `json:"processor,omitempty"`
	Steps       []stepDoc     `json:"steps,omitempty"`
	Rules       []ruleDoc     `json:"rules,omitempty"`
	DefaultStep string        `json:"default-step,omitempty"`
}

type processorDoc struct {
	Kind   string `json:"kind"`
	Format string `json:"format,omitempty"`
	Index  *int   `json:"index,omitempty"`
	Key    string `json:"key,omitempty"`
}

type ruleDoc struct {
	Step       string         `json:"step"`
	Conditions []conditionDoc `json:"conditions"`
}

type conditionDoc struct {
	Source  string  `json:"source"`
	Equals  *string `json:"equals,omitempty"`
	Matches *string `json:"matches,omitempty"`
	Exists  string  `json:"exists,omitempty"`
}

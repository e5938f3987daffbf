package example

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/regurgitator/swagger2regurgitator/internal/spec"
)

const (
	placeholderString = "abcdefgh"
	placeholderNumber = "1"

	// DateTimeLayout renders date-time values with milliseconds and a zone offset.
	DateTimeLayout = "2006-01-02T15:04:05.000Z07:00"
	dateLayout     = "2006-01-02"
)

// scalar picks the value of a non-container schema. JSON and XML synthesis both go
// through here so they always agree.
func (s *Synthesizer) scalar(schema *spec.Schema) any {
	switch schema.Type {
	case "integer":
		return integerValue(schema)
	case "number":
		return numberValue(schema)
	case "boolean":
		return booleanValue(schema)
	default:
		return s.stringValue(schema)
	}
}

// numericCandidates lists, in priority order, the texts a number may be parsed from:
// example, first enum entry, minimum, then the placeholder.
func numericCandidates(schema *spec.Schema) []string {
	var out []string
	if schema.Example != nil {
		out = append(out, text(schema.Example))
	}
	if len(schema.Enum) > 0 && schema.Enum[0] != nil {
		out = append(out, text(schema.Enum[0]))
	}
	if schema.Minimum != nil {
		out = append(out, strconv.FormatFloat(*schema.Minimum, 'f', -1, 64))
	}
	return append(out, placeholderNumber)
}

func integerValue(schema *spec.Schema) any {
	wide := schema.Format == "int64"
	for _, c := range numericCandidates(schema) {
		if wide {
			if v, ok := parseInt(c, 64); ok {
				return v
			}
			continue
		}
		if v, ok := parseInt(c, 32); ok {
			return int32(v)
		}
	}
	if wide {
		return int64(1)
	}
	return int32(1)
}

// numberValue follows the integer chain; float and double select the precision and a
// number without format behaves like a 32-bit integer unless its value is fractional.
func numberValue(schema *spec.Schema) any {
	for _, c := range numericCandidates(schema) {
		switch schema.Format {
		case "float":
			if v, err := strconv.ParseFloat(c, 32); err == nil {
				return float32(v)
			}
		case "double":
			if v, err := strconv.ParseFloat(c, 64); err == nil {
				return v
			}
		default:
			if v, ok := parseInt(c, 32); ok {
				return int32(v)
			}
			if v, err := strconv.ParseFloat(c, 64); err == nil {
				return v
			}
		}
	}
	return int32(1)
}

// parseInt accepts integral decimal text, including floats without a fraction such as
// "7" or "7.0", within bitSize.
func parseInt(c string, bitSize int) (int64, bool) {
	if v, err := strconv.ParseInt(c, 10, bitSize); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(c, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	limit := math.Ldexp(1, bitSize-1)
	if f < -limit || f >= limit {
		return 0, false
	}
	return int64(f), true
}

func booleanValue(schema *spec.Schema) bool {
	if schema.Example == nil {
		return true
	}
	b, err := strconv.ParseBool(strings.TrimSpace(text(schema.Example)))
	if err != nil {
		return true
	}
	return b
}

func (s *Synthesizer) stringValue(schema *spec.Schema) string {
	if schema.Example != nil {
		return text(schema.Example)
	}
	if len(schema.Enum) > 0 && schema.Enum[0] != nil {
		return text(schema.Enum[0])
	}
	switch schema.Format {
	case "date-time":
		return s.now().Format(DateTimeLayout)
	case "date":
		return s.now().Format(dateLayout)
	case "uuid":
		return s.newUUID()
	}
	return placeholderString
}

// text renders decoded document values without float exponent noise.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}

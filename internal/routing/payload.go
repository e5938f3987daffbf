package routing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/regurgitator/swagger2regurgitator/internal/example"
	"github.com/regurgitator/swagger2regurgitator/internal/spec"
)

// Payload is one example file. Exactly one of Value, Element and Raw is set.
type Payload struct {
	// Path is relative to the output directory, e.g. "GET%pets/GET%pets-200.json".
	Path      string
	MediaType string
	Value     any
	Element   *etree.Element
	Raw       []byte
}

// Ext returns the file extension Path was built with.
func (p *Payload) Ext() string {
	if i := strings.LastIndexByte(p.Path, '.'); i >= 0 {
		return p.Path[i+1:]
	}
	return ""
}

// Encode renders the payload file: indented JSON, indented XML, or Raw as-is.
func (p *Payload) Encode() ([]byte, error) {
	switch {
	case p.Element != nil:
		doc := etree.NewDocument()
		doc.SetRoot(p.Element.Copy())
		doc.Indent(2)
		return doc.WriteToBytes()
	case p.Raw != nil:
		return p.Raw, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p.Value); err != nil {
		return nil, fmt.Errorf("encode %s: %w", p.Path, err)
	}
	return buf.Bytes(), nil
}

func isXML(mime string) bool {
	return strings.Contains(strings.ToLower(mime), "xml")
}

func isJSON(mime string) bool {
	return strings.Contains(strings.ToLower(mime), "json")
}

// payload builds the example for media, saved as <dir>/<dir>-<suffix>.<ext>. It returns
// nil when the media declares nothing to build from, or when its schema cannot be
// turned into an example.
func (a *assembler) payload(dir, suffix string, media *spec.Media) (*Payload, error) {
	if media == nil {
		return nil, nil
	}
	name := func(ext string) string {
		return dir + "/" + dir + "-" + suffix + "." + ext
	}
	xml := isXML(media.Mime)

	if media.Example != nil {
		switch ex := media.Example.(type) {
		case string:
			ext := "txt"
			switch {
			case xml:
				ext = "xml"
			case isJSON(media.Mime):
				return &Payload{Path: name("json"), MediaType: media.Mime, Value: ex}, nil
			}
			return &Payload{Path: name(ext), MediaType: media.Mime, Raw: []byte(ex)}, nil
		default:
			if !xml {
				return &Payload{Path: name("json"), MediaType: media.Mime, Value: ex}, nil
			}
		}
	}
	if media.Schema == nil {
		return nil, nil
	}

	if xml {
		el, err := a.synth.BuildXML("xml", media.Schema)
		if err != nil {
			return nil, a.skipUnconstructable(dir, suffix, media, err)
		}
		if el == nil {
			return nil, nil
		}
		return &Payload{Path: name("xml"), MediaType: media.Mime, Element: el}, nil
	}

	v, err := a.synth.Build(media.Schema)
	if err != nil {
		return nil, a.skipUnconstructable(dir, suffix, media, err)
	}
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && !isJSON(media.Mime) {
		return &Payload{Path: name("txt"), MediaType: media.Mime, Raw: []byte(s)}, nil
	}
	return &Payload{Path: name("json"), MediaType: media.Mime, Value: v}, nil
}

// skipUnconstructable swallows UnconstructableSchemaError with a warning and passes every
// other error through.
func (a *assembler) skipUnconstructable(dir, suffix string, media *spec.Media, err error) error {
	var use *example.UnconstructableSchemaError
	if !errors.As(err, &use) {
		return fmt.Errorf("%s example: %w", suffix, err)
	}
	a.log.Warn("skipping example", "dir", dir, "part", suffix, "mediaType", media.Mime, "error", err)
	return nil
}

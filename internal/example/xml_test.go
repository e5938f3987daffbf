package example

import (
	"encoding/json"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regurgitator/swagger2regurgitator/internal/spec"
)

func petComponents() spec.Components {
	return spec.Components{
		"Pet": {
			Name: "Pet",
			Type: "object",
			XML:  &spec.XML{Name: "pet", Prefix: "p", Namespace: "http://example.com/pet"},
			Properties: []spec.Property{
				prop("id", &spec.Schema{Type: "integer", Format: "int64", XML: &spec.XML{Attribute: true}}),
				prop("name", &spec.Schema{Type: "string", Example: "doggie"}),
				prop("photoUrls", &spec.Schema{
					Type:  "array",
					XML:   &spec.XML{Name: "photos", Wrapped: true},
					Items: &spec.Schema{Type: "string", XML: &spec.XML{Name: "photo"}},
				}),
				prop("tags", &spec.Schema{Type: "array", Items: &spec.Schema{Ref: "#/components/schemas/Tag"}}),
			},
		},
		"Tag": {
			Name:       "Tag",
			Type:       "object",
			Properties: []spec.Property{prop("label", &spec.Schema{Type: "string"})},
		},
	}
}

func xmlString(t *testing.T, el *etree.Element) string {
	t.Helper()
	doc := etree.NewDocument()
	doc.SetRoot(el)
	out, err := doc.WriteToString()
	require.NoError(t, err)
	return out
}

func TestBuildXML_Pet(t *testing.T) {
	t.Parallel()
	s := newTestSynthesizer(petComponents())

	el, err := s.BuildXML("body", &spec.Schema{Ref: "#/components/schemas/Pet"})
	require.NoError(t, err)
	assert.Equal(t,
		`<p:pet xmlns:p="http://example.com/pet" id="1">`+
			`<name>doggie</name>`+
			`<photos><photo>abcdefgh</photo></photos>`+
			`<Tag><label>abcdefgh</label></Tag>`+
			`</p:pet>`,
		xmlString(t, el))
}

func TestBuildXML_AgreesWithJSON(t *testing.T) {
	t.Parallel()
	s := newTestSynthesizer(petComponents())
	ref := &spec.Schema{Ref: "#/components/schemas/Pet"}

	got, err := s.Build(ref)
	require.NoError(t, err)
	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"name":"doggie","photoUrls":["abcdefgh"],"tags":[{"label":"abcdefgh"}]}`, string(raw))

	el, err := s.BuildXML("body", ref)
	require.NoError(t, err)
	assert.Equal(t, "1", el.SelectAttrValue("id", ""))
	assert.Equal(t, "doggie", el.SelectElement("name").Text())
}

func TestBuildXML_AgreesWithJSON_NoPayload(t *testing.T) {
	t.Parallel()
	s := newTestSynthesizer(nil)
	bare := &spec.Schema{Type: "string"}

	got, err := s.Build(bare)
	require.NoError(t, err)
	assert.Nil(t, got)
	el, err := s.BuildXML("xml", bare)
	require.NoError(t, err)
	assert.Nil(t, el)
}

func TestBuildXML_AgreesWithJSON_ObjectExample(t *testing.T) {
	t.Parallel()
	s := newTestSynthesizer(nil)
	withExample := &spec.Schema{Type: "object", Example: map[string]any{"b": []any{"x", "y"}, "a": float64(1)}}

	got, err := s.Build(withExample)
	require.NoError(t, err)
	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":["x","y"]}`, string(raw))

	el, err := s.BuildXML("doc", withExample)
	require.NoError(t, err)
	assert.Equal(t, `<doc><a>1</a><b>x</b><b>y</b></doc>`, xmlString(t, el))
}

func TestBuildXML_DeepestLevelKeepsScalars(t *testing.T) {
	t.Parallel()
	s := newTestSynthesizer(spec.Components{
		"Node": {
			Name: "Node",
			Type: "object",
			Properties: []spec.Property{
				prop("id", &spec.Schema{Type: "integer", Format: "int64", XML: &spec.XML{Attribute: true}}),
				prop("label", &spec.Schema{Type: "string"}),
				prop("next", &spec.Schema{Ref: "#/components/schemas/Node"}),
			},
		},
	})
	el, err := s.BuildXML("node", &spec.Schema{Ref: "#/components/schemas/Node"})
	require.NoError(t, err)

	last := el
	for {
		next := last.SelectElement("Node")
		if next == nil || len(next.ChildElements()) == 0 {
			break
		}
		last = next
	}
	assert.Equal(t, "1", last.SelectAttrValue("id", ""))
	require.NotNil(t, last.SelectElement("label"))
	assert.Equal(t, "abcdefgh", last.SelectElement("label").Text())
	assert.Nil(t, last.SelectElement("id"))
}

func TestBuildXML_ScalarsAndFallbacks(t *testing.T) {
	t.Parallel()
	s := newTestSynthesizer(nil)

	el, err := s.BuildXML("", &spec.Schema{Type: "string", Example: "hi"})
	require.NoError(t, err)
	assert.Equal(t, `<xml>hi</xml>`, xmlString(t, el))

	el, err = s.BuildXML("items", &spec.Schema{Type: "array", Items: &spec.Schema{Type: "integer"}})
	require.NoError(t, err)
	assert.Equal(t, `<items><items>1</items></items>`, xmlString(t, el))

	el, err = s.BuildXML("flag", object(prop("on", &spec.Schema{Type: "boolean", XML: &spec.XML{Attribute: true}})))
	require.NoError(t, err)
	assert.Equal(t, `<flag on="true"/>`, xmlString(t, el))

	el, err = s.BuildXML("doc", &spec.Schema{Type: "object", XML: &spec.XML{Namespace: "urn:x"}})
	require.NoError(t, err)
	assert.Equal(t, `<doc xmlns="urn:x"/>`, xmlString(t, el))

	_, err = s.BuildXML("none", &spec.Schema{})
	assert.Error(t, err)
}

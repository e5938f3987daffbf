package postman

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regurgitator/swagger2regurgitator/internal/routing"
	"github.com/regurgitator/swagger2regurgitator/internal/spec"
)

func sampleResult() *routing.Result {
	return &routing.Result{Operations: []routing.OperationResult{
		{
			Method:      spec.GET,
			Path:        "/pets/{petId}",
			Summary:     "Find pet",
			PathParams:  []string{"petId"},
			QueryParams: []string{"fields", "verbose"},
			Responses: []routing.ResponseResult{
				{Status: "200", Code: 200, ContentType: "application/json", Payload: &routing.Payload{Path: "x/x-200.json", Value: map[string]any{"id": 1}}},
				{Status: "404", Code: 404, ContentType: "text/plain"},
			},
		},
		{
			Method:     spec.DELETE,
			Path:       "/pets/{petId}",
			PathParams: []string{"petId"},
			Responses:  []routing.ResponseResult{{Status: "2XX", Code: 200, ContentType: "text/plain"}},
		},
		{
			Method:    spec.POST,
			Path:      "/pets",
			Request:   &routing.Payload{Path: "y/y-REQ.txt", MediaType: "text/plain", Raw: []byte("hello")},
			Responses: []routing.ResponseResult{{Status: "201", Code: 201, ContentType: "text/plain"}},
		},
	}}
}

func TestBuild(t *testing.T) {
	t.Parallel()
	c, err := Build(sampleResult(), Options{Name: "Petstore", Version: "1.0"})
	require.NoError(t, err)

	assert.Equal(t, SchemaURL, c.Info.Schema)
	assert.Equal(t, []Variable{
		{Key: "port", Value: "8080", Type: "number"},
		{Key: "base_url", Value: "http://localhost:{{port}}", Type: "string"},
		{Key: "petId", Value: "PLACEHOLDER", Type: "string"},
	}, c.Variable)

	require.Len(t, c.Item, 2)
	assert.Equal(t, "/pets/{petId}", c.Item[0].Name)
	require.Len(t, c.Item[0].Item, 2)

	get := c.Item[0].Item[0]
	assert.Equal(t, "Find pet", get.Name)
	assert.Equal(t, "GET", get.Request.Method)
	assert.Equal(t, URL{
		Raw:  "{{base_url}}/pets/{{petId}}?fields=&verbose=",
		Host: []string{"{{base_url}}"},
		Path: []string{"pets", "{{petId}}"},
		Query: []QueryParam{
			{Key: "fields", Disabled: true},
			{Key: "verbose", Disabled: true},
		},
	}, get.Request.URL)
	require.Len(t, get.Request.Header, 1)
	assert.Equal(t, "mock-response-code", get.Request.Header[0].Key)
	assert.Equal(t, "200", get.Request.Header[0].Value)
	assert.True(t, get.Request.Header[0].Disabled)
	assert.Equal(t, []Response{
		{Name: "200 Response", Status: "OK", Code: 200, Body: "{\n  \"id\": 1\n}\n"},
		{Name: "404 Response", Status: "Not Found", Code: 404, Body: "no content"},
	}, get.Response)

	del := c.Item[0].Item[1]
	assert.Equal(t, "DELETE /pets/{petId}", del.Name)
	assert.Equal(t, "{{base_url}}/pets/{{petId}}", del.Request.URL)
	assert.Empty(t, del.Request.Header)
	assert.Equal(t, "2XX Response", del.Response[0].Name)

	post := c.Item[1].Item[0]
	require.NotNil(t, post.Request.Body)
	assert.Equal(t, Body{Mode: "raw", Raw: "hello"}, *post.Request.Body)
	assert.Equal(t, []Header{{Key: "Content-Type", Value: "text/plain"}}, post.Request.Header)
	assert.Equal(t, "Created", post.Response[0].Status)
}

func TestEncode(t *testing.T) {
	t.Parallel()
	data, err := Encode(sampleResult(), Options{Name: "Petstore", Port: 9090})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	vars := doc["variable"].([]any)
	assert.Equal(t, "9090", vars[0].(map[string]any)["value"])
	info := doc["info"].(map[string]any)
	assert.Equal(t, "Petstore", info["name"])
	assert.NotContains(t, info, "description")

	_, err = Encode(nil, Options{})
	assert.Error(t, err)
}

func TestEncode_EmptyResult(t *testing.T) {
	t.Parallel()
	data, err := Encode(&routing.Result{}, Options{})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"item": []`)
}

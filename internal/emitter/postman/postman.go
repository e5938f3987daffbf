// Package postman renders a Postman v2.1 collection that exercises a compiled routing
// tree against a locally running regurgitator.
package postman

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/regurgitator/swagger2regurgitator/internal/dsl"
	"github.com/regurgitator/swagger2regurgitator/internal/routing"
)

const (
	// SchemaURL identifies the collection format.
	SchemaURL = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"
	// DefaultPort is the port the base_url variable points at.
	DefaultPort = 8080
	// FileName is the collection's name in the output directory.
	FileName = "postman-collection.json"

	baseURLKey   = "base_url"
	baseURLValue = "http://localhost:{{port}}"
	placeholder  = "PLACEHOLDER"
)

// codeHeader is the request header regurgitator reads the requested status from.
var codeHeader = strings.TrimPrefix(dsl.SourceResponseCode, "request-headers:")

// Options describes the collection.
type Options struct {
	Name        string
	Description string
	Version     string
	Port        int
}

// Collection is the document root.
type Collection struct {
	Info     Info        `json:"info"`
	Item     []ItemGroup `json:"item"`
	Variable []Variable  `json:"variable"`
}

type Info struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	Schema      string `json:"schema"`
}

// ItemGroup holds the requests of one path.
type ItemGroup struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Item        []Item `json:"item"`
}

type Item struct {
	Name     string     `json:"name"`
	Request  Request    `json:"request"`
	Response []Response `json:"response"`
}

type Request struct {
	Description string   `json:"description,omitempty"`
	Method      string   `json:"method"`
	Header      []Header `json:"header"`
	Body        *Body    `json:"body,omitempty"`
	// URL is a plain string, or a URL when the request carries query parameters.
	URL any `json:"url"`
}

type URL struct {
	Raw   string       `json:"raw"`
	Host  []string     `json:"host"`
	Path  []string     `json:"path"`
	Query []QueryParam `json:"query"`
}

type QueryParam struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled"`
}

type Header struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Disabled    bool   `json:"disabled"`
	Description string `json:"description,omitempty"`
}

type Body struct {
	Mode     string `json:"mode"`
	Raw      string `json:"raw"`
	Disabled bool   `json:"disabled"`
}

type Response struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Code   int    `json:"code"`
	Body   string `json:"body"`
}

type Variable struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Type     string `json:"type"`
	Disabled bool   `json:"disabled"`
	System   bool   `json:"system"`
}

// Build creates the collection for res: one group per path in routing order, one
// request per operation, one saved response per declared status.
func Build(res *routing.Result, opts Options) (*Collection, error) {
	if res == nil {
		return nil, fmt.Errorf("postman: nil result")
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	c := &Collection{
		Info: Info{Name: opts.Name, Description: opts.Description, Version: opts.Version, Schema: SchemaURL},
		Item: []ItemGroup{},
		Variable: []Variable{
			{Key: "port", Value: strconv.Itoa(opts.Port), Type: "number"},
			{Key: baseURLKey, Value: baseURLValue, Type: "string"},
		},
	}
	seenVars := map[string]bool{}
	groups := map[string]int{}
	for i := range res.Operations {
		op := &res.Operations[i]
		gi, ok := groups[op.Path]
		if !ok {
			gi = len(c.Item)
			groups[op.Path] = gi
			c.Item = append(c.Item, ItemGroup{Name: op.Path, Item: []Item{}})
		}
		item, err := buildItem(op)
		if err != nil {
			return nil, fmt.Errorf("postman: %s %s: %w", op.Method, op.Path, err)
		}
		c.Item[gi].Item = append(c.Item[gi].Item, item)
		for _, name := range op.PathParams {
			if !seenVars[name] {
				seenVars[name] = true
				c.Variable = append(c.Variable, Variable{Key: name, Value: placeholder, Type: "string"})
			}
		}
	}
	return c, nil
}

// Encode renders the collection as indented JSON.
func Encode(res *routing.Result, opts Options) ([]byte, error) {
	c, err := Build(res, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildItem(op *routing.OperationResult) (Item, error) {
	name := op.Summary
	if name == "" {
		name = string(op.Method) + " " + op.Path
	}
	req := Request{
		Description: op.Summary,
		Method:      string(op.Method),
		Header:      []Header{},
		URL:         requestURL(op.Path, op.QueryParams),
	}
	if len(op.Responses) > 1 {
		codes := make([]string, 0, len(op.Responses))
		for _, r := range op.Responses {
			codes = append(codes, r.Status)
		}
		req.Header = append(req.Header, Header{
			Key:         codeHeader,
			Value:       strconv.Itoa(op.Responses[0].Code),
			Disabled:    true,
			Description: "selects the response: " + strings.Join(codes, ", "),
		})
	}
	if op.Request != nil {
		raw, err := op.Request.Encode()
		if err != nil {
			return Item{}, err
		}
		req.Header = append(req.Header, Header{Key: "Content-Type", Value: op.Request.MediaType})
		req.Body = &Body{Mode: "raw", Raw: string(raw)}
	}

	item := Item{Name: name, Request: req, Response: []Response{}}
	for _, r := range op.Responses {
		body := "no content"
		if r.Payload != nil {
			raw, err := r.Payload.Encode()
			if err != nil {
				return Item{}, err
			}
			body = string(raw)
		}
		item.Response = append(item.Response, Response{
			Name:   r.Status + " Response",
			Status: http.StatusText(r.Code),
			Code:   r.Code,
			Body:   body,
		})
	}
	return item, nil
}

// requestURL turns a path template into a Postman URL: placeholders become collection
// variables and query parameters are listed disabled.
func requestURL(path string, query []string) any {
	raw := "{{" + baseURLKey + "}}" + strings.NewReplacer("{", "{{", "}", "}}").Replace(path)
	if len(query) == 0 {
		return raw
	}
	u := URL{Host: []string{raw[:strings.Index(raw, "/")]}}
	u.Path = strings.Split(strings.TrimPrefix(raw[len(u.Host[0]):], "/"), "/")
	pairs := make([]string, 0, len(query))
	for _, q := range query {
		u.Query = append(u.Query, QueryParam{Key: q, Value: "", Disabled: true})
		pairs = append(pairs, q+"=")
	}
	u.Raw = raw + "?" + strings.Join(pairs, "&")
	return u
}

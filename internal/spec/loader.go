package spec

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "net/http"
    "net/url"
    "os"
    "path/filepath"
    "regexp"
    "strings"
    "time"

    openapi2 "github.com/getkin/kin-openapi/openapi2"
    "github.com/getkin/kin-openapi/openapi2conv"
    "github.com/getkin/kin-openapi/openapi3"
    "gopkg.in/yaml.v3"

    "github.com/regurgitator/swagger2regurgitator/internal/logging"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
    InputError      ErrorCode = "InputError"
    NetworkError    ErrorCode = "NetworkError"
    ParseError      ErrorCode = "ParseError"
    ValidationError ErrorCode = "ValidationError"
    ConversionError ErrorCode = "ConversionError"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
    Code        ErrorCode
    Message     string
    Location    string // file path or URL
    JSONPointer string // e.g. "#/paths/~1pets/get"
    Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
    // HTTPTimeout bounds each HTTP request.
    HTTPTimeout time.Duration
    // MaxRetries for transient HTTP failures (>=500, 429, or network errors).
    MaxRetries int
    // BackoffBase is the base delay for exponential backoff.
    BackoffBase time.Duration
    // AllowFileRefs permits file-based external refs for remote documents. Local
    // documents always allow them so multi-file specs work.
    AllowFileRefs bool
    Logger        *slog.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
    return Settings{
        HTTPTimeout: 10 * time.Second,
        MaxRetries:  3,
        BackoffBase: 200 * time.Millisecond,
        Logger:      logging.Nop(),
    }
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option  { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }
func WithAllowFileRefs(allow bool) Option    { return func(s *Settings) { s.AllowFileRefs = allow } }
func WithLogger(l *slog.Logger) Option {
    return func(s *Settings) {
        if l != nil {
            s.Logger = l
        }
    }
}

// Source is a loaded document together with what the typed model loses.
type Source struct {
    Doc      *openapi3.T
    Order    KeyOrder
    Location string
    // Converted is set when the input was Swagger 2.0. Order then only covers
    // locations v2 and v3 share (paths, responses, definitions); the rest falls back
    // to lexical order.
    Converted bool
}

// Load reads, validates, and returns an OpenAPI v3 document. See LoadDocument.
func Load(ctx context.Context, input string, opts ...Option) (*openapi3.T, error) {
    src, err := LoadDocument(ctx, input, opts...)
    if err != nil {
        return nil, err
    }
    return src.Doc, nil
}

// LoadDocument reads and validates an OpenAPI v3 document and indexes its key order.
// Swagger v2.0 input is converted to v3 via kin-openapi openapi2conv.
//
// input may be a filesystem path or an http/https URL. file:// URLs are blocked.
func LoadDocument(ctx context.Context, input string, opts ...Option) (*Source, error) {
    if strings.TrimSpace(input) == "" {
        return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
    }

    settings := DefaultSettings()
    for _, opt := range opts {
        opt(&settings)
    }

    raw, location, rootIsFile, err := readInput(ctx, input, settings)
    if err != nil {
        return nil, err
    }

    version, derr := detectSpecVersion(raw)
    if derr != nil {
        return nil, &SpecError{Code: ParseError, Message: derr.Error(), Location: location.String(), Cause: derr}
    }
    loc := location.String()

    src := &Source{Location: loc}
    switch version {
    case 3:
        loader := newLoader(settings, rootIsFile)
        doc, err := loader.LoadFromDataWithPath(raw, location)
        if err != nil {
            return nil, mapValidateOrParseErr(err, loc)
        }
        order, err := IndexKeyOrder(raw)
        if err != nil {
            return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: loc, Cause: err}
        }
        src.Doc, src.Order = doc, order
    case 2:
        doc, err := convertV2ToV3(raw)
        if err != nil {
            return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: loc, Cause: err}
        }
        if err := newLoader(settings, rootIsFile).ResolveRefsIn(doc, location); err != nil {
            settings.Logger.Warn("failed to resolve refs after conversion", "location", loc, "error", err)
        }
        order, err := IndexKeyOrder(raw)
        if err != nil {
            return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: loc, Cause: err}
        }
        order.Alias("#/definitions", "#/components/schemas")
        src.Doc, src.Order, src.Converted = doc, order, true
    default:
        return nil, &SpecError{Code: ParseError, Message: "spec: unknown or unsupported OpenAPI/Swagger version", Location: loc}
    }

    // Examples are taken verbatim as example candidates, so a quoted int64 is not an error.
    if err := src.Doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
        if !canProceedDespiteValidation(err) {
            return nil, mapValidateOrParseErr(err, loc)
        }
        settings.Logger.Warn("proceeding despite validation error", "location", loc, "error", err)
    }
    return src, nil
}

// readInput classifies input as URL or file path and returns its bytes and location.
func readInput(ctx context.Context, input string, settings Settings) ([]byte, *url.URL, bool, error) {
    u, uerr := url.Parse(input)
    if uerr == nil && u.Scheme != "" && u.Host != "" {
        scheme := strings.ToLower(u.Scheme)
        if scheme == "file" {
            return nil, nil, false, &SpecError{Code: InputError, Message: "spec: file:// URLs are blocked by default", Location: input}
        }
        if scheme != "http" && scheme != "https" {
            return nil, nil, false, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
        }
        raw, err := fetchWithRetry(ctx, input, settings)
        if err != nil {
            return nil, nil, false, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
        }
        return raw, u, false, nil
    }

    abs, err := filepath.Abs(input)
    if err != nil {
        return nil, nil, false, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
    }
    raw, err := os.ReadFile(abs)
    if err != nil {
        return nil, nil, false, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
    }
    return raw, &url.URL{Path: filepath.ToSlash(abs)}, true, nil
}

func newLoader(settings Settings, rootIsFile bool) *openapi3.Loader {
    loader := openapi3.NewLoader()
    loader.IsExternalRefsAllowed = true
    client := &http.Client{Timeout: settings.HTTPTimeout}
    allowFile := settings.AllowFileRefs || rootIsFile
    loader.ReadFromURIFunc = func(l *openapi3.Loader, uri *url.URL) ([]byte, error) {
        switch strings.ToLower(uri.Scheme) {
        case "", "file":
            if !allowFile {
                return nil, fmt.Errorf("blocked file ref: %s", uri.String())
            }
            path := uri.Path
            if path == "" {
                path = uri.Opaque
            }
            return os.ReadFile(filepath.FromSlash(path))
        case "http", "https":
            req, err := http.NewRequest(http.MethodGet, uri.String(), nil)
            if err != nil {
                return nil, err
            }
            resp, err := client.Do(req)
            if err != nil {
                return nil, err
            }
            defer resp.Body.Close()
            if resp.StatusCode >= 400 {
                return nil, fmt.Errorf("http %d: %s", resp.StatusCode, uri.String())
            }
            return io.ReadAll(resp.Body)
        default:
            return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
        }
    }
    return loader
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
    var root map[string]any
    if err := yaml.Unmarshal(data, &root); err != nil {
        return 0, fmt.Errorf("parse spec: %w", err)
    }
    if v, ok := root["openapi"]; ok {
        if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
            return 3, nil
        }
    }
    if v, ok := root["swagger"]; ok {
        if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
            return 2, nil
        }
    }
    return 0, fmt.Errorf("spec: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

// convertV2ToV3 goes through JSON so the "$ref" and camelCase tags on the openapi2
// types apply.
func convertV2ToV3(data []byte) (*openapi3.T, error) {
    var node yaml.Node
    if err := yaml.Unmarshal(data, &node); err != nil {
        return nil, err
    }
    js, err := json.Marshal(nodeValue(&node))
    if err != nil {
        return nil, err
    }
    var v2 openapi2.T
    if err := json.Unmarshal(js, &v2); err != nil {
        return nil, err
    }
    return openapi2conv.ToV3(&v2)
}

// nodeValue turns a YAML node into JSON-compatible values; mapping keys are always
// strings, so unquoted response codes survive.
func nodeValue(n *yaml.Node) any {
    switch n.Kind {
    case yaml.DocumentNode:
        if len(n.Content) == 0 {
            return nil
        }
        return nodeValue(n.Content[0])
    case yaml.MappingNode:
        m := make(map[string]any, len(n.Content)/2)
        for i := 0; i+1 < len(n.Content); i += 2 {
            m[n.Content[i].Value] = nodeValue(n.Content[i+1])
        }
        return m
    case yaml.SequenceNode:
        out := make([]any, 0, len(n.Content))
        for _, c := range n.Content {
            out = append(out, nodeValue(c))
        }
        return out
    case yaml.AliasNode:
        return nodeValue(n.Alias)
    default:
        var v any
        if err := n.Decode(&v); err != nil {
            return n.Value
        }
        return v
    }
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
    client := &http.Client{Timeout: settings.HTTPTimeout}
    var lastErr error
    backoff := settings.BackoffBase
    if backoff <= 0 {
        backoff = 200 * time.Millisecond
    }
    attempts := settings.MaxRetries
    if attempts <= 0 {
        attempts = 1
    }
    for i := 0; i < attempts; i++ {
        body, retry, err := fetchOnce(ctx, client, rawURL)
        if err == nil {
            return body, nil
        }
        if !retry {
            return nil, err
        }
        lastErr = err
        settings.Logger.Debug("retrying spec fetch", "url", rawURL, "attempt", i+1, "error", err)
        select {
        case <-ctx.Done():
            return nil, ctx.Err()
        case <-time.After(backoff):
        }
        backoff *= 2
    }
    if lastErr == nil {
        lastErr = errors.New("fetch failed")
    }
    return nil, lastErr
}

// fetchOnce performs one GET. retry reports whether the failure looks transient.
func fetchOnce(ctx context.Context, client *http.Client, rawURL string) (body []byte, retry bool, err error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
    if err != nil {
        return nil, false, err
    }
    resp, err := client.Do(req)
    if err != nil {
        return nil, true, err
    }
    defer resp.Body.Close()
    if resp.StatusCode < 300 {
        body, err := io.ReadAll(resp.Body)
        return body, false, err
    }
    if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
        return nil, true, fmt.Errorf("transient http error %d", resp.StatusCode)
    }
    msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
    return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

func mapValidateOrParseErr(err error, location string) error {
    pointer := extractJSONPointer(err)
    code := ValidationError
    lower := strings.ToLower(err.Error())
    if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") {
        code = ParseError
    }
    return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'\"]+`)

func extractJSONPointer(err error) string {
    if err == nil {
        return ""
    }
    if me, ok := err.(openapi3.MultiError); ok {
        if len(me) > 0 {
            return extractJSONPointer(me[0])
        }
    }
    var se *openapi3.SchemaError
    if errors.As(err, &se) {
        if parts := se.JSONPointer(); len(parts) > 0 {
            return "#/" + strings.Join(parts, "/")
        }
        if se.SchemaField != "" {
            return se.SchemaField
        }
    }
    if m := jsonPtrRe.FindString(err.Error()); m != "" {
        return m
    }
    return ""
}

// canProceedDespiteValidation returns true for validation errors a best-effort build can
// survive. Unresolved $ref entries surface later as ReferenceResolutionError; undeclared
// path placeholders compile as required string segments.
func canProceedDespiteValidation(err error) bool {
    if err == nil {
        return true
    }
    s := strings.ToLower(err.Error())
    return strings.Contains(s, "unresolved ref") ||
        strings.Contains(s, "must define exactly all path parameters")
}

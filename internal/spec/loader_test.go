package spec

import (
    "context"
    "errors"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"
)

func TestLoad_BlocksFileURL(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    _, err := Load(ctx, "file:///etc/hosts")
    if err == nil {
        t.Fatalf("expected error for file:// URL")
    }
    var se *SpecError
    if !errors.As(err, &se) {
        t.Fatalf("expected SpecError, got %T", err)
    }
    if se.Code != InputError {
        t.Fatalf("expected InputError, got %v", se.Code)
    }
}

func TestLoad_UnsupportedScheme(t *testing.T) {
    t.Parallel()
    ctx := context.Background()
    _, err := Load(ctx, "ftp://example.com/spec.yaml")
    if err == nil {
        t.Fatalf("expected error for unsupported scheme")
    }
    var se *SpecError
    if !errors.As(err, &se) || se.Code != InputError {
        t.Fatalf("expected InputError, got %v (%T)", err, err)
    }
}

func TestLoad_NetworkError(t *testing.T) {
    t.Parallel()
    // Unused port to provoke a quick network failure.
    url := "http://127.0.0.1:1/spec.yaml"
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    _, err := Load(ctx, url, WithHTTPTimeout(200*time.Millisecond), WithMaxRetries(2))
    if err == nil {
        t.Fatalf("expected network error")
    }
    var se *SpecError
    if !errors.As(err, &se) || se.Code != NetworkError {
        t.Fatalf("expected NetworkError, got %v (%T)", err, err)
    }
}

func TestLoad_V3_InvalidSpec(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    path := filepath.Join(dir, "bad.yaml")
    content := strings.TrimSpace(`openapi: 3.0.0
info:
  title: Bad
  version: "1.0.0"
paths:
  "/pet":
    get:
      responses: {}
`) + "\n"
    if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }

    ctx := context.Background()
    _, err := LoadDocument(ctx, path)
    if err == nil {
        t.Fatalf("expected validation error for incomplete responses")
    }
    var se *SpecError
    if !errors.As(err, &se) {
        t.Fatalf("expected SpecError, got %T", err)
    }
    if se.Code != ValidationError && se.Code != ParseError { // parser version differences
        t.Fatalf("expected ValidationError/ParseError, got %v", se.Code)
    }
    if se.Location == "" {
        t.Fatalf("expected location to be set")
    }
}

func TestLoadDocument_TolerantInputs(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    path := filepath.Join(dir, "tolerant.yaml")
    content := strings.TrimSpace(`openapi: 3.0.0
info:
  title: Tolerant
  version: "1.0.0"
paths:
  /zeta/{petId}:
    delete:
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Pet'
components:
  schemas:
    Pet:
      type: object
      properties:
        zz:
          type: integer
          format: int64
          example: "9999999999"
`) + "\n"
    if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }

    src, err := LoadDocument(context.Background(), path)
    if err != nil {
        t.Fatalf("expected quoted int64 example and undeclared path parameter to load, got %v", err)
    }
    doc, err := BuildDocument(context.Background(), src)
    if err != nil {
        t.Fatalf("build: %v", err)
    }
    if len(doc.Operations) != 1 || doc.Operations[0].Path != "/zeta/{petId}" {
        t.Fatalf("expected DELETE /zeta/{petId}, got %+v", doc.Operations)
    }
    if n := len(doc.Operations[0].PathParameters()); n != 0 {
        t.Fatalf("expected no declared path parameters, got %d", n)
    }
    zz := doc.Schemas["Pet"].Property("zz")
    if zz == nil || zz.Example != "9999999999" {
        t.Fatalf("expected example kept verbatim, got %+v", zz)
    }
}

func TestCanProceedDespiteValidation(t *testing.T) {
    t.Parallel()
    cases := map[string]bool{
        "found unresolved ref: \"#/components/schemas/Missing\"":                                            true,
        "invalid paths: operation DELETE /zeta/{petId} must define exactly all path parameters (missing: [petId])": true,
        "invalid components: schema \"Pet\": invalid example: value must be an integer":                     false,
        "value of openapi must be a non-empty string":                                                        false,
    }
    for msg, want := range cases {
        if got := canProceedDespiteValidation(errors.New(msg)); got != want {
            t.Fatalf("canProceedDespiteValidation(%q) = %v, want %v", msg, got, want)
        }
    }
}

func TestLoadDocument_V2_Conversion(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    path := filepath.Join(dir, "swagger.yaml")
    content := strings.TrimSpace(`swagger: "2.0"
info:
  title: Sample
  version: "1.0.0"
produces: [application/json]
paths:
  "/zoo":
    get:
      responses:
        404:
          description: missing
        200:
          description: ok
          schema:
            $ref: '#/definitions/Animal'
  "/hello":
    get:
      responses:
        "200":
          description: ok
definitions:
  Animal:
    type: object
    properties:
      species: { type: string }
      age: { type: integer }
`) + "\n"
    if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }

    src, err := LoadDocument(context.Background(), path)
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    if !src.Converted || !strings.HasPrefix(src.Doc.OpenAPI, "3.") {
        t.Fatalf("expected converted OpenAPI v3, got %q", src.Doc.OpenAPI)
    }

    doc, err := BuildDocument(context.Background(), src)
    if err != nil {
        t.Fatalf("build: %v", err)
    }
    if len(doc.Operations) != 2 || doc.Operations[0].Path != "/zoo" {
        t.Fatalf("expected document path order, got %+v", doc.Operations)
    }
    zoo := doc.Operations[0]
    if zoo.Responses[0].Status != "404" || zoo.Responses[1].Status != "200" {
        t.Fatalf("expected response order to survive conversion, got %+v", zoo.Responses)
    }
    media := zoo.Responses[1].Content
    if len(media) != 1 || media[0].Schema == nil || media[0].Schema.Ref != "#/components/schemas/Animal" {
        t.Fatalf("expected converted schema reference, got %+v", media)
    }
    animal := doc.Schemas["Animal"]
    if animal == nil || len(animal.Properties) != 2 || animal.Properties[0].Name != "species" {
        t.Fatalf("expected definition property order, got %+v", animal)
    }
}

func TestLoad_V2_Conversion_Failure(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    path := filepath.Join(dir, "swagger-bad.yaml")
    content := strings.TrimSpace(`swagger: "2.0"
paths: {}
`) + "\n"
    if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }

    ctx := context.Background()
    _, err := Load(ctx, path)
    if err == nil {
        t.Fatalf("expected conversion error")
    }
    var se *SpecError
    if !errors.As(err, &se) {
        t.Fatalf("expected SpecError, got %T", err)
    }
    if se.Code != ConversionError && se.Code != ValidationError && se.Code != ParseError {
        t.Fatalf("expected ConversionError/ValidationError/ParseError, got %v", se.Code)
    }
}


package spec

import (
    "context"
    "os"
    "path/filepath"
    "strings"
    "testing"
)

const sampleSpec = `openapi: 3.0.0
info:
  title: Sample API
  version: "1.0.0"
  description: Demo
paths:
  /zebras:
    get:
      tags: [animal]
      responses:
        "200": { description: ok }
  /pets/{petId}:
    parameters:
      - in: path
        name: petId
        required: true
        schema:
          type: string
      - in: query
        name: verbose
        schema:
          type: boolean
    delete:
      tags: [write]
      responses:
        "204": { description: gone }
    get:
      summary: Get pet
      tags: [read, animal]
      parameters:
        - in: path
          name: petId
          required: true
          schema:
            $ref: '#/components/schemas/PetId'
        - in: query
          name: fields
          schema:
            type: string
      responses:
        "404":
          description: missing
        "200":
          description: ok
          content:
            application/xml:
              schema:
                $ref: '#/components/schemas/Pet'
            application/json:
              schema:
                $ref: '#/components/schemas/Pet'
              examples:
                second: { value: { id: 2 } }
                first: { value: { id: 1 } }
  /admin:
    post:
      tags: [admin]
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              properties:
                zeta: { type: string }
                alpha: { type: string }
      responses:
        default: { description: whatever }
components:
  schemas:
    PetId:
      type: integer
      format: int64
    Pet:
      type: object
      xml:
        name: pet
        prefix: p
        namespace: http://example.com/pet
      properties:
        name:
          type: string
        id:
          type: integer
          format: int64
          minimum: 7
        tags:
          type: array
          xml: { wrapped: true }
          items: { type: string }
        owner:
          $ref: '#/components/schemas/Owner'
    Owner:
      type: object
      additionalProperties: true
`

func loadSource(t *testing.T, spec string) *Source {
    t.Helper()
    dir := t.TempDir()
    path := filepath.Join(dir, "spec.yaml")
    if err := os.WriteFile(path, []byte(strings.TrimSpace(spec)+"\n"), 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }
    src, err := LoadDocument(context.Background(), path)
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    return src
}

func operationIDs(doc *Document) []string {
    ids := make([]string, 0, len(doc.Operations))
    for _, op := range doc.Operations {
        ids = append(ids, op.ID)
    }
    return ids
}

func TestBuildDocument_DocumentOrder(t *testing.T) {
    t.Parallel()
    doc, err := BuildDocument(context.Background(), loadSource(t, sampleSpec))
    if err != nil {
        t.Fatalf("build: %v", err)
    }
    if doc.Title != "Sample API" {
        t.Errorf("title: got %q", doc.Title)
    }

    // Paths in document order, methods in dispatch order (GET before DELETE).
    want := []string{"GET /zebras", "GET /pets/{petId}", "DELETE /pets/{petId}", "POST /admin"}
    got := operationIDs(doc)
    if strings.Join(got, ",") != strings.Join(want, ",") {
        t.Fatalf("operations: got %v, want %v", got, want)
    }

    get := doc.Operations[1]
    if len(get.Responses) != 2 || get.Responses[0].Status != "404" || get.Responses[1].Status != "200" {
        t.Fatalf("responses not in declaration order: %+v", get.Responses)
    }
    content := get.Responses[1].Content
    if len(content) != 2 || content[0].Mime != "application/xml" {
        t.Fatalf("media types not in declaration order: %+v", content)
    }
    if ex, ok := content[1].Example.(map[string]any); !ok || ex["id"] != float64(2) {
        t.Fatalf("expected first declared named example, got %#v", content[1].Example)
    }
    if content[1].Schema == nil || content[1].Schema.Ref != "#/components/schemas/Pet" {
        t.Fatalf("expected reference to stay a reference, got %+v", content[1].Schema)
    }

    pet := doc.Schemas["Pet"]
    if pet == nil || pet.Name != "Pet" {
        t.Fatalf("schemas: missing Pet")
    }
    var names []string
    for _, p := range pet.Properties {
        names = append(names, p.Name)
    }
    if strings.Join(names, ",") != "name,id,tags,owner" {
        t.Fatalf("property order: got %v", names)
    }
    if pet.XML == nil || pet.XML.Prefix != "p" || pet.XML.Namespace != "http://example.com/pet" {
        t.Fatalf("xml metadata: got %+v", pet.XML)
    }
    if tags := pet.Property("tags"); tags == nil || tags.XML == nil || !tags.XML.Wrapped {
        t.Fatalf("wrapped flag lost: %+v", tags)
    }
    if id := pet.Property("id"); id.Minimum == nil || *id.Minimum != 7 {
        t.Fatalf("minimum lost: %+v", id)
    }
    if owner := doc.Schemas["Owner"]; !owner.HasProperties() {
        t.Fatalf("additionalProperties: true should count as properties")
    }

    admin := doc.Operations[3]
    if admin.RequestBody == nil || !admin.RequestBody.Required {
        t.Fatalf("admin: expected required request body")
    }
    body := admin.RequestBody.Content[0].Schema
    if body.Properties[0].Name != "zeta" || body.Properties[1].Name != "alpha" {
        t.Fatalf("inline property order: %+v", body.Properties)
    }
}

func TestBuildDocument_ParameterMerging(t *testing.T) {
    t.Parallel()
    doc, err := BuildDocument(context.Background(), loadSource(t, sampleSpec))
    if err != nil {
        t.Fatalf("build: %v", err)
    }
    get := doc.Operations[1]
    if len(get.Parameters) != 3 {
        t.Fatalf("expected 3 merged parameters, got %+v", get.Parameters)
    }
    // Operation-level petId replaces the path-level one in place.
    if p := get.Parameters[0]; p.Name != "petId" || p.Type != "integer" {
        t.Fatalf("petId override: got %+v", p)
    }
    if q := get.QueryParameters(); len(q) != 2 || q[0].Name != "verbose" || q[1].Name != "fields" {
        t.Fatalf("query parameters: got %+v", q)
    }
    del := doc.Operations[2]
    if p := del.PathParameters(); len(p) != 1 || p[0].Type != "string" || !p[0].Required {
        t.Fatalf("delete inherits path-level parameter: got %+v", p)
    }
}

func TestBuildDocument_Filters(t *testing.T) {
    t.Parallel()
    src := loadSource(t, sampleSpec)
    ctx := context.Background()

    doc, err := BuildDocument(ctx, src, WithIncludeTags([]string{"animal"}), WithExcludeTags([]string{"read"}))
    if err != nil {
        t.Fatalf("build: %v", err)
    }
    if got := operationIDs(doc); len(got) != 1 || got[0] != "GET /zebras" {
        t.Fatalf("tag filters: got %v", got)
    }
    if len(doc.Tags) != 1 || doc.Tags[0] != "animal" {
        t.Fatalf("tags: got %v", doc.Tags)
    }

    doc, err = BuildDocument(ctx, src, WithPathGlobs([]string{"/pets/**"}), WithMethods([]HttpMethod{"delete"}))
    if err != nil {
        t.Fatalf("build: %v", err)
    }
    if got := operationIDs(doc); len(got) != 1 || got[0] != "DELETE /pets/{petId}" {
        t.Fatalf("path/method filters: got %v", got)
    }

    if _, err := BuildDocument(ctx, src, WithPathGlobs([]string{"/pets/[a"})); err == nil {
        t.Fatalf("expected invalid glob error")
    }
}

func TestBuildDocument_NilSource(t *testing.T) {
    t.Parallel()
    if _, err := BuildDocument(context.Background(), nil); err == nil {
        t.Fatalf("expected error for nil source")
    }
}

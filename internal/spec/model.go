package spec

// Document model consumed by the routing assembler. It is built once from an OpenAPI
// document and never mutated afterwards.

type HttpMethod string

const (
    GET    HttpMethod = "GET"
    PUT    HttpMethod = "PUT"
    POST   HttpMethod = "POST"
    PATCH  HttpMethod = "PATCH"
    DELETE HttpMethod = "DELETE"
    HEAD   HttpMethod = "HEAD"
)

// Methods lists the routed methods in dispatch order.
var Methods = []HttpMethod{GET, PUT, POST, PATCH, DELETE, HEAD}

type Document struct {
    Title       string
    Version     string
    Description string
    Servers     []Server
    Tags        []string
    Operations  []Operation
    Schemas     Components
}

type Server struct {
    URL         string
    Description string
}

// Components maps component schema names to schemas.
type Components map[string]*Schema

type Operation struct {
    ID          string // METHOD path
    Method      HttpMethod
    Path        string
    Summary     string
    Description string
    Tags        []string
    Parameters  []Parameter
    RequestBody *RequestBody
    Responses   []Response
}

type Parameter struct {
    Name     string
    In       string // path|query|header|cookie
    Required bool
    Type     string // resolved schema type, empty when unknown
    Schema   *Schema
}

type RequestBody struct {
    Content  []Media
    Required bool
}

type Response struct {
    Status      string // 200, 2XX, default
    Description string
    Content     []Media
}

type Media struct {
    Mime   string
    Schema *Schema
    // Example holds a media-level example value if declared. It may be nil.
    Example any
}

// Schema is a schema node. A reference node carries only Ref.
type Schema struct {
    Name                 string
    Ref                  string
    Type                 string
    Format               string
    Description          string
    Properties           []Property
    Items                *Schema
    AdditionalProperties *Schema
    AdditionalAllowed    bool
    AllOf                []*Schema
    AnyOf                []*Schema
    OneOf                []*Schema
    Enum                 []any
    Example              any
    Minimum              *float64
    XML                  *XML
}

// Property is one named entry of an object schema, kept in declaration order.
type Property struct {
    Name   string
    Schema *Schema
}

// XML carries the serialization hints of a schema.
type XML struct {
    Name      string
    Namespace string
    Prefix    string
    Attribute bool
    Wrapped   bool
}

// HasProperties reports whether the schema declares properties or additionalProperties.
func (s *Schema) HasProperties() bool {
    return s != nil && (s.Properties != nil || s.AdditionalProperties != nil || s.AdditionalAllowed)
}

// Property returns the named property schema, or nil.
func (s *Schema) Property(name string) *Schema {
    if s == nil {
        return nil
    }
    for _, p := range s.Properties {
        if p.Name == name {
            return p.Schema
        }
    }
    return nil
}

// PathParameters returns the parameters declared in: path.
func (o *Operation) PathParameters() []Parameter { return o.parametersIn("path") }

// QueryParameters returns the parameters declared in: query.
func (o *Operation) QueryParameters() []Parameter { return o.parametersIn("query") }

func (o *Operation) parametersIn(in string) []Parameter {
    var out []Parameter
    for _, p := range o.Parameters {
        if p.In == in {
            out = append(out, p)
        }
    }
    return out
}

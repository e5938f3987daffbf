package spec

import (
    "errors"
    "testing"
)

func TestResolve(t *testing.T) {
    t.Parallel()
    pet := &Schema{Name: "Pet", Type: "object"}
    comps := Components{
        "Pet":   pet,
        "Alias": {Ref: "#/components/schemas/Pet"},
        "Loop":  {Ref: "#/components/schemas/Loop"},
    }

    got, err := Resolve(&Schema{Ref: "#/components/schemas/Alias"}, comps)
    if err != nil || got != pet {
        t.Fatalf("alias chain: got %+v, %v", got, err)
    }

    inline := &Schema{Type: "string"}
    if got, _ := Resolve(inline, comps); got != inline {
        t.Fatalf("inline schema should resolve to itself")
    }

    var rre *ReferenceResolutionError
    if _, err := Resolve(&Schema{Ref: "#/components/schemas/Nope"}, comps); !errors.As(err, &rre) || rre.Name != "Nope" {
        t.Fatalf("missing target: got %v", err)
    }
    if _, err := Resolve(&Schema{Ref: "#/components/schemas/Loop"}, comps); !errors.As(err, &rre) {
        t.Fatalf("alias loop: got %v", err)
    }
}

func TestRefName(t *testing.T) {
    t.Parallel()
    if got := RefName("#/components/schemas/Pet"); got != "Pet" {
        t.Fatalf("got %q", got)
    }
    if got := RefName("Pet"); got != "Pet" {
        t.Fatalf("got %q", got)
    }
}

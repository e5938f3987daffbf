package cli

import (
    "errors"
    "io"
    "strings"
    "testing"
)

func TestFlagErrors_AreInvalidInvocations(t *testing.T) {
    t.Parallel()
    cases := []struct {
        name string
        args []string
        want string
    }{
        {"generate unknown flag", []string{"generate", "--unknown-flag"}, "unknown flag: --unknown-flag"},
        {"init unknown flag", []string{"init", "--unknown-flag"}, "unknown flag: --unknown-flag"},
        {"non-numeric port", []string{"generate", "--postman-port", "eighty"}, "invalid argument"},
    }
    for _, tc := range cases {
        tc := tc
        t.Run(tc.name, func(t *testing.T) {
            t.Parallel()
            root := NewRootCmd()
            root.SetOut(io.Discard)
            root.SetErr(io.Discard)
            root.SetArgs(tc.args)

            err := root.Execute()
            if err == nil {
                t.Fatalf("expected error for %v", tc.args)
            }
            if !errors.Is(err, ErrInvalidInvocation) {
                t.Fatalf("expected ErrInvalidInvocation, got %T: %v", err, err)
            }
            if code := ExitCode(err); code != 2 {
                t.Fatalf("expected exit code 2, got %d", code)
            }
            if !strings.Contains(err.Error(), tc.want) {
                t.Fatalf("expected %q in error, got %v", tc.want, err)
            }
            if !strings.Contains(err.Error(), "Usage:\n  swagger2regurgitator "+tc.args[0]) {
                t.Fatalf("expected usage of the %s command, got %v", tc.args[0], err)
            }
        })
    }
}

package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Tests that swap generateRunner stay serial.

func TestGenerateConfigFromFlags(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs([]string{
		"--verbose",
		"--log-format", "JSON",
		"generate",
		"--input", "spec.yaml",
		"--format", "XML",
		"--out", "./build",
		"--include-tags", "foo,bar",
		"--exclude-tags", "baz",
		"--include-paths", "/pets/**",
		"--file-prefix", "file:/mocks/",
		"--inline",
		"--postman",
		"--postman-port", "9090",
		"--deterministic",
		"--dry-run",
		"--force",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if captured.Input != "spec.yaml" {
		t.Errorf("input mismatch: got %q", captured.Input)
	}
	if captured.Format != "xml" {
		t.Errorf("format mismatch: got %q", captured.Format)
	}
	if captured.Out != "./build" {
		t.Errorf("out mismatch: got %q", captured.Out)
	}
	if want := []string{"foo", "bar"}; !equalStringSlices(captured.IncludeTags, want) {
		t.Errorf("include tags mismatch: got %v", captured.IncludeTags)
	}
	if want := []string{"baz"}; !equalStringSlices(captured.ExcludeTags, want) {
		t.Errorf("exclude tags mismatch: got %v", captured.ExcludeTags)
	}
	if want := []string{"/pets/**"}; !equalStringSlices(captured.IncludePaths, want) {
		t.Errorf("include paths mismatch: got %v", captured.IncludePaths)
	}
	if captured.FilePrefix != "file:/mocks/" {
		t.Errorf("file prefix mismatch: got %q", captured.FilePrefix)
	}
	if !captured.Inline || !captured.Postman || !captured.Deterministic {
		t.Errorf("expected inline, postman and deterministic: %+v", captured)
	}
	if captured.PostmanPort != 9090 {
		t.Errorf("postman port mismatch: got %d", captured.PostmanPort)
	}
	if captured.LogFormat != "json" {
		t.Errorf("log format mismatch: got %q", captured.LogFormat)
	}
	if !captured.DryRun {
		t.Errorf("expected dry-run true")
	}
	if !captured.Force {
		t.Errorf("expected force true")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true")
	}
}

func TestGenerateConfigDefaults(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs([]string{"generate", "--input", "spec.yaml"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured.Format != "json" || captured.FilePrefix != "classpath:/" || captured.PostmanPort != 8080 || captured.LogFormat != "text" {
		t.Fatalf("unexpected defaults: %+v", captured)
	}
	if captured.Inline || captured.Postman || captured.Deterministic {
		t.Fatalf("optional features should default off: %+v", captured)
	}
}

func TestGenerateConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := strings.TrimSpace(`input: config-spec.yaml
format: xml
out: from-config
includeTags:
  - cfgFoo
excludeTags: cfgBar
include-paths: "/a/**, /b"
filePrefix: "file:/cfg/"
inline: yes
postman: true
postmanPort: 7000
deterministic: true
dryRun: true
force: false
verbose: true
log_format: json
`) + "\n"

	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs([]string{
		"--config", configPath,
		"generate",
		"--input", "flag-spec.yaml",
		"--include-tags", "flagTag",
		"--format", "json",
		"--postman-port", "7100",
		"--dry-run=false",
		"--force",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if captured.Input != "flag-spec.yaml" {
		t.Errorf("input: want %q got %q", "flag-spec.yaml", captured.Input)
	}
	if captured.Format != "json" {
		t.Errorf("format: want json got %q", captured.Format)
	}
	if captured.Out != "from-config" {
		t.Errorf("out: want from-config got %q", captured.Out)
	}
	if want := []string{"flagTag"}; !equalStringSlices(captured.IncludeTags, want) {
		t.Errorf("include tags: want %v got %v", want, captured.IncludeTags)
	}
	if want := []string{"cfgBar"}; !equalStringSlices(captured.ExcludeTags, want) {
		t.Errorf("exclude tags: want %v got %v", want, captured.ExcludeTags)
	}
	if want := []string{"/a/**", "/b"}; !equalStringSlices(captured.IncludePaths, want) {
		t.Errorf("include paths: want %v got %v", want, captured.IncludePaths)
	}
	if captured.FilePrefix != "file:/cfg/" {
		t.Errorf("file prefix mismatch: got %q", captured.FilePrefix)
	}
	if !captured.Inline || !captured.Postman || !captured.Deterministic {
		t.Errorf("expected inline, postman and deterministic from config file: %+v", captured)
	}
	if captured.PostmanPort != 7100 {
		t.Errorf("postman port: want 7100 got %d", captured.PostmanPort)
	}
	if captured.LogFormat != "json" {
		t.Errorf("log format: want json got %q", captured.LogFormat)
	}
	if captured.DryRun {
		t.Errorf("expected dry-run false after flag override")
	}
	if !captured.Force {
		t.Errorf("expected force true after flag override")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true from config file")
	}
	if captured.ConfigPath != configPath {
		t.Errorf("config path mismatch: got %q", captured.ConfigPath)
	}
}

func TestGenerateConfigUnknownKey(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("lang: go\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	root.SetArgs([]string{
		"--config", configPath,
		"generate",
		"--input", "spec.yaml",
	})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errors.Is(err, ErrInvalidInvocation) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestGenerateConfigValidation(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"missing input":  {"generate"},
		"bad format":     {"generate", "--input", "s.yaml", "--format", "yaml"},
		"bad log format": {"--log-format", "xml", "generate", "--input", "s.yaml"},
		"bad port":       {"generate", "--input", "s.yaml", "--postman-port", "70000"},
		"tag overlap":    {"generate", "--input", "s.yaml", "--include-tags", "a", "--exclude-tags", "a"},
	}
	for name, args := range cases {
		args := args
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			root := NewRootCmd()
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			root.SetArgs(args)
			err := root.Execute()
			if !errors.Is(err, ErrInvalidInvocation) {
				t.Fatalf("expected invalid invocation, got %v", err)
			}
			if code := ExitCode(err); code != 2 {
				t.Fatalf("exit code: got %d", code)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()
	if ExitCode(nil) != 0 {
		t.Fatalf("nil error should exit 0")
	}
	if ExitCode(errors.New("boom")) != 1 {
		t.Fatalf("plain error should exit 1")
	}
	if ExitCode(newUsageError("bad")) != 2 {
		t.Fatalf("usage error should exit 2")
	}
}

func TestDeriveDirName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"Swagger Petstore":    "swagger-petstore",
		"My API: v2.0 (beta)": "my-api-v2-0-beta",
		"  ":                  "",
		"!!!":                 "",
	}
	for in, want := range cases {
		if got := deriveDirName(in); got != want {
			t.Errorf("deriveDirName(%q) = %q, want %q", in, got, want)
		}
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

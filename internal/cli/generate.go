package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/regurgitator/swagger2regurgitator/internal/emitter"
	"github.com/regurgitator/swagger2regurgitator/internal/emitter/postman"
	"github.com/regurgitator/swagger2regurgitator/internal/example"
	"github.com/regurgitator/swagger2regurgitator/internal/logging"
	"github.com/regurgitator/swagger2regurgitator/internal/routing"
	"github.com/regurgitator/swagger2regurgitator/internal/spec"
)

// deterministicEpoch is the clock used for date and date-time examples with
// --deterministic.
var deterministicEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

const defaultOutDir = "regurgitator-mock"

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input         string
	Out           string
	Format        string
	IncludeTags   []string
	ExcludeTags   []string
	IncludePaths  []string
	FilePrefix    string
	Inline        bool
	Postman       bool
	PostmanPort   int
	Deterministic bool
	ConfigPath    string
	DryRun        bool
	Force         bool
	Verbose       bool
	LogFormat     string

	// Stdout receives the human-facing summary; logs go to Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Format:      string(emitter.FormatJSON),
		FilePrefix:  routing.DefaultFilePrefix,
		PostmanPort: postman.DefaultPort,
		LogFormat:   string(logging.FormatText),
	}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Compile an OpenAPI/Swagger document into regurgitator configuration",
		Long: "Compile an OpenAPI/Swagger document into regurgitator routing configuration and example files. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  swagger2regurgitator generate --input spec.yaml --out ./mock
  swagger2regurgitator generate --input spec.yaml --format xml --postman --inline
  swagger2regurgitator --config config.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Stdout = cmd.OutOrStdout()
			cfg.Stderr = cmd.ErrOrStderr()
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the Swagger/OpenAPI document")
	flags.String("out", "", "Output directory (derived from the document title when omitted)")
	flags.String("format", "", "Configuration form to emit (json|xml); defaults to json")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("include-paths", nil, "Only include paths matching these globs (e.g. /pets/**)")
	flags.String("file-prefix", "", "Prefix for file references in configuration (default classpath:/)")
	flags.Bool("inline", false, "Embed operation steps in the root configuration instead of referencing per-operation files")
	flags.Bool("postman", false, "Also write a Postman collection")
	flags.Int("postman-port", 0, "Port the Postman collection targets (default 8080)")
	flags.Bool("deterministic", false, "Use a fixed clock and name-based UUIDs so repeated runs are byte-identical")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Write into a non-empty output directory")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"input":       &cfg.Input,
		"out":         &cfg.Out,
		"format":      &cfg.Format,
		"file-prefix": &cfg.FilePrefix,
		"log-format":  &cfg.LogFormat,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	lists := map[string]*[]string{
		"include-tags":  &cfg.IncludeTags,
		"exclude-tags":  &cfg.ExcludeTags,
		"include-paths": &cfg.IncludePaths,
	}
	for name, dst := range lists {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = sanitizeTags(value)
	}

	bools := map[string]*bool{
		"inline":        &cfg.Inline,
		"postman":       &cfg.Postman,
		"deterministic": &cfg.Deterministic,
		"dry-run":       &cfg.DryRun,
		"force":         &cfg.Force,
		"verbose":       &cfg.Verbose,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	if flags.Changed("postman-port") {
		value, err := flags.GetInt("postman-port")
		if err != nil {
			return err
		}
		cfg.PostmanPort = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.FilePrefix = strings.TrimSpace(c.FilePrefix)
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.IncludePaths = sanitizeTags(c.IncludePaths)
	if c.Format == "" {
		c.Format = string(emitter.FormatJSON)
	}
	if c.FilePrefix == "" {
		c.FilePrefix = routing.DefaultFilePrefix
	}
	if c.LogFormat == "" {
		c.LogFormat = string(logging.FormatText)
	}
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}
	if _, err := emitter.ParseFormat(c.Format); err != nil {
		return newUsageError(fmt.Sprintf("generate: unsupported --format %q (allowed: json, xml)", c.Format))
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return newUsageError(fmt.Sprintf("generate: unsupported --log-format %q (allowed: text, json)", c.LogFormat))
	}
	if c.PostmanPort < 1 || c.PostmanPort > 65535 {
		return newUsageError(fmt.Sprintf("generate: --postman-port %d out of range 1-65535", c.PostmanPort))
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	stdout, stderr := cfg.Stdout, cfg.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	logFormat, _ := logging.ParseFormat(cfg.LogFormat)
	logger := logging.New(logging.Config{
		Level:  logging.LevelFor(cfg.Verbose),
		Format: logFormat,
		Output: stderr,
	})

	// 1) Load the document (file or http/https URL) with validation and conversion
	src, err := spec.LoadDocument(ctx, cfg.Input, spec.WithLogger(logger))
	if err != nil {
		var se *spec.SpecError
		if errors.As(err, &se) {
			msg := fmt.Sprintf("spec: %s", se.Message)
			if se.Location != "" {
				msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
			}
			if se.JSONPointer != "" {
				msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
			}
			return newUsageError(msg)
		}
		return err
	}
	if src.Converted {
		logger.Info("converted Swagger 2.0 document to OpenAPI 3", "input", cfg.Input)
	}

	// 2) Build the document model with filters
	doc, err := spec.BuildDocument(
		ctx,
		src,
		spec.WithIncludeTags(cfg.IncludeTags),
		spec.WithExcludeTags(cfg.ExcludeTags),
		spec.WithPathGlobs(cfg.IncludePaths),
	)
	if err != nil {
		return newUsageError(fmt.Sprintf("build document: %v", err))
	}
	if len(doc.Operations) == 0 {
		logger.Warn("no operations selected; only the fallback route will be written", "input", cfg.Input)
	}

	// 3) Assemble the routing tree
	format, _ := emitter.ParseFormat(cfg.Format)
	var synthOpts []example.Option
	if cfg.Deterministic {
		synthOpts = append(synthOpts,
			example.WithClock(func() time.Time { return deterministicEpoch }),
			example.WithUUID(example.SequentialUUIDs(doc.Title+" "+doc.Version)),
		)
	}
	res, err := routing.Assemble(doc, routing.Options{
		FilePrefix:  cfg.FilePrefix,
		ConfigExt:   string(format),
		Inline:      cfg.Inline,
		Logger:      logger,
		Synthesizer: example.New(doc.Schemas, synthOpts...),
	})
	if err != nil {
		return err
	}

	// 4) Emit
	outDir := cfg.Out
	if outDir == "" {
		outDir = deriveDirName(doc.Title)
		if outDir == "" {
			outDir = defaultOutDir
		}
	}
	absOut := outDir
	if ap, err := filepath.Abs(outDir); err == nil {
		absOut = ap
	}
	out, err := emitter.Emit(ctx, res, emitter.Options{
		OutDir:  outDir,
		Format:  format,
		Force:   cfg.Force,
		DryRun:  cfg.DryRun,
		Verbose: cfg.Verbose,
		Postman: cfg.Postman,
		PostmanOptions: postman.Options{
			Name:        doc.Title,
			Description: doc.Description,
			Version:     doc.Version,
			Port:        cfg.PostmanPort,
		},
		Logger: logger,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}

	paths := make([]string, 0, len(out.Planned))
	for _, p := range out.Planned {
		paths = append(paths, p.RelPath)
	}
	if cfg.DryRun {
		printPlan(stdout, absOut, paths)
		return nil
	}
	printSummary(stdout, absOut, len(res.Operations), len(paths))
	return nil
}

func printPlan(w io.Writer, outDir string, relPaths []string) {
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", outDir, len(relPaths))
	for _, p := range relPaths {
		fmt.Fprintf(w, "- %s\n", p)
	}
}

func printSummary(w io.Writer, outDir string, operations, files int) {
	color.New(color.FgGreen).Fprintf(w, "✅ Wrote %d files for %d operations to %s\n", files, operations, outDir)
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	var cwe *emitter.ConfigurationWriteError
	if errors.As(err, &cwe) && !errors.Is(err, os.ErrPermission) {
		return err
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

func deriveDirName(title string) string {
	t := strings.TrimSpace(title)
	if t == "" {
		return ""
	}
	t = strings.ToLower(t)
	repl := strings.NewReplacer("/", " ", "_", " ", ".", " ", ",", " ", ":", " ")
	t = repl.Replace(t)
	var b strings.Builder
	for _, r := range t {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' || r == '-' {
			b.WriteRune(r)
		}
	}
	parts := strings.Fields(b.String())
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "-")
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	strs := map[string]*string{
		"input":      &cfg.Input,
		"out":        &cfg.Out,
		"format":     &cfg.Format,
		"fileprefix": &cfg.FilePrefix,
		"logformat":  &cfg.LogFormat,
	}
	lists := map[string]*[]string{
		"includetags":  &cfg.IncludeTags,
		"excludetags":  &cfg.ExcludeTags,
		"includepaths": &cfg.IncludePaths,
	}
	bools := map[string]*bool{
		"inline":        &cfg.Inline,
		"postman":       &cfg.Postman,
		"deterministic": &cfg.Deterministic,
		"dryrun":        &cfg.DryRun,
		"force":         &cfg.Force,
		"verbose":       &cfg.Verbose,
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		if dst, ok := strs[normalized]; ok {
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = str
			continue
		}
		if dst, ok := lists[normalized]; ok {
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = sanitizeTags(list)
			continue
		}
		if dst, ok := bools[normalized]; ok {
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = val
			continue
		}
		if normalized == "postmanport" {
			val, err := valueAsInt(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.PostmanPort = val
			continue
		}
		return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case float64:
		if val != float64(int(val)) {
			return 0, fmt.Errorf("expected integer, got %v", val)
		}
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid integer value %q", val)
		}
		return n, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

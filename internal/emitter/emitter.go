// Package emitter turns an assembled routing tree into files: every configuration
// document in one form, the example payloads they reference, and optionally a Postman
// collection.
package emitter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/regurgitator/swagger2regurgitator/internal/dsl"
	"github.com/regurgitator/swagger2regurgitator/internal/emitter/jsonemitter"
	"github.com/regurgitator/swagger2regurgitator/internal/emitter/postman"
	"github.com/regurgitator/swagger2regurgitator/internal/emitter/xmlemitter"
	"github.com/regurgitator/swagger2regurgitator/internal/logging"
	"github.com/regurgitator/swagger2regurgitator/internal/routing"
)

// Format selects the configuration form.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// ParseFormat accepts "json" or "xml", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatXML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want json or xml)", s)
}

// Options controls how a routing tree is written.
type Options struct {
	OutDir  string // required; target directory
	Format  Format // configuration form; FormatJSON when empty
	Force   bool   // write into a non-empty directory
	DryRun  bool   // plan only
	Verbose bool

	Postman        bool
	PostmanOptions postman.Options

	Logger *slog.Logger
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result lists the planned files in path order.
type Result struct {
	Format  Format
	Planned []PlannedFile
}

// ConfigurationWriteError reports a file that could not be encoded, validated or
// written.
type ConfigurationWriteError struct {
	Path string
	Err  error
}

func (e *ConfigurationWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *ConfigurationWriteError) Unwrap() error { return e.Err }

// Emit encodes res and, unless DryRun is set, writes it below OutDir. Nothing is written
// when any file fails to encode or validate.
func Emit(ctx context.Context, res *routing.Result, opts Options) (*Result, error) {
	if res == nil {
		return nil, fmt.Errorf("emitter: nil routing result")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("emitter: OutDir is required")
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	if res.ConfigExt != "" && res.ConfigExt != string(opts.Format) {
		return nil, fmt.Errorf("emitter: routing tree references %s configurations but format is %s", res.ConfigExt, opts.Format)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	files := map[string][]byte{}
	root := routing.ConfigFileBase + "." + string(opts.Format)
	if err := addConfiguration(files, root, &res.Root, opts.Format); err != nil {
		return nil, err
	}
	if !res.Inline {
		for i := range res.Operations {
			op := &res.Operations[i]
			if err := addConfiguration(files, op.ConfigPath(string(opts.Format)), &op.Config, opts.Format); err != nil {
				return nil, err
			}
		}
	}
	for _, p := range res.Payloads() {
		data, err := p.Encode()
		if err != nil {
			return nil, &ConfigurationWriteError{Path: p.Path, Err: err}
		}
		files[p.Path] = data
	}
	if opts.Postman {
		data, err := postman.Encode(res, opts.PostmanOptions)
		if err != nil {
			return nil, &ConfigurationWriteError{Path: postman.FileName, Err: err}
		}
		files[postman.FileName] = data
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)
	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
		if opts.Verbose {
			log.Info("planned file", "path", rel, "bytes", len(files[rel]))
		}
	}

	if !opts.DryRun {
		if err := writeFiles(ctx, log, opts.OutDir, rels, files, opts.Force); err != nil {
			return nil, err
		}
		log.Info("configuration written", "dir", opts.OutDir, "files", len(rels), "format", opts.Format)
	}
	return &Result{Format: opts.Format, Planned: planned}, nil
}

// addConfiguration encodes cfg after checking it, and for the JSON form checks the
// encoded document against the configuration schema too.
func addConfiguration(files map[string][]byte, rel string, cfg *dsl.Configuration, format Format) error {
	if err := dsl.Validate(cfg); err != nil {
		return &ConfigurationWriteError{Path: rel, Err: err}
	}
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatXML:
		data, err = xmlemitter.Encode(cfg)
	case FormatJSON:
		data, err = jsonemitter.Encode(cfg)
		if err == nil {
			err = jsonemitter.Validate(data)
		}
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return &ConfigurationWriteError{Path: rel, Err: err}
	}
	files[rel] = data
	return nil
}

func writeFiles(ctx context.Context, log *slog.Logger, outDir string, rels []string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("emitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := filepath.Join(abs, filepath.FromSlash(rel))
		if err := writeAtomic(p, files[rel]); err != nil {
			return &ConfigurationWriteError{Path: rel, Err: err}
		}
		log.Debug("wrote file", "path", rel, "bytes", len(files[rel]))
	}
	return nil
}

// writeAtomic writes through a temp file in the target directory and renames it into
// place.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}

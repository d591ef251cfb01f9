package hcl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/djangoconverge/internal/config"
	"github.com/specialistvlad/djangoconverge/internal/ctxlog"
	"github.com/specialistvlad/djangoconverge/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	lookupEnv func(string) (string, bool)
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnv replaces the environment lookup used by the env() function.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(l *Loader) {
		l.lookupEnv = lookup
	}
}

// NewLoader creates a new HCL configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{lookupEnv: os.LookupEnv}
	for _, o := range opts {
		o(l)
	}
	return l
}

var _ config.Loader = (*Loader)(nil)

// fileRoot is the top level of every configuration file.
type fileRoot struct {
	Applications []*applicationBlock `hcl:"application_django,block"`
}

// applicationBlock is an `application_django "<path>" { ... }` block. Its
// body is decoded by hand because `database` may be an argument or a block.
type applicationBlock struct {
	Path string   `hcl:"path,label"`
	Body hcl.Body `hcl:",remain"`
}

// Load parses every .hcl file found under paths and merges the declared
// applications into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, errors.New("no .hcl configuration files found")
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	model := &config.Model{}
	for _, file := range hclFiles {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read HCL file %s: %w", file, err)
		}
		apps, err := l.parse(ctx, parser, file, src)
		if err != nil {
			return nil, err
		}
		model.Applications = append(model.Applications, apps...)
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.", "applications", len(model.Applications))
	return model, nil
}

// Parse decodes a single in-memory HCL document.
func (l *Loader) Parse(ctx context.Context, filename string, src []byte) (*config.Model, error) {
	apps, err := l.parse(ctx, hclparse.NewParser(), filename, src)
	if err != nil {
		return nil, err
	}
	model := &config.Model{Applications: apps}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}

func (l *Loader) parse(ctx context.Context, parser *hclparse.Parser, filename string, src []byte) ([]*config.Application, error) {
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	apps := make([]*config.Application, 0, len(root.Applications))
	for _, block := range root.Applications {
		app, diags := l.translateApplication(ctx, block)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode application %q in %s: %w", block.Path, filename, diags)
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found. Unlike directories, an explicitly named file must exist.
func findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			files, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
		} else if filepath.Ext(path) == ".hcl" {
			add(path)
		} else {
			return nil, fmt.Errorf("configuration file %s must have the .hcl extension", path)
		}
	}
	return allFiles, nil
}

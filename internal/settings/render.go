// Package settings renders the local settings overlay that Django loads after
// the project's primary settings module.
//
// Rendering is a pure function of Options: equal input always produces
// byte-identical output.
package settings

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/djangoconverge/internal/dbspec"
	"github.com/specialistvlad/djangoconverge/internal/ordered"
)

const (
	// DefaultGenerator is the tool name written into the header comment.
	DefaultGenerator = "djangoconverge"
	// DefaultDatabase is the logical database Django always requires.
	DefaultDatabase = "default"
	// ResourceType prefixes the resource identifier in the header comment.
	ResourceType = "application_django"
)

// Database is one named entry of the DATABASES setting.
type Database struct {
	Name string
	Spec dbspec.Spec
}

// Options is the complete input to Render.
type Options struct {
	Debug        bool
	AllowedHosts []string
	// SecretKey is omitted from the output when empty.
	SecretKey string
	// Databases are rendered in declared order.
	Databases []Database
}

// Normalize returns a copy of o whose Databases contain a "default" entry.
// A missing default is prepended with a nil spec; other entries keep their
// order.
func (o Options) Normalize() Options {
	out := o
	out.AllowedHosts = append([]string(nil), o.AllowedHosts...)
	out.Databases = make([]Database, 0, len(o.Databases)+1)
	hasDefault := false
	for _, db := range o.Databases {
		if db.Name == DefaultDatabase {
			hasDefault = true
			break
		}
	}
	if !hasDefault {
		out.Databases = append(out.Databases, Database{Name: DefaultDatabase})
	}
	out.Databases = append(out.Databases, o.Databases...)
	return out
}

type renderer struct {
	generator string
}

// RenderOption customizes Render.
type RenderOption func(*renderer)

// WithGenerator overrides the tool name written into the header comment.
func WithGenerator(name string) RenderOption {
	return func(r *renderer) {
		if name != "" {
			r.generator = name
		}
	}
}

// ResolveDatabases resolves every database in opts into the DATABASES
// mapping, keyed by logical name in declared order.
func ResolveDatabases(opts Options) (*ordered.Map, error) {
	databases := ordered.New()
	for _, db := range opts.Normalize().Databases {
		resolved, err := dbspec.Resolve(db.Spec)
		if err != nil {
			return nil, fmt.Errorf("database %q: %w", db.Name, err)
		}
		databases.Set(db.Name, resolved)
	}
	return databases, nil
}

// Render produces the overlay file content for the application identified
// by resource. The only possible error is an unresolvable database spec.
func Render(opts Options, resource string, ro ...RenderOption) (string, error) {
	r := renderer{generator: DefaultGenerator}
	for _, o := range ro {
		o(&r)
	}

	databases, err := ResolveDatabases(opts)
	if err != nil {
		return "", err
	}

	sections := []string{
		fmt.Sprintf("# Generated by %s for %s[%s]", r.generator, ResourceType, resource),
	}
	if len(opts.AllowedHosts) > 0 {
		hosts, err := ordered.Marshal(opts.AllowedHosts)
		if err != nil {
			return "", err
		}
		sections = append(sections, "ALLOWED_HOSTS = "+hosts)
	}
	sections = append(sections, "DEBUG = "+pythonBool(opts.Debug))

	dbs, err := ordered.Marshal(databases)
	if err != nil {
		return "", err
	}
	sections = append(sections, "DATABASES = "+dbs)

	if opts.SecretKey != "" {
		key, err := ordered.Marshal(opts.SecretKey)
		if err != nil {
			return "", err
		}
		sections = append(sections, "SECRET_KEY = "+key)
	}

	return strings.Join(sections, "\n\n") + "\n", nil
}

func pythonBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

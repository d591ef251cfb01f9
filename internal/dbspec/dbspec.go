// Package dbspec resolves a declared database connection, given either as a
// connection URL or as a block of structured fields, into the canonical
// Django DATABASES entry.
package dbspec

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/specialistvlad/djangoconverge/internal/ordered"
)

// ErrInvalidDatabaseURL is returned when a connection URL has no usable
// scheme or authority.
var ErrInvalidDatabaseURL = errors.New("invalid database URL")

// Keys of a resolved mapping, in serialization order. Extra options follow.
const (
	KeyURL      = "URL"
	KeyEngine   = "ENGINE"
	KeyName     = "NAME"
	KeyUser     = "USER"
	KeyPassword = "PASSWORD"
	KeyHost     = "HOST"
	KeyPort     = "PORT"
)

// Spec is one declared database connection. It is implemented by URL and
// *Fields only; a nil Spec means "use the framework default".
type Spec interface {
	resolve() (*ordered.Map, error)
}

// URL is a connection string such as postgres://user@host/name.
type URL string

// Fields is the structured form of a connection. Empty fields are omitted
// from the resolved mapping.
type Fields struct {
	Engine   string
	Name     string
	User     string
	Password string
	Host     string
	Port     string
	// Extra holds additional Django options in declared order. Keys are
	// upper-cased on resolution.
	Extra []ordered.Pair
}

// Resolve converts spec into its canonical mapping. A nil spec, or a Fields
// value with nothing set, resolves to an empty mapping.
func Resolve(spec Spec) (*ordered.Map, error) {
	if spec == nil {
		return ordered.New(), nil
	}
	return spec.resolve()
}

func (u URL) resolve() (*ordered.Map, error) {
	raw := string(u)
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidDatabaseURL, raw, err)
	}
	if parsed.Scheme == "" {
		return nil, fmt.Errorf("%w: %q: missing scheme", ErrInvalidDatabaseURL, raw)
	}
	if parsed.Opaque != "" {
		return nil, fmt.Errorf("%w: %q: missing authority", ErrInvalidDatabaseURL, raw)
	}

	m := ordered.New()
	m.Set(KeyURL, raw)
	m.Set(KeyEngine, Engine(parsed.Scheme))
	setIfPresent(m, KeyName, strings.TrimPrefix(parsed.Path, "/"))
	if parsed.User != nil {
		setIfPresent(m, KeyUser, parsed.User.Username())
		if password, ok := parsed.User.Password(); ok {
			setIfPresent(m, KeyPassword, password)
		}
	}
	setIfPresent(m, KeyHost, parsed.Hostname())
	setIfPresent(m, KeyPort, parsed.Port())
	return m, nil
}

func (f *Fields) resolve() (*ordered.Map, error) {
	m := ordered.New()
	if f == nil {
		return m, nil
	}
	if f.Engine != "" {
		m.Set(KeyEngine, Engine(f.Engine))
	}
	setIfPresent(m, KeyName, f.Name)
	setIfPresent(m, KeyUser, f.User)
	setIfPresent(m, KeyPassword, f.Password)
	setIfPresent(m, KeyHost, f.Host)
	setIfPresent(m, KeyPort, f.Port)
	for _, p := range f.Extra {
		m.Set(strings.ToUpper(p.Key), p.Value)
	}
	return m, nil
}

func setIfPresent(m *ordered.Map, key, value string) {
	if value != "" {
		m.Set(key, value)
	}
}

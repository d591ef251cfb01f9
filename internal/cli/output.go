package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/djangoconverge/internal/plan"
	"github.com/specialistvlad/djangoconverge/internal/settings"
)

type encodeFunc func(w io.Writer, plans []*plan.Plan) error

func planEncoder(format string) (encodeFunc, error) {
	switch format {
	case "text", "":
		return encodeText, nil
	case "json":
		return encodeJSON, nil
	case "yaml":
		return encodeYAML, nil
	default:
		return nil, fmt.Errorf("invalid output %q: must be 'text', 'json' or 'yaml'", format)
	}
}

func views(plans []*plan.Plan) []plan.View {
	out := make([]plan.View, 0, len(plans))
	for _, p := range plans {
		out = append(out, p.View())
	}
	return out
}

func encodeText(w io.Writer, plans []*plan.Plan) error {
	for i, p := range plans {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s[%s]\n", settings.ResourceType, p.Resource); err != nil {
			return err
		}
		if len(p.Actions) == 0 {
			if _, err := fmt.Fprintln(w, "  (no actions)"); err != nil {
				return err
			}
		}
		for n, a := range p.Actions {
			if _, err := fmt.Fprintf(w, "  %d. %s\n", n+1, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeJSON(w io.Writer, plans []*plan.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(views(plans))
}

func encodeYAML(w io.Writer, plans []*plan.Plan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(views(plans)); err != nil {
		return err
	}
	return enc.Close()
}

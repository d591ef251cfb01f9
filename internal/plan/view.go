package plan

// Step is the serializable form of an Action, used for JSON and YAML output.
type Step struct {
	Type    string   `json:"type" yaml:"type"`
	Path    string   `json:"path,omitempty" yaml:"path,omitempty"`
	Content string   `json:"content,omitempty" yaml:"content,omitempty"`
	Argv    []string `json:"argv,omitempty" yaml:"argv,omitempty"`
	Dir     string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Env     []string `json:"env,omitempty" yaml:"env,omitempty"`
}

// View is the serializable form of a Plan.
type View struct {
	Resource string `json:"resource" yaml:"resource"`
	Steps    []Step `json:"steps" yaml:"steps"`
}

// View converts p for encoding.
func (p *Plan) View() View {
	v := View{Resource: p.Resource, Steps: make([]Step, 0, len(p.Actions))}
	for _, a := range p.Actions {
		s := Step{Type: a.Kind()}
		switch a := a.(type) {
		case WriteFile:
			s.Path = a.Path
			s.Content = a.Content
		case RunCommand:
			s.Argv = append([]string(nil), a.Argv...)
			s.Dir = a.Dir
			s.Env = append([]string(nil), a.Env...)
		}
		v.Steps = append(v.Steps, s)
	}
	return v
}

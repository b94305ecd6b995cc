package flow

// Flow is an ordered list of steps run against one page session.
type Flow struct {
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
	Steps []Step `yaml:"steps"`

	SourcePath string `yaml:"-"` // Set when loaded from a file
}

// Step returns the step with the given name, or nil.
func (f *Flow) Step(name string) *Step {
	for i := range f.Steps {
		if f.Steps[i].Name == name {
			return &f.Steps[i]
		}
	}
	return nil
}

// WithURL returns a copy of the flow pointed at another URL.
// The step slice is shared; steps are read-only during a run.
func (f Flow) WithURL(url string) Flow {
	if url != "" {
		f.URL = url
	}
	return f
}

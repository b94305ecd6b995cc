package cli

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/wizard-runner/pkg/flow"
	"github.com/devicelab-dev/wizard-runner/pkg/validator"
)

var flowCommand = &cli.Command{
	Name:  "flow",
	Usage: "Print the flow with its locators resolved for a date",
	Description: `Print the steps the run would execute, with dynamic date locators
expanded, and validate the flow. Nothing is launched.

Examples:
  wizard-runner flow
  wizard-runner flow --date 2025-03-01
  wizard-runner flow --flow custom.yaml`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "flow",
			Usage: "Flow YAML file (default: the built-in travel insurance flow)",
		},
		&cli.StringFlag{
			Name:  "date",
			Usage: "Trip start date YYYY-MM-DD (default: today)",
		},
	},
	Action: printFlow,
}

// plan is the printed form of a flow.
type plan struct {
	Name  string     `yaml:"name"`
	URL   string     `yaml:"url"`
	Dates planDates  `yaml:"dates"`
	Steps []planStep `yaml:"steps"`
}

type planDates struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	Days  int    `yaml:"days"`
}

type planStep struct {
	Name            string           `yaml:"name"`
	Locator         string           `yaml:"locator"`
	Action          string           `yaml:"action"`
	Expect          flow.Expectation `yaml:"expect,omitempty"`
	Criticality     flow.Criticality `yaml:"criticality"`
	Timeout         string           `yaml:"timeout"`
	Fallback        string           `yaml:"fallback,omitempty"`
	FallbackTimeout string           `yaml:"fallbackTimeout,omitempty"`
}

func printFlow(c *cli.Context) error {
	f := flow.TravelInsurance()
	if path := c.String("flow"); path != "" {
		parsed, err := flow.ParseFile(path)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		f = *parsed
	}

	ref, err := parseDate(c.String("date"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if ref.IsZero() {
		ref = time.Now()
	}

	enc := yaml.NewEncoder(c.App.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(buildPlan(f, flow.NewDateRange(ref))); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if res := validator.New(false).Validate(f); !res.IsValid() {
		return cli.Exit(fmt.Sprintf("invalid flow %q:\n%s", f.Name, res.Error()), 1)
	}
	return nil
}

func buildPlan(f flow.Flow, dr flow.DateRange) plan {
	p := plan{
		Name: f.Name,
		URL:  f.URL,
		Dates: planDates{
			Start: dr.Date(flow.AnchorStart),
			End:   dr.Date(flow.AnchorEnd),
			Days:  dr.Days(),
		},
		Steps: make([]planStep, len(f.Steps)),
	}
	for i := range f.Steps {
		s := &f.Steps[i]
		ps := planStep{
			Name:        s.Name,
			Locator:     s.Selector.Expand(dr.Date(s.Selector.Anchor)).String(),
			Action:      s.Action.Describe(),
			Expect:      s.Action.Expect,
			Criticality: s.Criticality,
			Timeout:     s.Timeout.String(),
		}
		if s.HasFallback() {
			ps.Fallback = s.Fallback.Describe()
			if s.FallbackTimeout > 0 {
				ps.FallbackTimeout = s.FallbackTimeout.String()
			}
		}
		p.Steps[i] = ps
	}
	return p
}

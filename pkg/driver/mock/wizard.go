package mock

import (
	"fmt"
	"strings"
	"time"

	"github.com/devicelab-dev/wizard-runner/pkg/flow"
)

// WizardOptions shapes the simulated travel wizard.
type WizardOptions struct {
	// Today anchors the calendar. Defaults to time.Now().
	Today time.Time
	// RenderDelay delays every page transition.
	RenderDelay time.Duration
	// CalendarDays is how many days from Today the calendar offers. Default 60.
	CalendarDays int
	// PolicyLinkVisible renders the PDF link visibly. When false the link
	// exists but is hidden, so only the existence fallback can confirm it.
	PolicyLinkVisible bool
	// PolicyHref overrides the PDF link target; "" removes the attribute.
	// A target not ending in .pdf no longer matches the PDF link selector.
	PolicyHref *string
	// DayCountOffset skews the total days shown, to simulate a wrong total.
	DayCountOffset int
	// NoPolicyLink never renders the PDF link.
	NoPolicyLink bool
}

// Wizard is a simulated travel insurance wizard served by a mock Driver.
type Wizard struct {
	*Driver

	opts      WizardOptions
	page      string
	dest      bool
	start     string
	end       string
	dates     []*Node
	totalDays *Node
	next      *Node
	policy    *Node
}

// NewTravelWizard builds a mock browser serving the travel wizard. Its
// calendar buttons sit under an overlay, so only script clicks reach them.
func NewTravelWizard(opts WizardOptions) *Wizard {
	if opts.Today.IsZero() {
		opts.Today = time.Now()
	}
	if opts.CalendarDays <= 0 {
		opts.CalendarDays = 60
	}
	w := &Wizard{Driver: New(Config{}), opts: opts, page: "landing"}

	dest := w.Add(flow.Locator{By: flow.ByCSS, Value: flow.DestinationCSS}, Absent())
	dest.Attrs = map[string]string{"data-hrl-bo": "canada"}
	dest.OnClick = func() { w.dest = true; w.next.Disabled = false }

	w.Add(flow.Locator{By: flow.ByXPath, Value: flow.FirstPurchaseXPath}, &Node{
		Content: "לרכישה בפעם הראשונה",
		OnClick: func() {
			w.page = "destination"
			dest.Show(opts.RenderDelay)
			w.next.Show(opts.RenderDelay)
		},
	})

	w.next = w.Add(flow.Locator{By: flow.ByCSS, Value: flow.NextButtonCSS}, Absent())
	w.next.Disabled = true
	w.next.Attrs = map[string]string{"data-hrl-bo": "wizard-next-button"}
	w.next.OnClick = w.onNext

	start := flow.NewDateRange(opts.Today).Start
	for i := 0; i < opts.CalendarDays; i++ {
		date := start.AddDate(0, 0, i).Format(flow.DateLayout)
		sel := flow.DateXPath(flow.DateButtonXPath, flow.AnchorStart)
		n := w.Add(sel.Expand(date), Absent())
		n.Content = fmt.Sprint(start.AddDate(0, 0, i).Day())
		n.Attrs = map[string]string{"data-hrl-bo": date}
		n.Obstructed = true
		n.OnClick = func() { w.pick(date) }
		w.dates = append(w.dates, n)
	}

	w.totalDays = w.Add(flow.Locator{By: flow.ByCSS, Value: flow.TotalDaysCSS}, Absent())

	if !opts.NoPolicyLink {
		href := "https://digital.harel-group.co.il/media/travel-policy-agreement.pdf"
		if opts.PolicyHref != nil {
			href = *opts.PolicyHref
		}
		attrs := map[string]string{"data-hrl-bo": "policy-agreement-text-url"}
		if href != "" {
			attrs["href"] = href
		}
		w.policy = w.Add(flow.Locator{By: flow.ByCSS, Value: flow.PolicyAnchorCSS}, Absent())
		w.policy.Content = "תנאי הפוליסה"
		w.policy.Attrs = attrs
		w.policy.Hidden = !opts.PolicyLinkVisible
		if strings.HasSuffix(href, ".pdf") {
			w.Add(flow.Locator{By: flow.ByCSS, Value: flow.PolicyLinkCSS}, w.policy)
		}
	}
	return w
}

// Page returns the current wizard page.
func (w *Wizard) Page() string { return w.page }

// Selected returns the picked start and end dates.
func (w *Wizard) Selected() (string, string) { return w.start, w.end }

func (w *Wizard) onNext() {
	switch {
	case w.page == "destination" && w.dest:
		w.page = "dates"
		for _, n := range w.dates {
			n.Show(w.opts.RenderDelay)
		}
		w.totalDays.Show(w.opts.RenderDelay)
	case w.page == "dates" && w.start != "" && w.end != "":
		w.page = "summary"
		if w.policy != nil {
			w.policy.Show(w.opts.RenderDelay)
		}
	}
}

func (w *Wizard) pick(date string) {
	switch {
	case w.start == "" || w.end != "":
		w.start, w.end = date, ""
		w.totalDays.Content = ""
	default:
		w.end = date
		s, _ := time.Parse(flow.DateLayout, w.start)
		e, _ := time.Parse(flow.DateLayout, w.end)
		days := int(e.Sub(s).Hours()/24) + 1 + w.opts.DayCountOffset
		w.totalDays.Content = fmt.Sprintf("סה\"כ %d ימים", days)
	}
}

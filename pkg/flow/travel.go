package flow

import "time"

// TravelPolicyURL is the entry page of the travel insurance wizard.
const TravelPolicyURL = "https://digital.harel-group.co.il/travel-policy"

// Timeouts used by the travel flow.
const (
	HardTimeout     = 30 * time.Second
	SoftTimeout     = 10 * time.Second
	FallbackTimeout = 5 * time.Second
)

// Step names of the travel flow.
const (
	StepFirstPurchase = "first-purchase"
	StepDestination   = "destination-canada"
	StepNext          = "wizard-next"
	StepStartDate     = "start-date"
	StepEndDate       = "end-date"
	StepTotalDays     = "total-days"
	StepNextDates     = "wizard-next-dates"
	StepPolicyLink    = "policy-pdf-link"
	StepPolicyHref    = "policy-pdf-href"
)

// Selectors of the travel wizard.
const (
	FirstPurchaseXPath = "//button[contains(., 'לרכישה בפעם הראשונה')]"
	DestinationCSS     = "div[data-hrl-bo='canada']"
	NextButtonCSS      = "button[data-hrl-bo='wizard-next-button']"
	DateButtonXPath    = "//button[@data-hrl-bo='" + DatePlaceholder + "']"
	TotalDaysCSS       = "[data-hrl-bo='total-days']"
	PolicyAnchorCSS    = "a[data-hrl-bo='policy-agreement-text-url']"
	PolicyLinkCSS      = PolicyAnchorCSS + "[href$='.pdf']"
)

// TravelInsurance returns the canonical travel insurance purchase flow:
// first purchase, destination, a 30 day trip starting today, and the
// policy agreement PDF on the following page.
func TravelInsurance() Flow {
	nativeClick := Action{Kind: ActionClick, Strategy: StrategyNative}
	scriptClick := Action{Kind: ActionClick, Strategy: StrategyScript}
	fallback := scriptClick

	return Flow{
		Name: "travel-insurance",
		URL:  TravelPolicyURL,
		Steps: []Step{
			{
				Name:            StepFirstPurchase,
				Selector:        XPath(FirstPurchaseXPath),
				Action:          nativeClick,
				Timeout:         HardTimeout,
				Criticality:     Hard,
				Fallback:        &fallback,
				FallbackTimeout: FallbackTimeout,
			},
			{
				Name:            StepDestination,
				Selector:        CSS(DestinationCSS),
				Action:          nativeClick,
				Timeout:         HardTimeout,
				Criticality:     Hard,
				Fallback:        &fallback,
				FallbackTimeout: FallbackTimeout,
			},
			{
				Name:            StepNext,
				Selector:        CSS(NextButtonCSS),
				Action:          nativeClick,
				Timeout:         HardTimeout,
				Criticality:     Hard,
				Fallback:        &fallback,
				FallbackTimeout: FallbackTimeout,
			},
			// Calendar buttons sit under an animated overlay; native clicks
			// are intercepted, so they go straight to script dispatch.
			{
				Name:        StepStartDate,
				Selector:    DateXPath(DateButtonXPath, AnchorStart),
				Action:      scriptClick,
				Timeout:     HardTimeout,
				Criticality: Hard,
			},
			{
				Name:        StepEndDate,
				Selector:    DateXPath(DateButtonXPath, AnchorEnd),
				Action:      scriptClick,
				Timeout:     HardTimeout,
				Criticality: Hard,
			},
			{
				Name:     StepTotalDays,
				Selector: CSS(TotalDaysCSS),
				Action: Action{
					Kind:     ActionReadText,
					Strategy: StrategyNative,
					Expect:   Expectation{Contains: "30"},
				},
				Timeout:     HardTimeout,
				Criticality: Hard,
			},
			{
				Name:        StepNextDates,
				Selector:    CSS(NextButtonCSS),
				Action:      scriptClick,
				Timeout:     HardTimeout,
				Criticality: Hard,
			},
			{
				Name:        StepPolicyLink,
				Selector:    CSS(PolicyLinkCSS),
				Action:      Action{Kind: ActionAssertVisible, Strategy: StrategyNative},
				Timeout:     HardTimeout,
				Criticality: Hard,
				Fallback: &Action{
					Kind:     ActionAssertExists,
					Strategy: StrategyScript,
				},
				FallbackTimeout: FallbackTimeout,
			},
			{
				Name:     StepPolicyHref,
				Selector: CSS(PolicyAnchorCSS),
				Action: Action{
					Kind:      ActionReadAttribute,
					Strategy:  StrategyNative,
					Attribute: "href",
					Expect:    Expectation{HasPrefix: "https://", HasSuffix: ".pdf"},
				},
				Timeout:     SoftTimeout,
				Criticality: Soft,
			},
		},
	}
}

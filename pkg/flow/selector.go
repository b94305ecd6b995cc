package flow

import "strings"

// DatePlaceholder is substituted with a formatted date in dynamic selectors.
const DatePlaceholder = "${date}"

// LocatorKind is the query language of a concrete locator.
type LocatorKind string

// Locator kinds understood by every driver.
const (
	ByCSS   LocatorKind = "css"
	ByXPath LocatorKind = "xpath"
)

// Locator is a concrete, driver-ready element query.
type Locator struct {
	By    LocatorKind `yaml:"by" json:"by"`
	Value string      `yaml:"value" json:"value"`
}

// String returns the locator as by="value".
func (l Locator) String() string {
	return string(l.By) + "=\"" + l.Value + "\""
}

// DateAnchor picks which end of the run's DateRange a dynamic selector uses.
type DateAnchor string

// Date anchors.
const (
	AnchorStart DateAnchor = "start"
	AnchorEnd   DateAnchor = "end"
)

// Selector describes how to find an element.
// A static selector carries Value; a dynamic one carries Template and Anchor
// and has to be expanded against a DateRange before use.
type Selector struct {
	By       LocatorKind `yaml:"by"`
	Value    string      `yaml:"value,omitempty"`
	Template string      `yaml:"template,omitempty"`
	Anchor   DateAnchor  `yaml:"anchor,omitempty"`
}

// CSS returns a static CSS selector.
func CSS(value string) Selector {
	return Selector{By: ByCSS, Value: value}
}

// XPath returns a static XPath selector.
func XPath(value string) Selector {
	return Selector{By: ByXPath, Value: value}
}

// DateXPath returns a dynamic XPath selector bound to a date anchor.
func DateXPath(template string, anchor DateAnchor) Selector {
	return Selector{By: ByXPath, Template: template, Anchor: anchor}
}

// IsDynamic reports whether the selector needs a date to become concrete.
func (s *Selector) IsDynamic() bool {
	return s.Template != ""
}

// IsEmpty returns true if neither a value nor a template is set.
func (s *Selector) IsEmpty() bool {
	return s.Value == "" && s.Template == ""
}

// Expand substitutes the date placeholder. Static selectors are returned as is.
func (s *Selector) Expand(date string) Locator {
	if !s.IsDynamic() {
		return Locator{By: s.By, Value: s.Value}
	}
	return Locator{By: s.By, Value: strings.ReplaceAll(s.Template, DatePlaceholder, date)}
}

// Describe returns a human-readable description.
func (s *Selector) Describe() string {
	if s.IsDynamic() {
		return string(s.By) + ":" + s.Template + " @" + string(s.Anchor)
	}
	return string(s.By) + ":" + s.Value
}

// DescribeQuoted returns a quoted description like css="value".
func (s *Selector) DescribeQuoted() string {
	if s.IsDynamic() {
		return string(s.By) + "=\"" + s.Template + "\" (" + string(s.Anchor) + " date)"
	}
	return string(s.By) + "=\"" + s.Value + "\""
}

package models

import (
	"strings"
	"time"
)

// Indicator is what the browser found for the version indicator element.
type Indicator struct {
	Selector string
	Count    int
	Visible  bool
	Text     string
}

type Result struct {
	URL            string
	Expected       string
	Indicator      Indicator
	ScreenshotPath string
	// Page is nil when the static fetch failed.
	Page      *PageData
	StartedAt time.Time
	Duration  time.Duration
}

// Passed reports whether the indicator was visible and showed the expected text.
func (r *Result) Passed() bool {
	return r.Indicator.Visible && strings.Contains(r.Indicator.Text, r.Expected)
}

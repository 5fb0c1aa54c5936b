package browser

import (
	"encoding/json"
	"fmt"
	"time"

	"go-verifier/pkg/models"

	"github.com/chromedp/chromedp"
)

const locatePollInterval = 100 * time.Millisecond

// locateJS looks at elements matching the selector whose text contains the
// needle and keeps the innermost ones (matches with no matching descendant).
// It reports the first visible one in document order, or the first one when
// none is visible. Visibility means a non-empty box and visibility other than hidden.
const locateJS = `(function(selector, needle) {
	const matches = Array.from(document.querySelectorAll(selector))
		.filter(el => (el.textContent || '').includes(needle));
	const innermost = matches.filter(el => !matches.some(other => other !== el && el.contains(other)));
	const isVisible = el => {
		const style = window.getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		return style.visibility !== 'hidden' && rect.width > 0 && rect.height > 0;
	};
	const el = innermost.find(isVisible) || innermost[0];
	if (!el) {
		return {count: 0, visible: false, text: ''};
	}
	return {count: matches.length, visible: isVisible(el), text: el.innerText || ''};
})(%s, %s)`

type locateResult struct {
	Count   int    `json:"count"`
	Visible bool   `json:"visible"`
	Text    string `json:"text"`
}

func locateScript(selector, needle string) (string, error) {
	sel, err := json.Marshal(selector)
	if err != nil {
		return "", err
	}
	txt, err := json.Marshal(needle)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(locateJS, sel, txt), nil
}

// Locate finds the element matching selector that contains text. It polls for
// up to wait so that script-rendered content can appear; it stops early once a
// visible match exists. A missing element is reported as Count 0, not an error.
func (s *Session) Locate(selector, text string, wait time.Duration) (models.Indicator, error) {
	indicator := models.Indicator{Selector: selector}

	script, err := locateScript(selector, text)
	if err != nil {
		return indicator, fmt.Errorf("build locate script: %w", err)
	}

	deadline := time.Now().Add(wait)
	for {
		var res locateResult
		if err := chromedp.Run(s.ctx, chromedp.Evaluate(script, &res)); err != nil {
			return indicator, fmt.Errorf("locate %q: %w", selector, err)
		}
		indicator.Count = res.Count
		indicator.Visible = res.Visible
		indicator.Text = res.Text

		if res.Visible || !time.Now().Before(deadline) {
			return indicator, nil
		}

		select {
		case <-s.ctx.Done():
			return indicator, fmt.Errorf("locate %q: %w", selector, s.ctx.Err())
		case <-time.After(locatePollInterval):
		}
	}
}

package verify

import (
	"fmt"
	"io"

	"go-verifier/internal/page"
	"go-verifier/pkg/models"
)

// Report prints the outcome of a run in the form CI logs expect.
func Report(w io.Writer, r *models.Result) {
	fmt.Fprintf(w, "Version indicator visible: %t\n", r.Indicator.Visible)
	fmt.Fprintf(w, "Version indicator text: %s\n", r.Indicator.Text)

	if r.Passed() {
		fmt.Fprintln(w, "Verification successful")
		return
	}

	if hint := failureHint(r); hint != "" {
		fmt.Fprintln(w, hint)
	}
	fmt.Fprintln(w, "Verification failed")
}

func failureHint(r *models.Result) string {
	switch {
	case r.Indicator.Count > 0 && !r.Indicator.Visible:
		return fmt.Sprintf("Hint: %d element(s) matching %q contain %q but every innermost match is hidden",
			r.Indicator.Count, r.Indicator.Selector, r.Expected)
	case r.Page == nil:
		return ""
	case r.Page.StatusCode >= 400:
		return fmt.Sprintf("Hint: %s returned status %d", r.URL, r.Page.StatusCode)
	case page.ContainsText(*r.Page, r.Expected):
		return fmt.Sprintf("Hint: %q is in the served HTML but no %q element shows it", r.Expected, r.Indicator.Selector)
	default:
		return fmt.Sprintf("Hint: %q is not in the served HTML either", r.Expected)
	}
}

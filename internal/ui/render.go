package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nextlevelbuilder/msgauth/internal/authflow"
)

var (
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	keyStyle   = lipgloss.NewStyle().Faint(true).Width(10)
	tokenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// RenderOutcome formats a flow result for the terminal. detailed selects the
// development error messages.
func RenderOutcome(out authflow.Outcome, detailed bool) string {
	if out.Completed() {
		s := out.Session
		return strings.Join([]string{
			okStyle.Render("✓ Signed in"),
			keyStyle.Render("Contact") + s.Contact,
			keyStyle.Render("Expires") + s.ExpireDate.Local().Format(time.RFC3339),
			keyStyle.Render("Token") + tokenStyle.Render(s.Token),
		}, "\n")
	}
	if out.Failure == nil {
		return errStyle.Render("✗ No result")
	}
	return errStyle.Render("✗ "+out.Failure.Message(detailed)) +
		"\n" + keyStyle.Render("Reason") + out.Failure.Kind.String()
}

// RenderSession formats a validated session.
func RenderSession(info *authflow.SessionInfo, now time.Time) string {
	status := okStyle.Render("valid")
	if !info.ValidAt(now) {
		status = errStyle.Render("expired")
	}
	lines := []string{
		keyStyle.Render("Status") + status,
		keyStyle.Render("Expires") + info.ExpireDate.Local().Format(time.RFC3339),
	}
	if info.Contact != "" {
		lines = append(lines, keyStyle.Render("Contact")+info.Contact)
	}
	if left := info.ExpireDate.Sub(now); left > 0 {
		lines = append(lines, keyStyle.Render("Remaining")+fmt.Sprint(left.Truncate(time.Second)))
	}
	return strings.Join(lines, "\n")
}

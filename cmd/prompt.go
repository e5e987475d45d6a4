package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/nextlevelbuilder/msgauth/internal/store"
)

// runWithHelp wraps huh fields in a Form with help hints visible at the bottom.
func runWithHelp(fields ...huh.Field) error {
	return huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(true).Run()
}

// promptPassword prompts for hidden input (tokens, secrets to seal).
func promptPassword(title, description string) (string, error) {
	var value string
	inp := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&value)

	if description != "" {
		inp = inp.Description(description)
	}
	if err := runWithHelp(inp); err != nil {
		return "", err
	}
	return value, nil
}

// filterThreshold: enable type-to-filter only when there are more than this many requests.
const filterThreshold = 5

// promptPendingRequest lets the user pick one saved request and returns its id.
// The newest request is preselected.
func promptPendingRequest(title string, pending []store.PendingRequest, now time.Time) (string, error) {
	var id string
	sel := huh.NewSelect[string]().
		Title(title).
		Options(pendingOptions(pending, now)...).
		Value(&id)
	if len(pending) > filterThreshold {
		sel = sel.Filtering(true)
	}

	if err := runWithHelp(sel); err != nil {
		return "", err
	}
	return id, nil
}

func pendingOptions(pending []store.PendingRequest, now time.Time) []huh.Option[string] {
	opts := make([]huh.Option[string], len(pending))
	for i, p := range pending {
		opts[i] = huh.NewOption(pendingLabel(p, now), p.RequestID)
	}
	if len(opts) > 0 {
		opts[0] = opts[0].Selected(true)
	}
	return opts
}

// pendingLabel renders one request as "[id]  code X to Y  (3m ago, 7m left)".
func pendingLabel(p store.PendingRequest, now time.Time) string {
	age := now.Sub(time.UnixMilli(p.CreatedAt)).Truncate(time.Second)
	left := time.UnixMilli(p.ExpiresAt).Sub(now).Truncate(time.Second)
	return fmt.Sprintf("[%s]  code %s to %s  (%s ago, %s left)", p.RequestID, p.Code, p.SenderName, age, left)
}

// promptConfirm asks a yes/no question. Returns true for yes.
func promptConfirm(title string, defaultYes bool) (bool, error) {
	value := defaultYes
	c := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&value)

	if err := runWithHelp(c); err != nil {
		return false, err
	}
	return value, nil
}

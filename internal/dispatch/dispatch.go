// Package dispatch provides authflow.Dispatcher implementations for terminals:
// a console prompt and a QR code hand-off to a phone.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/nextlevelbuilder/msgauth/internal/authflow"
)

// Func adapts plain functions to authflow.Dispatcher.
type Func struct {
	CanSend    func() bool
	DispatchFn func(ctx context.Context, req authflow.AuthRequest) authflow.DispatchResult
}

func (f Func) CanSendMessages() bool {
	if f.CanSend == nil {
		return f.DispatchFn != nil
	}
	return f.CanSend()
}

func (f Func) Dispatch(ctx context.Context, req authflow.AuthRequest) authflow.DispatchResult {
	if f.DispatchFn == nil {
		return authflow.DispatchFailed
	}
	return f.DispatchFn(ctx, req)
}

// WithHooks runs before and after around every Dispatch of d. The CLI uses it
// to pause the spinner while a prompt owns the terminal.
func WithHooks(d authflow.Dispatcher, before, after func()) authflow.Dispatcher {
	return Func{
		CanSend: d.CanSendMessages,
		DispatchFn: func(ctx context.Context, req authflow.AuthRequest) authflow.DispatchResult {
			if before != nil {
				before()
			}
			if after != nil {
				defer after()
			}
			return d.Dispatch(ctx, req)
		},
	}
}

// SMSLink builds an sms: URI that opens the messaging app with the recipient
// and body prefilled.
func SMSLink(req authflow.AuthRequest) string {
	recipient := strings.ReplaceAll(req.SenderName, " ", "")
	if req.Text == "" {
		return "sms:" + recipient
	}
	return "sms:" + recipient + "?body=" + url.PathEscape(req.Text)
}

// Confirm asks the user how sending the message went.
type Confirm func(ctx context.Context, req authflow.AuthRequest) authflow.DispatchResult

// PromptConfirm asks with a huh select. Aborting the form (ctrl+c, esc)
// counts as cancelled.
func PromptConfirm(ctx context.Context, req authflow.AuthRequest) authflow.DispatchResult {
	result := authflow.DispatchSent
	sel := huh.NewSelect[authflow.DispatchResult]().
		Title("Did you send the message?").
		Options(
			huh.NewOption("Yes, sent it", authflow.DispatchSent),
			huh.NewOption("Couldn't send it", authflow.DispatchFailed),
			huh.NewOption("Cancel", authflow.DispatchCancelled),
		).
		Value(&result)

	err := huh.NewForm(huh.NewGroup(sel)).WithShowHelp(true).RunWithContext(ctx)
	switch {
	case err == nil:
		return result
	case errors.Is(err, huh.ErrUserAborted), errors.Is(err, context.Canceled):
		return authflow.DispatchCancelled
	default:
		slog.Warn("dispatch prompt failed", "request_id", req.RequestID, "error", err)
		return authflow.DispatchFailed
	}
}

// StdinIsTerminal reports whether prompts can be shown.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

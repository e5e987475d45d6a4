package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/nextlevelbuilder/msgauth/internal/authflow"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Faint(true)
	valueStyle = lipgloss.NewStyle().Bold(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	hintStyle  = lipgloss.NewStyle().Faint(true).Italic(true)
)

// Console prints the recipient and message text, then asks the user to
// confirm once they have sent it from their own device.
type Console struct {
	Out         io.Writer
	Interactive func() bool
	Confirm     Confirm
}

// NewConsole returns a Console writing to stderr and prompting on stdin.
func NewConsole() *Console {
	return &Console{Out: os.Stderr, Interactive: StdinIsTerminal, Confirm: PromptConfirm}
}

func (c *Console) CanSendMessages() bool {
	if c.Interactive == nil {
		return true
	}
	return c.Interactive()
}

func (c *Console) Dispatch(ctx context.Context, req authflow.AuthRequest) authflow.DispatchResult {
	fmt.Fprintln(c.out(), RenderInstructions(req))
	if c.Confirm == nil {
		return authflow.DispatchSent
	}
	return c.Confirm(ctx, req)
}

func (c *Console) out() io.Writer {
	if c.Out == nil {
		return os.Stderr
	}
	return c.Out
}

// RenderInstructions formats what the user has to send and where.
func RenderInstructions(req authflow.AuthRequest) string {
	body := titleStyle.Render("Send this message to sign in") + "\n\n" +
		labelStyle.Render("To:      ") + valueStyle.Render(req.SenderName) + "\n" +
		labelStyle.Render("Message: ") + valueStyle.Render(req.Text)
	if req.IMessageLink != "" {
		body += "\n" + labelStyle.Render("Link:    ") + req.IMessageLink
	}
	if req.ExpiryDate != nil {
		body += "\n\n" + hintStyle.Render("Code expires at "+req.ExpiryDate.Local().Format("15:04:05"))
	}
	return boxStyle.Render(body)
}

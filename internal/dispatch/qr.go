package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/nextlevelbuilder/msgauth/internal/authflow"
)

// QR shows a terminal QR code the user scans with their phone, which opens
// the messaging app with the message prefilled.
type QR struct {
	Out     io.Writer
	Confirm Confirm

	// PNGPath, when set, also writes the code as a PNG image.
	PNGPath string
	PNGSize int
}

func NewQR() *QR {
	return &QR{Out: os.Stderr, Confirm: PromptConfirm, PNGSize: 256}
}

// QR codes are read by another device, so this machine's capabilities do not matter.
func (q *QR) CanSendMessages() bool { return true }

func (q *QR) Dispatch(ctx context.Context, req authflow.AuthRequest) authflow.DispatchResult {
	content := QRContent(req)
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		slog.Warn("qr encode failed", "request_id", req.RequestID, "error", err)
		return authflow.DispatchFailed
	}

	out := q.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintln(out, RenderInstructions(req))
	fmt.Fprintln(out, code.ToSmallString(false))

	if q.PNGPath != "" {
		size := q.PNGSize
		if size <= 0 {
			size = 256
		}
		if err := code.WriteFile(size, q.PNGPath); err != nil {
			slog.Warn("qr png write failed", "path", q.PNGPath, "error", err)
		} else {
			fmt.Fprintf(out, "QR code saved to %s\n", q.PNGPath)
		}
	}

	if q.Confirm == nil {
		return authflow.DispatchSent
	}
	return q.Confirm(ctx, req)
}

// QRContent picks what to encode: the service-provided QR payload, then the
// service deep link, then a locally built sms: link.
func QRContent(req authflow.AuthRequest) string {
	switch {
	case req.QRCode != "":
		return req.QRCode
	case req.IMessageLink != "":
		return req.IMessageLink
	}
	return SMSLink(req)
}

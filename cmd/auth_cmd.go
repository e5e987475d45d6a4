package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/msgauth/internal/authflow"
	"github.com/nextlevelbuilder/msgauth/internal/autherr"
	"github.com/nextlevelbuilder/msgauth/internal/config"
	"github.com/nextlevelbuilder/msgauth/internal/dispatch"
	"github.com/nextlevelbuilder/msgauth/internal/store"
	"github.com/nextlevelbuilder/msgauth/internal/ui"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Run and manage auth requests",
	}
	cmd.AddCommand(authStartCmd())
	cmd.AddCommand(authResumeCmd())
	cmd.AddCommand(authPendingCmd())
	cmd.AddCommand(authForgetCmd())
	return cmd
}

// flowFlags override the flow section of the config for one run.
type flowFlags struct {
	qr        bool
	noLoader  bool
	noLock    bool
	timeout   time.Duration
	tokenOnly bool
}

func (f *flowFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noLoader, "no-loader", false, "do not show the waiting spinner")
	cmd.Flags().BoolVar(&f.noLock, "no-lock", false, "let ctrl+c terminate instead of cancelling the flow")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "how long to wait for confirmation (30s-5m, default from config)")
	cmd.Flags().BoolVar(&f.tokenOnly, "token-only", false, "print only the session token on success")
}

func (f *flowFlags) apply(cfg *config.Config) {
	if f.qr {
		cfg.Dispatch.Mode = config.DispatchQR
	}
	if f.noLoader {
		cfg.Flow.ShowLoader = false
	}
	if f.noLock {
		cfg.Flow.LockInteraction = false
	}
	if f.timeout > 0 {
		// Round up: a sub-second value must not become 0, which means "default".
		cfg.Flow.RequestTimeoutSec = int((f.timeout + time.Second - 1) / time.Second)
	}
}

func authStartCmd() *cobra.Command {
	var flags flowFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new auth request and wait for confirmation",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadValidConfig()
			flags.apply(cfg)
			if !runFlow(cmd.Context(), cfg, flags.tokenOnly, "") {
				os.Exit(1)
			}
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.qr, "qr", false, "show a QR code to scan with your phone")
	return cmd
}

func authResumeCmd() *cobra.Command {
	var flags flowFlags
	cmd := &cobra.Command{
		Use:   "resume [request-id]",
		Short: "Resume waiting on a pending request (interactive if no id given)",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadValidConfig()
			flags.apply(cfg)

			var id string
			if len(args) == 1 {
				id = args[0]
			} else {
				id = pendingInteractiveSelect(cmd.Context(), cfg)
				if id == "" {
					return
				}
			}
			if err := store.ValidateRequestID(id); err != nil {
				fatalf("%s", err)
			}
			if !runFlow(cmd.Context(), cfg, flags.tokenOnly, id) {
				os.Exit(1)
			}
		},
	}
	flags.register(cmd)
	return cmd
}

// pendingInteractiveSelect lists saved requests and lets the user pick one.
func pendingInteractiveSelect(ctx context.Context, cfg *config.Config) string {
	st, err := openPendingStore(ctx, cfg)
	if err != nil {
		fatalf("open pending store: %s", err)
	}
	defer st.Close()

	pending, err := st.List(ctx)
	if err != nil {
		fatalf("list pending requests: %s", err)
	}
	if len(pending) == 0 {
		fmt.Println("No pending auth requests.")
		return ""
	}

	selected, err := promptPendingRequest("Select a request to resume", pending, time.Now())
	if err != nil {
		fmt.Println("Cancelled.")
		return ""
	}
	return selected
}

func authPendingCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List auth requests that can be resumed",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			st, err := openPendingStore(cmd.Context(), cfg)
			if err != nil {
				fatalf("open pending store: %s", err)
			}
			defer st.Close()

			pending, err := st.List(cmd.Context())
			if err != nil {
				fatalf("list pending requests: %s", err)
			}
			if jsonOutput {
				data, _ := json.MarshalIndent(pending, "", "  ")
				fmt.Println(string(data))
				return
			}
			if len(pending) == 0 {
				fmt.Println("No pending auth requests.")
				return
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "REQUEST ID\tCODE\tSEND TO\tCREATED\tEXPIRES")
			for _, p := range pending {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s ago\t%s\n", p.RequestID, p.Code, p.SenderName,
					formatAgo(p.CreatedAt), time.UnixMilli(p.ExpiresAt).Format(time.Kitchen))
			}
			tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func authForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget [request-id]",
		Short: "Remove a pending request",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			st, err := openPendingStore(cmd.Context(), cfg)
			if err != nil {
				fatalf("open pending store: %s", err)
			}
			defer st.Close()

			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					fatalf("no pending request %q", args[0])
				}
				fatalf("%s", err)
			}
			fmt.Printf("Forgot request %s.\n", args[0])
		},
	}
}

// runFlow wires the terminal collaborators around an orchestrator, starts a
// new flow (or resumes resumeID), waits for the outcome, and prints it.
// Reports whether the flow completed.
func runFlow(parent context.Context, cfg *config.Config, tokenOnly bool, resumeID string) bool {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	shutdownOTel := initOTelExporter(ctx, cfg)
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		shutdownOTel(sctx)
	}()

	client, err := newTransport(cfg)
	if err != nil {
		fatalf("%s", err)
	}
	defer client.Cancel()

	st, err := openPendingStore(ctx, cfg)
	if err != nil {
		slog.Warn("pending store unavailable, requests will not be resumable", "error", err)
		st = nil
	} else {
		defer st.Close()
	}

	requestID := resumeID
	spinner := ui.NewSpinner(os.Stderr, "Waiting for your message to arrive...")
	o := authflow.New(cfg.FlowConfiguration(), client, authflow.Options{
		Dispatcher: dispatch.WithHooks(newDispatcher(cfg), spinner.Suspend, spinner.Resume),
		Gate:       ui.NewSignalGate(cancel),
		Loader:     spinner,
		OnInit: func(req authflow.AuthRequest) {
			requestID = req.RequestID
			if st == nil {
				return
			}
			p := store.NewPendingRequest(req.RequestID, req.Code, req.SenderName, req.ExpiryDate, time.Now())
			if err := st.Save(ctx, p); err != nil {
				slog.Warn("save pending request", "request_id", req.RequestID, "error", err)
			}
		},
	})

	var outcomes <-chan authflow.Outcome
	if resumeID != "" {
		outcomes = o.ResumeAuth(ctx, resumeID)
	} else {
		outcomes = o.StartAuth(ctx)
	}
	out := <-outcomes

	if st != nil && requestID != "" && (out.Completed() || shouldForget(out.Failure)) {
		if err := st.Delete(context.Background(), requestID); err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.Warn("forget pending request", "request_id", requestID, "error", err)
		}
	}

	if out.Completed() && tokenOnly {
		fmt.Println(out.Session.Token)
		return true
	}
	fmt.Println(ui.RenderOutcome(out, cfg.Errors.Detailed))
	return out.Completed()
}

// shouldForget reports failures after which a saved request can never
// complete. Timeouts and cancellations keep it for a later resume.
func shouldForget(f *autherr.Error) bool {
	if f == nil {
		return false
	}
	switch f.Kind {
	case autherr.KindTokenAlreadyRead, autherr.KindInvalidRequestID, autherr.KindNotFound,
		autherr.KindMessageSendFailed, autherr.KindAuthTokenExpired:
		return true
	}
	return false
}

func newDispatcher(cfg *config.Config) authflow.Dispatcher {
	if cfg.Dispatch.Mode == config.DispatchQR {
		q := dispatch.NewQR()
		q.PNGPath = cfg.Dispatch.PNGPath
		return q
	}
	return dispatch.NewConsole()
}

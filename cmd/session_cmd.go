package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/msgauth/internal/authflow"
	"github.com/nextlevelbuilder/msgauth/internal/autherr"
	"github.com/nextlevelbuilder/msgauth/internal/config"
	"github.com/nextlevelbuilder/msgauth/internal/monitor"
	"github.com/nextlevelbuilder/msgauth/internal/ui"
)

// envSessionToken lets scripts pass the token without putting it on the
// command line.
const envSessionToken = "MSGAUTH_SESSION_TOKEN"

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Check session tokens",
	}
	cmd.AddCommand(sessionValidateCmd())
	cmd.AddCommand(sessionWatchCmd())
	return cmd
}

func sessionValidateCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "validate [token]",
		Short: "Ask the service whether a session token is still valid",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadValidConfig()
			token := resolveSessionToken(args)
			o := newValidator(cfg)

			info, err := o.ValidateSession(cmd.Context(), token)
			if err != nil {
				fmt.Fprintln(os.Stderr, ui.RenderOutcome(authflow.Outcome{Failure: asAuthError(err)}, cfg.Errors.Detailed))
				os.Exit(1)
			}
			if jsonOutput {
				data, _ := json.MarshalIndent(map[string]any{
					"valid":       info.Valid(),
					"expire_date": info.ExpireDate.Format(time.RFC3339),
					"contact":     info.Contact,
				}, "", "  ")
				fmt.Println(string(data))
			} else {
				fmt.Println(ui.RenderSession(info, time.Now()))
			}
			if !info.Valid() {
				os.Exit(1)
			}
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func sessionWatchCmd() *cobra.Command {
	var scheduleFlag string
	cmd := &cobra.Command{
		Use:   "watch [token]",
		Short: "Re-validate a session token on a schedule until it ends",
		Long:  "Checks the token now and then on every tick of the schedule (\"@every 5m\" or a cron expression). Schedule changes in the config file apply without restarting.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadValidConfig()
			token := resolveSessionToken(args)

			expr := cfg.Monitor.Schedule
			if scheduleFlag != "" {
				expr = scheduleFlag
			}
			sched, err := monitor.ParseSchedule(expr)
			if err != nil {
				fatalf("%s", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			retry := monitor.DefaultRetryConfig()
			if cfg.Monitor.MaxRetries > 0 {
				retry.MaxRetries = cfg.Monitor.MaxRetries
			}
			m := monitor.New(newValidator(cfg), token, sched, retry)

			if scheduleFlag == "" {
				if w := watchSchedule(m); w != nil {
					defer w.Stop()
				}
			}

			fmt.Printf("Watching session (%s). Press ctrl+c to stop.\n", sched)
			err = m.Run(ctx, func(ev monitor.Event) {
				fmt.Println(formatEvent(ev, cfg.Errors.Detailed))
			})
			switch {
			case errors.Is(err, context.Canceled):
				fmt.Println("Stopped.")
			case errors.Is(err, monitor.ErrSessionEnded):
				fmt.Fprintf(os.Stderr, "Session ended: %s\n", err)
				os.Exit(1)
			case err != nil:
				fatalf("%s", err)
			}
		},
	}
	cmd.Flags().StringVar(&scheduleFlag, "schedule", "", "check schedule (default from config monitor.schedule)")
	return cmd
}

// watchSchedule reloads monitor.schedule from the config file. Returns nil
// when the file cannot be watched.
func watchSchedule(m *monitor.Monitor) *config.Watcher {
	w, err := config.NewWatcher(resolveConfigPath())
	if err != nil {
		slog.Debug("config watcher unavailable", "error", err)
		return nil
	}
	w.OnChange(func(cfg *config.Config) {
		sched, err := monitor.ParseSchedule(cfg.Monitor.Schedule)
		if err != nil {
			slog.Warn("ignoring invalid monitor.schedule", "schedule", cfg.Monitor.Schedule, "error", err)
			return
		}
		m.SetSchedule(sched)
	})
	if err := w.Start(); err != nil {
		slog.Debug("config watcher unavailable", "error", err)
		w.Stop()
		return nil
	}
	return w
}

func formatEvent(ev monitor.Event, detailed bool) string {
	ts := ev.At.Format(time.TimeOnly)
	if ev.Err != nil {
		return fmt.Sprintf("%s  check failed after %d attempt(s): %s", ts, ev.Attempts, autherr.MessageOf(ev.Err, detailed))
	}
	line := fmt.Sprintf("%s  valid=%t  expires %s", ts, ev.Info.ValidAt(ev.At), ev.Info.ExpireDate.Local().Format(time.RFC3339))
	if !ev.Next.IsZero() {
		line += "  next " + ev.Next.Local().Format(time.TimeOnly)
	}
	return line
}

func newValidator(cfg *config.Config) *authflow.Orchestrator {
	client, err := newTransport(cfg)
	if err != nil {
		fatalf("%s", err)
	}
	return authflow.New(cfg.FlowConfiguration(), client, authflow.Options{})
}

// resolveSessionToken takes the token from args, then MSGAUTH_SESSION_TOKEN,
// then a hidden prompt.
func resolveSessionToken(args []string) string {
	if len(args) == 1 {
		return strings.TrimSpace(args[0])
	}
	if t := strings.TrimSpace(os.Getenv(envSessionToken)); t != "" {
		return t
	}
	t, err := promptPassword("Session token", "Paste the token returned by 'msgauth auth start'")
	if err != nil {
		fmt.Println("Cancelled.")
		os.Exit(1)
	}
	return strings.TrimSpace(t)
}

func asAuthError(err error) *autherr.Error {
	var ae *autherr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return autherr.Wrap(autherr.KindUnableToHandleResponse, err)
}

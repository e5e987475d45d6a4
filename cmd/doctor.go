package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/msgauth/internal/config"
	"github.com/nextlevelbuilder/msgauth/internal/dispatch"
	"github.com/nextlevelbuilder/msgauth/internal/environment"
	"github.com/nextlevelbuilder/msgauth/internal/monitor"
	"github.com/nextlevelbuilder/msgauth/pkg/protocol"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(cmd.Context())
		},
	}
}

func runDoctor(ctx context.Context) {
	fmt.Println("msgauth doctor")
	fmt.Printf("  Version:  %s\n", protocol.LibraryVersion)
	fmt.Printf("  OS:       %s/%s (platform %s)\n", runtime.GOOS, runtime.GOARCH, environment.PlatformOf(runtime.GOOS))
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults and environment)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("  Config invalid: %s\n", err)
	}

	fmt.Println()
	fmt.Println("  Service:")
	checkSecret("Auth key", cfg.AuthKey)
	checkSecret("Secret key", cfg.SecretKey)
	fmt.Printf("    %-14s %s\n", "Base URL:", orNotConfigured(cfg.BaseURL))
	fmt.Printf("    %-14s %s\n", "Environment:", cfg.Environment)
	fmt.Printf("    %-14s %s\n", "Timeout:", cfg.FlowConfiguration().RequestTimeout())

	fmt.Println()
	fmt.Println("  Storage:")
	checkPendingStore(ctx, cfg)
	checkDeviceID(cfg)

	fmt.Println()
	fmt.Println("  Terminal:")
	interactive := "yes"
	if !dispatch.StdinIsTerminal() {
		interactive = "no (console dispatch reports device cannot send; use --qr)"
	}
	fmt.Printf("    %-14s %s\n", "Interactive:", interactive)
	fmt.Printf("    %-14s %s\n", "Dispatch:", cfg.Dispatch.Mode)

	fmt.Println()
	fmt.Println("  Monitor:")
	if s, err := monitor.ParseSchedule(cfg.Monitor.Schedule); err != nil {
		fmt.Printf("    %-14s INVALID (%s)\n", "Schedule:", err)
	} else if next, err := s.Next(time.Now()); err == nil {
		fmt.Printf("    %-14s %s (next %s)\n", "Schedule:", s, next.Local().Format(time.TimeOnly))
	}

	fmt.Println()
	telemetry := "disabled"
	if cfg.Telemetry.Enabled {
		telemetry = fmt.Sprintf("enabled (%s, build with -tags otel to export)", orNotConfigured(cfg.Telemetry.Endpoint))
	}
	fmt.Printf("  Telemetry: %s\n", telemetry)

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkSecret(name, value string) {
	if value == "" {
		fmt.Printf("    %-14s (not configured)\n", name+":")
		return
	}
	masked := strings.Repeat("*", 4)
	if len(value) > 8 {
		masked = value[:2] + strings.Repeat("*", len(value)-6) + value[len(value)-4:]
	}
	fmt.Printf("    %-14s %s\n", name+":", masked)
}

func checkPendingStore(ctx context.Context, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	backend := cfg.StoreConfig().ResolvedBackend()
	st, err := openPendingStore(ctx, cfg)
	if err != nil {
		fmt.Printf("    %-14s %s: ERROR %s\n", "Pending:", backend, err)
		return
	}
	defer st.Close()
	pending, err := st.List(ctx)
	if err != nil {
		fmt.Printf("    %-14s %s: ERROR %s\n", "Pending:", backend, err)
		return
	}
	fmt.Printf("    %-14s %s (%d pending)\n", "Pending:", backend, len(pending))
}

func checkDeviceID(cfg *config.Config) {
	kv := deviceKV(cfg)
	where := "keychain"
	if _, ok := kv.(*environment.FileKV); ok {
		where = cfg.Device.FilePath
	}
	id, err := kv.Get(environment.DeviceIDKey)
	switch {
	case err == nil:
		fmt.Printf("    %-14s %s (%s)\n", "Device ID:", id, where)
	case errors.Is(err, environment.ErrKeyNotFound):
		fmt.Printf("    %-14s not created yet (%s)\n", "Device ID:", where)
	default:
		fmt.Printf("    %-14s ERROR %s\n", "Device ID:", err)
	}
}

func orNotConfigured(s string) string {
	if s == "" {
		return "(not configured)"
	}
	return s
}

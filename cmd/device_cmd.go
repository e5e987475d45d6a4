package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/msgauth/internal/environment"
)

func deviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Show or reset the device identity sent to the service",
	}
	cmd.AddCommand(deviceShowCmd())
	cmd.AddCommand(deviceResetCmd())
	return cmd
}

func deviceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the device id and request context",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			env, err := resolveEnvironment(cfg)
			if err != nil {
				fatalf("%s", err)
			}
			region := env.Region
			if region == "" {
				region = "(unknown, header omitted)"
			}
			fmt.Printf("  Device ID:    %s\n", env.DeviceID)
			fmt.Printf("  Environment:  %s\n", env.Environment)
			fmt.Printf("  Locale:       %s\n", env.Locale)
			fmt.Printf("  Region:       %s\n", region)
			fmt.Printf("  App:          %s %s (%s), bundle %s\n", env.AppName, env.AppVersion, env.AppBuild, env.BundleID)
			fmt.Printf("  Library:      %s: %s\n", env.LibraryVersionHeader(), env.LibraryVersion)
		},
	}
}

func deviceResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the stored device id so a new one is created on next use",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if !yes {
				ok, err := promptConfirm("Reset the device id? The service will see this machine as a new device.", false)
				if err != nil || !ok {
					fmt.Println("Cancelled.")
					return
				}
			}
			if err := deviceKV(cfg).Delete(environment.DeviceIDKey); err != nil {
				fmt.Fprintf(os.Stderr, "Error: reset device id: %s\n", err)
				os.Exit(1)
			}
			fmt.Println("Device id reset.")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/msgauth/internal/config"
	"github.com/nextlevelbuilder/msgauth/internal/crypto"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configPathCmd())
	cmd.AddCommand(configValidateCmd())
	cmd.AddCommand(configSealCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration (secrets redacted)",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			data, _ := json.MarshalIndent(cfg.Redacted(), "", "  ")
			fmt.Println(string(data))
		},
	}
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Run: func(cmd *cobra.Command, args []string) {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid config: %s\n", err)
				os.Exit(1)
			}
			fmt.Printf("Config at %s is valid.\n", cfgPath)
		},
	}
}

func configSealCmd() *cobra.Command {
	var generateKey bool
	cmd := &cobra.Command{
		Use:   "seal [field]",
		Short: "Encrypt a secret for the config file",
		Long: "Prints an aes-gcm: value to paste into the config file. It opens only for the same field and with the key in " +
			config.EnvEncryptionKey + ". Fields: " + strings.Join(config.SecretFieldNames(), ", ") + ".",
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if generateKey {
				key, err := crypto.GenerateKey()
				if err != nil {
					fatalf("%s", err)
				}
				fmt.Println(key)
				return
			}
			if len(args) != 1 {
				fatalf("field is required (one of %s)", strings.Join(config.SecretFieldNames(), ", "))
			}
			field := args[0]
			if !slices.Contains(config.SecretFieldNames(), field) {
				fatalf("unknown secret field %q (want one of %s)", field, strings.Join(config.SecretFieldNames(), ", "))
			}

			key := os.Getenv(config.EnvEncryptionKey)
			if key == "" {
				fatalf("%s is not set (create one with 'msgauth config seal --generate-key')", config.EnvEncryptionKey)
			}
			box, err := crypto.NewBox(key)
			if err != nil {
				fatalf("%s: %s", config.EnvEncryptionKey, err)
			}

			value, err := promptPassword("Value for "+field, "Input is hidden")
			if err != nil {
				fmt.Println("Cancelled.")
				return
			}
			sealed, err := box.Seal(field, strings.TrimSpace(value))
			if err != nil {
				fatalf("%s", err)
			}
			fmt.Println(sealed)
		},
	}
	cmd.Flags().BoolVar(&generateKey, "generate-key", false, "print a new random encryption key and exit")
	return cmd
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"wishlist-go/internal/app"
	"wishlist-go/internal/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readConfig reads the config file from the default location.
func readConfig() (*config.Config, string, error) {
	paths, err := app.DefaultPaths()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(paths.ConfigPath)
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, paths.ConfigPath, nil
}

// withApp reads the config, creates a WLApp and runs fn with it.
// operation identifies the CLI command being run (e.g. "AddItem", "Export").
// The outcome of fn is recorded in the log before the app is closed.
func withApp(cmd *cobra.Command, operation, parameters string, fn func(ctx context.Context, a *app.WLApp) error) (err error) {
	cfg, _, err := readConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.NewWLApp(ctx, cfg, operation, parameters, app.Options{Quiet: !verbose})
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	err = fn(ctx, a)
	a.Fail(err)
	return err
}

// readPassphrase prompts on the terminal without echo. When stdin is not a
// terminal the passphrase is taken from WL_PASSPHRASE or the first line of
// stdin.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(b), nil
	}

	if p := os.Getenv("WL_PASSPHRASE"); p != "" {
		return p, nil
	}
	line, err := readLine(stdin)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return line, nil
}

// stdin is shared by every prompt so piped answers are not swallowed by an
// earlier reader's buffer.
var stdin = bufio.NewReader(os.Stdin)

// readLine returns the next line without its terminator. A final line with no
// newline is returned as is.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var rootCmd = &cobra.Command{
	Use:          "wl",
	Short:        "Local wishlist manager",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		noEnc, _ := cmd.Flags().GetBool("no-encryption")
		cfg := paths.NewConfig(!noEnc)
		if err := config.Init(paths.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", paths.ConfigPath)
		fmt.Printf("Base Dir: %s\n", paths.BaseDir)
		if cfg.Encryption.Type != "none" {
			fmt.Println("Run `wl keys init` to create the backup encryption keys.")
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("Export Dir: %s\n", cfg.Export.Dir)
		for _, v := range cfg.Vaults {
			switch v.Type {
			case "s3":
				fmt.Printf("Vault:      %s (s3://%s/%s)\n", v.Name, v.S3Bucket, v.S3Prefix)
			case "filesystem":
				fmt.Printf("Vault:      %s (%s)\n", v.Name, v.FSVaultRoot)
			default:
				fmt.Printf("Vault:      %s (%s)\n", v.Name, v.Type)
			}
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage backup encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		if term.IsTerminal(int(os.Stdin.Fd())) {
			again, err := readPassphrase("Repeat passphrase: ")
			if err != nil {
				return err
			}
			if again != passphrase {
				return errors.New("passphrases do not match")
			}
		}

		if err := app.SetupKeys(cfg.Encryption, passphrase); err != nil {
			return fmt.Errorf("creating keys: %w", err)
		}

		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s (passphrase protected)\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Also print log lines to stderr")

	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("no-encryption", false, "Store vault backups in plaintext")
	configCmd.AddCommand(configListCmd)

	keysCmd.AddCommand(keysInitCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
}

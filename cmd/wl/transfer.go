package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"wishlist-go/internal/app"

	"github.com/spf13/cobra"
)

// export command
var exportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Write the wishlist to a JSON document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		return withApp(cmd, "Export", path, func(ctx context.Context, a *app.WLApp) error {
			written, err := a.Export(ctx, path)
			if err != nil {
				return err
			}
			fmt.Printf("Exported to %s\n", written)
			return nil
		})
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the wishlist with a JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(cmd, "Importing replaces every category, item and setting.") {
			return nil
		}
		return withApp(cmd, "Import", args[0], func(ctx context.Context, a *app.WLApp) error {
			if err := a.Import(ctx, args[0]); err != nil {
				return err
			}
			w := a.Wishlist()
			fmt.Printf("Imported %d categories and %d item(s)\n", len(w.Categories()), len(w.AllItems()))
			return nil
		})
	},
}

// clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete everything and restore the default categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(cmd, "This deletes every item and custom category.") {
			return nil
		}
		return withApp(cmd, "ClearAll", "", func(ctx context.Context, a *app.WLApp) error {
			if err := a.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Println("Wishlist cleared.")
			return nil
		})
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Store an export document in a vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultName, _ := cmd.Flags().GetString("vault")
		return withApp(cmd, "Backup", vaultName, func(ctx context.Context, a *app.WLApp) error {
			name, err := a.Backup(ctx, vaultName)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			fmt.Printf("Stored %s\n", name)
			return nil
		})
	},
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List export documents in a vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultName, _ := cmd.Flags().GetString("vault")
		return withApp(cmd, "ListBackups", vaultName, func(ctx context.Context, a *app.WLApp) error {
			docs, err := a.Backups(ctx, vaultName)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Println("No backups.")
				return nil
			}
			for _, d := range docs {
				fmt.Printf("%s  %s  %d\n", d.ModifiedAt.Local().Format("2006-01-02 15:04:05"), d.Name, d.Size)
			}
			return nil
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore NAME",
	Short: "Replace the wishlist with a document from a vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultName, _ := cmd.Flags().GetString("vault")
		if !confirm(cmd, "Restoring replaces every category, item and setting.") {
			return nil
		}
		return withApp(cmd, "Restore", args[0], func(ctx context.Context, a *app.WLApp) error {
			passphrase := ""
			if a.NeedsPassphrase(args[0]) {
				var err error
				if passphrase, err = readPassphrase("Passphrase: "); err != nil {
					return err
				}
			}
			if err := a.Restore(ctx, vaultName, args[0], passphrase); err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			fmt.Printf("Restored %s\n", args[0])
			return nil
		})
	},
}

// confirm asks for a yes on stdin unless --yes was given.
func confirm(cmd *cobra.Command, warning string) bool {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s Continue? [y/N] ", warning)
	line, _ := readLine(stdin)
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "y" || answer == "yes" {
		return true
	}
	fmt.Println("Aborted.")
	return false
}

func init() {
	for _, c := range []*cobra.Command{importCmd, clearCmd, restoreCmd} {
		c.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	}
	for _, c := range []*cobra.Command{backupCmd, backupsCmd, restoreCmd} {
		c.Flags().String("vault", "", "Vault name (defaults to export.vault or the first vault)")
	}

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(restoreCmd)
}

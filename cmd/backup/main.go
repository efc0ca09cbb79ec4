package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"speakwell/internal/config"
	"speakwell/internal/database"
	"speakwell/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "backup",
		Short:        "Export and import the speakwell database",
		SilenceUsage: true,
	}
	root.AddCommand(newExportCmd(), newImportCmd())
	return root
}

// openBackupService connects to the configured database and brings its
// schema up to date
func openBackupService() (*service.BackupService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return service.NewBackupService(db, logrus.StandardLogger()), func() { db.Close() }, nil
}

func newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every user, lesson, result and feedback item to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}

			backupService, closeDB, err := openBackupService()
			if err != nil {
				return err
			}
			defer closeDB()

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer file.Close()

			backup, err := backupService.Export(file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d users, %d lessons, %d results, %d feedback items to %s\n",
				len(backup.Users), len(backup.Lessons), len(backup.Results), len(backup.Feedback), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		input string
		clear bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore a JSON backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			backupService, closeDB, err := openBackupService()
			if err != nil {
				return err
			}
			defer closeDB()

			file, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("failed to open input file: %w", err)
			}
			defer file.Close()

			backup, err := backupService.Import(file, clear)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d users, %d lessons, %d results, %d feedback items\n",
				len(backup.Users), len(backup.Lessons), len(backup.Results), len(backup.Feedback))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "backup file to import")
	cmd.Flags().BoolVar(&clear, "clear", false, "clear existing data before import (WARNING: destructive)")
	cmd.MarkFlagRequired("input")
	return cmd
}

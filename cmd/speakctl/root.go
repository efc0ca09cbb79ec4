package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"speakwell/internal/client"
	"speakwell/internal/security"
	"speakwell/internal/session"
)

const envPrefix = "SPEAKWELL"

// cli carries the settings and collaborators shared by every command
type cli struct {
	v      *viper.Viper
	logger *logrus.Logger
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".speakwell-session"
	}
	return filepath.Join(home, ".speakwell", "session")
}

func newRootCmd() *cobra.Command {
	app := &cli{v: viper.New(), logger: logrus.New()}
	app.v.SetEnvPrefix(envPrefix)
	app.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	app.v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "speakctl",
		Short:        "Command line client for the speakwell API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(app.v.GetString("log-level"))
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			app.logger.SetLevel(level)
			app.logger.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("api-url", "http://localhost:8080", "speakwell server base URL")
	flags.String("session-file", defaultSessionFile(), "where the signed-in session token is kept")
	flags.Duration("timeout", 10*time.Second, "request timeout")
	flags.String("log-level", "warn", "log level")
	for _, name := range []string{"api-url", "session-file", "timeout", "log-level"} {
		cobra.CheckErr(app.v.BindPFlag(name, flags.Lookup(name)))
	}

	root.AddCommand(
		app.loginCmd(),
		app.registerCmd(),
		app.logoutCmd(),
		app.whoamiCmd(),
		app.lessonsCmd(),
		app.unitsCmd(),
	)
	return root
}

func (a *cli) client() *client.Client {
	return client.New(a.v.GetString("api-url"), nil)
}

// store returns a session store backed by the session file, restored from
// whatever token the file holds
func (a *cli) store(c *client.Client) *session.Store {
	storage := session.FileStorage{Path: a.v.GetString("session-file")}
	store := session.NewStore(c, storage, security.UnverifiedDecoder{}, a.logger)
	store.Restore()
	return store
}

package cmd

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/history"
	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/josephlewis42/pipesh/core/shell"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"
)

var (
	cfgPath     string
	envFile     string
	logLevel    string
	logType     string
	commandLine string

	// exitStatus is the status the process exits with once cobra is done.
	exitStatus int
)

func configDir() (string, error) {
	if cfgPath != "" {
		return cfgPath, nil
	}
	return config.DefaultDir()
}

func loadConfig() (*config.Configuration, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	configuration, err := config.Load(dir)
	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// loadShellConfig loads the configuration, falling back to the built-in one
// so the shell works before init has been run.
func loadShellConfig() (*config.Configuration, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	configuration, err := config.Load(dir)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("no configuration found, history won't be saved; run init to create one", "dir", dir)
		return config.Default(), nil
	}
	return configuration, err
}

// loadEnv reads the dotenv file so spawned commands inherit its variables.
// A missing file is only an error if the path was given explicitly.
func loadEnv(cmd *cobra.Command) error {
	err := godotenv.Load(envFile)
	switch {
	case err == nil:
		slog.Debug("using env file", "path", envFile)
		return nil
	case os.IsNotExist(err) && !cmd.Flags().Changed("env-file"):
		return nil
	default:
		return err
	}
}

func initLogging(cfg *config.Configuration) (*slog.Logger, error) {
	loggingType := cfg.Logging.Type
	if logType != "" {
		loggingType = logType
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}

	return logger.Initialize(os.Stderr, loggingType, level)
}

func openHistory(cfg *config.Configuration) (history.Store, error) {
	fsys, path := cfg.HistoryFs()
	if path == "" {
		return history.NewMemStore(), nil
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return history.Open(fsys, path, cfg.History.MaxEntries)
}

func openEventLog(cfg *config.Configuration) (*logger.SessionLogger, func(), error) {
	if cfg.EventLog == "" {
		return logger.Discard().NewSession(), func() {}, nil
	}

	fd, err := cfg.OpenEventLog()
	if err != nil {
		return nil, nil, err
	}
	return logger.NewJsonLinesLogRecorder(fd).NewSession(), func() { fd.Close() }, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pipesh",
	Short: "A pipe and redirect shell",
	Long: `pipesh reads lines of commands joined by pipes and runs them as
operating system processes. Each stage may redirect its input with < and its
output with > or >>, as long as redirection only happens at the edges of the
pipeline.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		if err := loadEnv(cmd); err != nil {
			return err
		}

		cfg, err := loadShellConfig()
		if err != nil {
			return err
		}

		appLogger, err := initLogging(cfg)
		if err != nil {
			return err
		}

		hist, err := openHistory(cfg)
		if err != nil {
			return err
		}

		events, closeEvents, err := openEventLog(cfg)
		if err != nil {
			return err
		}
		defer closeEvents()

		sh := shell.New(
			cfg,
			hist,
			engine.StdStreams(),
			shell.WithEventLog(events),
			shell.WithLogger(appLogger),
			shell.WithTerminal(terminal.IsTerminal(int(os.Stdin.Fd()))),
		)

		if cmd.Flags().Changed("command") {
			sh.RunLine(commandLine)
			exitStatus = sh.ExitStatus()
			return nil
		}

		if dir := cfg.Dir(); dir != "" {
			watcher, err := config.NewWatcher(dir, sh.Reconfigure, appLogger)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := watcher.Start(ctx); err != nil {
				appLogger.Warn("couldn't watch configuration", "error", err)
			}
			defer watcher.Stop()
		}

		exitStatus = sh.RunInteractive()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
	os.Exit(exitStatus)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory (default is $XDG_CONFIG_HOME/pipesh)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before commands run")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the configuration")
	rootCmd.PersistentFlags().StringVar(&logType, "log-type", "", "log format: json, text or tint, overrides the configuration")

	rootCmd.Flags().StringVarP(&commandLine, "command", "c", "", "run a single line and exit")
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leonardotrapani/whisperdeck/internal/app"
	"github.com/leonardotrapani/whisperdeck/internal/bus"
	"github.com/leonardotrapani/whisperdeck/internal/config"
	"github.com/leonardotrapani/whisperdeck/internal/daemon"
	"github.com/leonardotrapani/whisperdeck/internal/deps"
	"github.com/leonardotrapani/whisperdeck/internal/logging"
	"github.com/leonardotrapani/whisperdeck/internal/notify"
	"github.com/leonardotrapani/whisperdeck/internal/transcriber"
	"github.com/leonardotrapani/whisperdeck/internal/tui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "whisperdeck",
		Short: "Speech-to-text with whisper: realtime, file and voice recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScreen(cmd.Context())
		},
		SilenceUsage: true,
	}

	root.AddCommand(
		serveCmd(),
		busCmd("realtime", "Toggle realtime transcription in the daemon", 'r'),
		busCmd("file", "Transcribe the bundled sample file in the daemon", 'f'),
		busCmd("record", "Toggle voice recording in the daemon", 't'),
		busCmd("record-stop", "Stop voice recording without transcribing it", 'x'),
		busCmd("cancel", "Cancel running transcriptions", 'c'),
		busCmd("status", "Get current flow status", 's'),
		busCmd("stop", "Stop the daemon", 'q'),
		busCmd("version", "Get protocol version", 'v'),
		transcribeCmd(),
		doctorCmd(),
		configureCmd(),
		modelCmd(),
	)
	return root
}

// session is everything a long-running command needs: live config,
// logging and a controller.
type session struct {
	mgr       *config.Manager
	ctrl      *app.Controller
	logCloser io.Closer
}

// openSession loads config and logging. defaultLog is used when the config
// names no log file; the interactive screen cannot share stderr with logs.
func openSession(ctx context.Context, defaultLog string) (*session, error) {
	mgr, err := config.NewManager()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := mgr.GetConfig()

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = defaultLog
	}
	closer, err := logging.Setup(cfg.Log.Level, logFile)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	if err := mgr.StartWatching(ctx); err != nil {
		log.Warn().Err(err).Msg("config: cannot watch for changes")
	}

	ctrl := app.New(mgr.GetConfig, app.DefaultDeps(notify.New(cfg.Notifications.Type)))
	return &session{mgr: mgr, ctrl: ctrl, logCloser: closer}, nil
}

func (s *session) Close() {
	s.ctrl.Close()
	s.mgr.Stop()
	s.logCloser.Close()
}

func screenLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "whisperdeck", "whisperdeck.log")
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func runScreen(ctx context.Context) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	s, err := openSession(ctx, screenLogPath())
	if err != nil {
		return err
	}
	defer s.Close()

	return tui.Run(ctx, s.ctrl)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s, err := openSession(ctx, "")
			if err != nil {
				return err
			}
			defer s.Close()

			return daemon.New(s.ctrl).Run(ctx)
		},
	}
}

func busCmd(use, short string, command byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(command)
			if err != nil {
				return fmt.Errorf("failed to reach daemon (is `whisperdeck serve` running?): %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func transcribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <path>",
		Short: "Transcribe an audio file and print the text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("cannot read audio file: %w", err)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			s, err := openSession(ctx, "")
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.ctrl.Init(ctx); err != nil {
				return fmt.Errorf("model initialization failed: %w", err)
			}
			text, err := s.ctrl.TranscribeFile(ctx, transcriber.FileURI("file://"+path))
			if err != nil {
				return fmt.Errorf("transcription failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the external tools the configured flows need",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runDoctor(cmd.OutOrStdout(), cfg)
		},
	}
}

func runDoctor(out io.Writer, cfg *config.Config) error {
	statuses := deps.CheckAll(deps.Required(cfg.Engine.Provider, cfg.Notifications.Type))
	for _, s := range statuses {
		mark := "[ ]"
		detail := "not found"
		if s.Installed {
			mark = "[x]"
			detail = s.Path
			if s.Version != "" {
				detail += " (" + s.Version + ")"
			}
		}
		fmt.Fprintf(out, "  %s %-12s %s - %s\n", mark, s.Tool.Binary, s.Tool.Purpose, detail)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "\nconfig: %v\n", err)
		return err
	}
	if missing := deps.Missing(statuses); len(missing) > 0 {
		return fmt.Errorf("%d required tool(s) missing", len(missing))
	}
	fmt.Fprintln(out, "\nall good")
	return nil
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration for whisperdeck.
This will guide you through setting up:
- Where the whisper model comes from (bundled asset or download)
- The transcription engine (whisper.cpp or OpenAI) and its API key
- Language, threads and notifications`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(cmd.OutOrStdout())
		},
	}
}

func runConfigure(out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Configure(cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if result.Cancelled {
		fmt.Fprintln(out, "Configuration cancelled.")
		return nil
	}

	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, _ := config.GetConfigPath()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration saved successfully!")
	fmt.Fprintf(out, "Config file location: %s\n", configPath)
	fmt.Fprintln(out, "A running `whisperdeck serve` picks up the change; model changes apply on its next start.")
	return nil
}

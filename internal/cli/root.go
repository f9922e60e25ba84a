// Package cli implements the mediascribe command line. Without a subcommand
// the desktop window is started.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/jeff-barlow-spady/mediascribe/config"
	"github.com/jeff-barlow-spady/mediascribe/pkg/app"
	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
	"github.com/jeff-barlow-spady/mediascribe/pkg/ui"
)

// Global flag variables shared across all subcommands
var (
	homeDir    string
	debugMode  bool
	jsonOutput bool
)

// Version is set from main at build time
var Version = "dev"

// NewRootCommand creates the root command with every subcommand registered
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mediascribe",
		Short: "Batch transcriber for audio and video files",
		Long: `mediascribe turns every media file in its input folder into a timestamped
text transcript using a faster-whisper runtime.

Without a subcommand the desktop window is opened.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGUI(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Base folder for models, input_files and results (default: next to the executable or $"+config.HomeEnv+")")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(newGUICommand())
	rootCmd.AddCommand(newTUICommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newModelsCommand())
	rootCmd.AddCommand(newFFmpegCommand())
	rootCmd.AddCommand(newProxyCommand())
	rootCmd.AddCommand(newTranscribeCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure
func Execute(ctx context.Context, rootCmd *cobra.Command) {
	if err := run(ctx, rootCmd); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// run executes rootCmd. A panic is written to error.log and returned as an error.
func run(ctx context.Context, rootCmd *cobra.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			path := errorLogPath()
			logger.WriteCrash(path, r, debug.Stack())
			err = fmt.Errorf("unexpected error: %v (details saved to %s)", r, path)
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func printError(w io.Writer, err error) {
	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]interface{}{
			"error": map[string]interface{}{
				"message": err.Error(),
				"hint":    app.FixHint(err),
			},
		}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// resolvePaths honours --home, then the environment and executable location
func resolvePaths() (config.AppPaths, error) {
	if homeDir != "" {
		return config.GetPathsAt(homeDir)
	}
	return config.GetPaths()
}

func errorLogPath() string {
	paths, err := resolvePaths()
	if err != nil {
		return "error.log"
	}
	return paths.ErrorLog
}

// openService builds the application service for one command
func openService(ctx context.Context) (*app.Service, error) {
	logger.Initialize()
	paths, err := resolvePaths()
	if err != nil {
		return nil, err
	}
	config.SetupRuntimePaths(paths.BaseDir)

	svc, err := app.Open(ctx, paths)
	if err != nil {
		return nil, err
	}
	if debugMode {
		logger.SetLevel(logger.LevelDebug)
	}
	return svc, nil
}

// reported writes err to error.log and adds the fix hint
func reported(svc *app.Service, context string, err error) error {
	report := svc.ReportError(context, err)
	return fmt.Errorf("%s: %w\n%s\nDetails saved to: %s", context, err, report.Hint, report.LogPath)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runGUI(ctx context.Context) error {
	svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	ui.New(svc).Run()
	return nil
}

func newGUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the desktop window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGUI(cmd.Context())
		},
	}
}

func newTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			tui := ui.NewTerminalUI(svc)
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				<-ctx.Done()
				tui.Stop()
			}()
			return tui.RunBlocking()
		},
	}
}

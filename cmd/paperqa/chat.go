package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"paperqa/internal/domain"
	"paperqa/internal/extractor"
	"paperqa/internal/logger"
	"paperqa/internal/tui"
)

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [file]",
		Short: "Open the interactive terminal UI",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, args)
		},
	}
}

func runChat(cmd *cobra.Command, opts *options, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// the terminal belongs to the UI, so logs go to a file
	logPath := filepath.Join(os.TempDir(), "paperqa.log")
	logFile, err := logger.OpenFile(logPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	a, err := newApp(opts, logFile)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ollama.Ping(ctx); err != nil {
		return err
	}
	a.session.SessionStarted(a.monitor.SystemInfo(ctx))
	zl := a.log.Zerolog()
	zl.Info().Str("session_id", a.session.ID()).Str("log", logPath).Msg("chat started")
	go a.monitor.Start(ctx, time.Second)

	deps := tui.Deps{
		Context:   ctx,
		Session:   a.service,
		Open:      func(path string) (domain.Document, error) { return a.extractor.Load(path) },
		Supported: extractor.Supported,
		Monitor:   a.monitor,
		Log:       a.session,
		Models:    a.ollama,
		ExportDir: a.cfg.SessionLog.Dir,
	}
	if len(args) == 1 {
		deps.Path = args[0]
	}
	_, err = tea.NewProgram(tui.New(deps), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/app"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/config"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/logger"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/scan"
)

// Set via -ldflags at build time
var (
	version = "dev"
	commit  = ""
)

var (
	port        int
	bindAddress string
)

var rootCmd = &cobra.Command{
	Use:           "swashakti",
	Short:         "Textile quality inspection scan service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the inspection HTTP service",
	Long:  `The serve command starts the HTTP API, the scan progress stream and the registry cleanup schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a single scan in the terminal",
	Long:  `The simulate command runs one scan with the configured timing and check list, printing every tick and the final score. Ctrl-C cancels the scan.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger.SetLevel(cfg.LogLevel)

		checks, err := config.NewCheckList(cfg.ChecksFile)
		if err != nil {
			return err
		}
		return simulate(cmd.Context(), cmd.OutOrStdout(), checks.Checks(), cfg.ScanOptions()...)
	},
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides SWASHAKTI_PORT)")
	serveCmd.Flags().StringVar(&bindAddress, "bind", "", "Address to bind to (default all interfaces)")
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
}

// serve runs the HTTP service until ctx is cancelled
func serve(ctx context.Context) error {
	srv, err := app.CreateServer(app.ServerConfig{
		Port:        port,
		BindAddress: bindAddress,
		Version:     version,
		Commit:      commit,
	})
	if err != nil {
		return err
	}
	defer srv.Cleanup()

	// Graceful shutdown
	go func() {
		<-ctx.Done()

		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.HTTP.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Shutdown error: %v", err)
		}
	}()

	logger.Infof("Server listening on http://localhost:%d", srv.Config.Port)
	if err := srv.HTTP.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// simulate runs one scan and prints its progress to out
func simulate(ctx context.Context, out io.Writer, checks []scan.Check, opts ...scan.Option) error {
	run, err := scan.New(checks, opts...)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	run.OnProgress(func(progress int, items []scan.CheckItem) {
		fmt.Fprintf(out, "%3d%%  %s\n", progress, describeChecks(items))
	})
	run.OnComplete(func(score int) {
		fmt.Fprintf(out, "Scan complete. Quality score: %d%%\n", score)
		done <- nil
	})
	run.OnCancel(func(reason error) {
		done <- reason
	})

	if err := run.Start(); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if err := run.Cancel(); errors.Is(err, scan.ErrTerminalState) {
			// Finished while the signal arrived
			return <-done
		}
		fmt.Fprintln(out, "Scan cancelled.")
		return nil
	}
}

func describeChecks(items []scan.CheckItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		var mark string
		switch item.State {
		case scan.CheckComplete:
			mark = "[x]"
		case scan.CheckChecking:
			mark = "[~]"
		default:
			mark = "[ ]"
		}
		parts[i] = mark + " " + item.Label
	}
	return strings.Join(parts, "  ")
}

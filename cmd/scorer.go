package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/loan-servicing/internal/scoring"
	"github.com/frahmantamala/loan-servicing/pkg/logger"
)

var scorerAddr string

var scorerCmd = &cobra.Command{
	Use:   "scorer",
	Short: "Serve the heuristic risk scorer",
	Long:  `Serve POST /predict and GET /health with the local heuristic, compatible with the scoring client.`,
	Run: func(cmd *cobra.Command, args []string) {
		startScorer()
	},
}

func startScorer() {
	lg := logger.LoggerWrapper()

	addr := scorerAddr
	if addr == "" {
		if cfg, err := loadConfig(configPath); err == nil {
			addr = cfg.Scoring.ServeAddr
		}
	}
	if addr == "" {
		addr = ":8001"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           scoring.NewServer(scoring.NewHeuristic(), lg).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		lg.Info("Starting scorer", "address", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Scorer shutdown error", "error", err)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "Scorer failed: %v\n", err)
			os.Exit(1)
		}
	}
	lg.Info("Scorer stopped")
}

func init() {
	scorerCmd.Flags().StringVar(&scorerAddr, "addr", "", "listen address (overrides scoring.serve_addr)")
	rootCmd.AddCommand(scorerCmd)
}

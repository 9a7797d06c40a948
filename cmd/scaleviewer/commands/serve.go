package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DrNicoArt/scaleviewer/internal/api"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/logger"
)

// ServeCmd starts the HTTP analysis API
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the HTTP analysis API",
	Long: `Load the catalog and serve features, similarity, comparison and
candidacy over HTTP. With catalog.watch enabled the catalog file is
reloaded whenever it changes on disk.`,
	RunE: runServe,
}

var servePort int

const shutdownTimeout = 10 * time.Second

func init() {
	ServeCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	handler := api.NewHandler(rt.analyzer, cfg)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	status := rt.analyzer.Status()
	pterm.Info.Printf("Starting scaleviewer API on http://localhost:%d\n", port)
	pterm.Info.Printf("Catalog %s: %d entities (version %d)\n", status.Source, status.Entities, status.CatalogVersion)
	pterm.Info.Printf("Rule set: %s (%d rules)\n", status.RuleSet, status.Rules)
	if status.Archive {
		pterm.Info.Printf("Run archive: %s (sqlite-vec %s)\n", cfg.Archive.Path, status.VecVersion)
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		pterm.Info.Printf("CORS enabled for: %s\n", strings.Join(cfg.Server.AllowedOrigins, ", "))
	}
	logger.Infow("API server starting", logger.FieldPort, port, logger.FieldCatalogVersion, status.CatalogVersion)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return errors.Wrap(err, "server failed to start")
		}
		return nil
	case <-ctx.Done():
		pterm.Info.Println("Shutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown error")
	}
	pterm.Success.Println("Server stopped cleanly")
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/library-kiosk/internal/capture"
	"github.com/kozaktomas/library-kiosk/internal/config"
	"github.com/kozaktomas/library-kiosk/internal/constants"
	"github.com/kozaktomas/library-kiosk/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kiosk HTTP API",
	Long: `Start the Library Kiosk HTTP API.
The API serves registration, identification and circulation to the kiosk
front end, plus the staff views and Prometheus metrics on /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().Bool("no-capture", false, "Disable the photo endpoints (no embedding service or barcode decoding)")
}

// resolveServeHostPort applies explicitly set flags on top of the environment.
func resolveServeHostPort(cmd *cobra.Command, web config.WebConfig) config.WebConfig {
	if cmd.Flags().Changed("port") {
		web.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		web.Host = mustGetString(cmd, "host")
	}
	return web
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := web.Options{Metrics: a.metrics, Logger: a.log}
	if !mustGetBool(cmd, "no-capture") {
		opts.Embedder = capture.NewEmbeddingClient(a.cfg.Capture.EmbeddingURL, a.cfg.Capture.MaxImageSize)
		opts.Decoder = capture.NewBarcodeDecoder()
	}

	webCfg := resolveServeHostPort(cmd, a.cfg.Web)
	server := web.NewServer(webCfg, a.kiosk, opts)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("Library Kiosk API listening on http://%s\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	return nil
}

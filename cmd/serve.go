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
	"github.com/spf13/viper"

	"github.com/kiesman99/spritesheet/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for spritesheet bundling",
	Long: `Start an HTTP server that provides a REST API for spritesheet bundling.

Images are uploaded as multipart parts named "images" and composited in upload
order. The response body is the encoded sheet.

Examples:
  # Start server on default port 8080
  spritesheet serve

  # Start server with custom bind address
  spritesheet serve --bind 0.0.0.0 --port 8080

  # Bundle two images, 2 columns, as PNG
  curl -F images=@a.png -F images=@b.png 'http://localhost:8080/api/v1/spritesheet?max_cols=2' -o sheet.png`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "request timeout")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
}

func runServe(cmd *cobra.Command, args []string) error {
	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")

	addr := fmt.Sprintf("%s:%d", bind, port)

	apiServer := server.NewServer(version, logger)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.NewRouter(apiServer, timeout),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "err", err)
		}
	}()

	logger.Info("Starting spritesheet server", "addr", addr)
	logger.Info("Health check", "url", fmt.Sprintf("http://%s/api/v1/health", addr))
	logger.Info("Spritesheet endpoint", "url", fmt.Sprintf("http://%s/api/v1/spritesheet", addr))

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}

	return nil
}

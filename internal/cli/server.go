package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-exam-service/internal/config"
	transport "course-exam-service/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the exam server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", os.Getenv("PORT"), "port to listen on (overrides server.port)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		log.Printf("config %s not found, using defaults", configPath)
		cfg = config.Default()
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	wsHandler := transport.NewWSHandler(b.services)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting exam service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

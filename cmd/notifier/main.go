package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"

	healthhandler "slotly/internal/health/handler"
	"slotly/internal/notifications/dispatcher"
	"slotly/internal/notifications/email"
	notificationshandler "slotly/internal/notifications/handler"
	"slotly/internal/notifications/hub"
	"slotly/pkg/config"
	"slotly/pkg/events"
	"slotly/pkg/kafka"
	kafka_config "slotly/pkg/kafka/config"
	"slotly/pkg/middleware"
	"slotly/pkg/token"
)

const (
	ServiceName     = "notifier"
	consumerGroupID = "notifier"
)

// The notifier serves long-lived websocket connections, so it assembles its
// server by hand with only Recovery and Logging instead of the full API
// middleware stack (request timeouts would sever the connections).
func main() {
	cfg := config.Load(ServiceName)
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting notifier service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := token.NewManager(cfg.AuthSecret, cfg.AuthTokenTTL)

	wsHub := hub.NewHub(cfg.Log)
	defer wsHub.Close()

	queue := email.NewQueue(cfg.Client.Redis, cfg.Log)
	worker := email.NewWorker(cfg.Client.Redis, email.NewSMTPSender(cfg), cfg.Log)
	go worker.Run(ctx)

	disp := dispatcher.NewDispatcher(wsHub, queue, cfg.Log)

	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)
	consumer := kafka.NewConsumer(kafkaCfg, events.TopicBookingEvents, consumerGroupID, disp.Handle, cfg.Log)
	go func() {
		if err := consumer.Run(ctx); err != nil {
			cfg.Log.Error("Consumer stopped with error", "error", err)
		}
	}()

	server := setupHTTPServer(cfg, wsHub, tokens)
	run(ctx, cfg, server)

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
}

func setupHTTPServer(cfg *config.Config, wsHub *hub.Hub, tokens *token.Manager) *http.Server {
	router := httprouter.New()
	notificationshandler.NewWSHandler(wsHub, tokens, cfg.Log).RegisterRoutes(router)
	healthhandler.NewHealthHandler(nil, cfg.Log).RegisterRoutes(router)

	var handler http.Handler = router
	handler = middleware.RequestLogging(cfg.Log)(handler)
	handler = middleware.Recovery(cfg.Log)(handler)

	return &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: cfg.IdleTimeout,
	}
}

func run(ctx context.Context, cfg *config.Config, server *http.Server) {
	serverErrors := make(chan error, 1)

	go func() {
		cfg.Log.Info("Starting HTTP server", "address", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		cfg.Log.Fatal("HTTP server failed", "error", err)

	case <-ctx.Done():
		cfg.Log.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			cfg.Log.Error("Server shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				cfg.Log.Fatal("Could not stop server gracefully", "error", err)
			}
		}

		cfg.Log.Info("Server stopped gracefully")
	}
}

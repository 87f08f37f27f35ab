package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/lucasmaia/atende/internal/channel"
	"github.com/lucasmaia/atende/internal/channel/bridge"
	"github.com/lucasmaia/atende/internal/channel/whatsapp"
	"github.com/lucasmaia/atende/internal/config"
	"github.com/lucasmaia/atende/internal/handler"
	"github.com/lucasmaia/atende/internal/service/ai"
	"github.com/lucasmaia/atende/internal/service/session"
	"github.com/lucasmaia/atende/internal/service/turn"
	redisstore "github.com/lucasmaia/atende/internal/store/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		redisstore.WithTTL(cfg.Agent.SessionTTL))
	defer store.Close()

	generator, err := ai.NewGenerator(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize generator: %v", err)
	}

	sessions := session.NewManager(cfg.Agent.StoreName, ai.RenderSystemPrompt)

	adapter, webhookRoutes, err := newChannelAdapter(ctx, cfg.Channel)
	if err != nil {
		log.Fatalf("failed to initialize channel: %v", err)
	}
	defer adapter.Close()

	orchestrator := turn.New(store, generator, adapter, sessions, turn.Options{
		GeneratorTimeout: cfg.Agent.GeneratorTimeout,
		StoreTimeout:     cfg.Agent.StoreTimeout,
	})

	inbound, err := adapter.Listen(ctx)
	if err != nil {
		log.Fatalf("failed to listen on channel: %v", err)
	}

	// One goroutine per message; the orchestrator serializes per customer.
	go func() {
		for msg := range inbound {
			go func(m channel.Inbound) {
				if err := orchestrator.HandleInbound(ctx, m); err != nil {
					log.Printf("[main] turn failed: %v", err)
				}
			}(msg)
		}
	}()

	router := handler.NewRouter(store, webhookRoutes)
	startServer(ctx, cfg.Server, router)
}

// newChannelAdapter builds the configured transport. Only the cloud channel
// contributes webhook routes to the HTTP surface.
func newChannelAdapter(ctx context.Context, cfg config.ChannelConfig) (channel.Adapter, func(chi.Router), error) {
	switch cfg.Kind {
	case config.ChannelCloud:
		adapter := whatsapp.New(cfg.WhatsApp)
		log.Println("WhatsApp Cloud API channel initialized")
		return adapter, adapter.Routes, nil
	case config.ChannelBridge:
		adapter, err := bridge.Dial(ctx, cfg.Bridge.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("bridge channel connected to %s", cfg.Bridge.URL)
		return adapter, nil, nil
	default:
		// config.Load already validated the kind.
		panic("unreachable channel kind: " + cfg.Kind)
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("atende listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

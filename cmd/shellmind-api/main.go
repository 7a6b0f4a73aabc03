// Command shellmind-api serves the HTTP API backing the shellmind
// terminal assistant.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shellmind/shellmind-api/config"
	"github.com/shellmind/shellmind-api/engine"
	"github.com/shellmind/shellmind-api/githubauth"
	"github.com/shellmind/shellmind-api/memory"
	"github.com/shellmind/shellmind-api/memory/embedder/pseudo"
	chromemstore "github.com/shellmind/shellmind-api/memory/store/chromem"
	"github.com/shellmind/shellmind-api/memory/store/pinecone"
	"github.com/shellmind/shellmind-api/notify"
	"github.com/shellmind/shellmind-api/provider"
	"github.com/shellmind/shellmind-api/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[MAIN] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("[MAIN] vector store: %v", err)
	}
	defer store.Close()

	manager, err := memory.NewManager(ctx, store, pseudo.New())
	if err != nil {
		log.Fatalf("[MAIN] memory manager: %v", err)
	}

	client, err := newProvider(cfg)
	if err != nil {
		log.Fatalf("[MAIN] provider: %v", err)
	}

	dispatcher := engine.NewDispatcher(client,
		engine.Config{
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			Timeout:     cfg.RequestTimeout,
		},
		engine.WithMemory(manager),
		engine.WithNotifier(newNotifier(cfg)),
	)

	var deviceFlow server.DeviceFlow
	if cfg.GitHub.ClientID != "" {
		deviceFlow = githubauth.New(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret,
			githubauth.WithScope(cfg.GitHub.Scope))
	} else {
		log.Printf("[MAIN] GITHUB_CLIENT_ID not set, device flow disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(dispatcher, deviceFlow).Router(),
	}

	go func() {
		log.Printf("[MAIN] listening on %s (provider=%s backend=%s)", srv.Addr, cfg.Provider, cfg.VectorBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[MAIN] server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[MAIN] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[MAIN] shutdown: %v", err)
	}

	// Let in-flight background saves finish before the store closes.
	dispatcher.Wait()
}

func newStore(cfg *config.Config) (memory.Store, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendLocal:
		return chromemstore.New()
	default:
		return pinecone.New(pinecone.Config{
			Host:      cfg.Pinecone.IndexHost,
			APIKey:    cfg.Pinecone.APIKey,
			Namespace: cfg.Pinecone.Namespace,
		})
	}
}

func newProvider(cfg *config.Config) (provider.Client, error) {
	switch cfg.Provider {
	case config.ProviderHyperbolic:
		return provider.NewHyperbolic(cfg.HyperbolicAPIKey), nil
	case config.ProviderOpenRouter:
		return provider.NewOpenRouter(cfg.OpenRouterAPIKey), nil
	case config.ProviderAnthropic:
		return provider.NewAnthropic(cfg.AnthropicAPIKey), nil
	default:
		return nil, errors.New("unknown provider " + cfg.Provider)
	}
}

func newNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Resend.APIKey == "" || cfg.Resend.To == "" {
		log.Printf("[MAIN] RESEND_API_KEY not set, failure notifications disabled")
		return notify.Nop{}
	}
	return notify.NewEmailNotifier(cfg.Resend.APIKey, cfg.Resend.From, cfg.Resend.To)
}

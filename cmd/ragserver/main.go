// Command ragserver is the document-grounded RAG HTTP server (§6).
//
// Grounded on bbiangul-go-reason/cmd/server/main.go for its server
// shape — ServeMux with method-prefixed route patterns, an explicit
// middleware chain, a graceful-shutdown signal loop — adapted from that
// teacher's slog-based logging to the plain log/fmt style carried over
// from PerceptivePenguin-MCPRAG-Go/cmd/mcprag/main.go, per the ambient
// logging decision.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vzdr/docuquery-rag/internal/parser"
	"github.com/vzdr/docuquery-rag/internal/rag"
	"github.com/vzdr/docuquery-rag/internal/ratelimit"
	"github.com/vzdr/docuquery-rag/internal/vector"
	"github.com/vzdr/docuquery-rag/pkg/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("ragserver: no .env file loaded: %v", err)
	}

	ragCfg, err := config.LoadRAGConfig()
	if err != nil {
		log.Fatalf("ragserver: loading configuration: %v", err)
	}

	srv, err := buildServer(ragCfg)
	if err != nil {
		log.Fatalf("ragserver: building server: %v", err)
	}

	// RAG_CONFIG_FILE is optional; when set, config.WatchRAGConfig polls it
	// for changes and pushes a reloaded RAGConfig into the running server.
	// Handlers that read s.config() see it on the next request; the clients,
	// caches and limiter built in buildServer keep their startup settings.
	if err := config.WatchRAGConfig(&ragCfg, func(reloaded config.RAGConfig) error {
		srv.setConfig(reloaded)
		log.Printf("ragserver: configuration reloaded from %s", os.Getenv("RAG_CONFIG_FILE"))
		return nil
	}); err != nil {
		log.Printf("ragserver: config watch disabled: %v", err)
	}

	httpServer := &http.Server{
		Addr:         addrFromPort(ragCfg.Port),
		Handler:      srv.router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("ragserver: listening on %s (env=%s)", httpServer.Addr, ragCfg.NodeEnv)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ragserver: server error: %v", err)
		}
	}()

	<-done
	log.Println("ragserver: shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("ragserver: shutdown error: %v", err)
	}
	srv.limiter.Stop()
	log.Println("ragserver: stopped")
}

func addrFromPort(port int) string {
	if port <= 0 {
		port = 3001
	}
	return ":" + strconv.Itoa(port)
}

// server holds every wired collaborator a request handler needs. cfg is
// guarded by cfgMu so a background config reload (see config.WatchRAGConfig
// in main) can swap it in while handlers are reading it concurrently.
type server struct {
	cfgMu     sync.RWMutex
	cfg       config.RAGConfig
	registry  *parser.Registry
	pipeline  *rag.Pipeline
	processor *rag.Processor
	embedder  *rag.EmbeddingClient
	llm       rag.LLMClient
	cache     *rag.ResponseCache
	limiter   *ratelimit.Limiter
	throttler *ratelimit.Throttler
}

// config returns the server's current RAGConfig snapshot.
func (s *server) config() config.RAGConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// setConfig installs a reloaded RAGConfig, taking effect on the next
// request that reads s.config().
func (s *server) setConfig(cfg config.RAGConfig) {
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

func buildServer(ragCfg config.RAGConfig) (*server, error) {
	registry := parser.NewRegistry()

	embedCfg := rag.DefaultEmbeddingConfig()
	embedCfg.APIKey = ragCfg.OpenAIAPIKey
	embedder, err := rag.NewEmbeddingClient(embedCfg)
	if err != nil {
		return nil, err
	}

	llmCfg := rag.DefaultLLMConfig()
	llmCfg.APIKey = ragCfg.OpenAIAPIKey
	llmCfg.OrgID = ragCfg.OpenAIOrgID
	llmCfg.DefaultModel = ragCfg.DefaultAIModel
	llmCfg.DefaultTemperature = float32(ragCfg.DefaultAITemperature)
	llmCfg.DefaultMaxTokens = ragCfg.DefaultAIMaxTokens
	llmCfg.RequestTimeout = ragCfg.AIRequestTimeout()
	llmCfg.MaxRetries = ragCfg.AIMaxRetries
	llmClient, err := rag.NewOpenAILLMClient(llmCfg)
	if err != nil {
		return nil, err
	}

	processorCfg := rag.DefaultProcessorConfig()
	processor := rag.NewProcessor(registry, embedder, processorCfg)

	pipelineCfg := rag.DefaultPipelineConfig()
	pipelineCfg.VectorStore = vector.DefaultConfig()
	pipeline, err := rag.NewPipeline(embedder, processor, pipelineCfg)
	if err != nil {
		return nil, err
	}

	responseCache := rag.NewResponseCache(rag.DefaultResponseCacheConfig())
	limiter := ratelimit.NewLimiter(ratelimit.DefaultPolicies())
	throttler := ratelimit.NewThrottler(5, time.Second)

	return &server{
		cfg:       ragCfg,
		registry:  registry,
		pipeline:  pipeline,
		processor: processor,
		embedder:  embedder,
		llm:       llmClient,
		cache:     responseCache,
		limiter:   limiter,
		throttler: throttler,
	}, nil
}

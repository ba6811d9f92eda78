// Command orchestratord runs the Lucia orchestrator: agent registry,
// router, dispatcher, scheduled-task engine, and the inbound A2A HTTP
// surface, all in one process. Grounded on cmd/hector/main.go's
// assembly order (config load → component managers → registries →
// server) and signal-driven graceful shutdown.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seiggy/lucia/internal/orchestrator/aggregator"
	"github.com/seiggy/lucia/internal/orchestrator/agentbuilder"
	"github.com/seiggy/lucia/internal/orchestrator/agentdef"
	"github.com/seiggy/lucia/internal/orchestrator/agentregistry"
	"github.com/seiggy/lucia/internal/orchestrator/alarmclock"
	"github.com/seiggy/lucia/internal/orchestrator/cache"
	"github.com/seiggy/lucia/internal/orchestrator/config"
	"github.com/seiggy/lucia/internal/orchestrator/cronsvc"
	"github.com/seiggy/lucia/internal/orchestrator/dispatch"
	"github.com/seiggy/lucia/internal/orchestrator/facade"
	"github.com/seiggy/lucia/internal/orchestrator/hub"
	"github.com/seiggy/lucia/internal/orchestrator/modelprovider"
	"github.com/seiggy/lucia/internal/orchestrator/presence"
	"github.com/seiggy/lucia/internal/orchestrator/router"
	"github.com/seiggy/lucia/internal/orchestrator/scheduler"
	"github.com/seiggy/lucia/internal/orchestrator/sessioncache"
	"github.com/seiggy/lucia/internal/orchestrator/toolserver"
	"github.com/seiggy/lucia/internal/orchestrator/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to orchestratord's YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "orchestratord:", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("orchestratord: shutting down")
		cancel()
	}()

	app := build(cfg)

	go app.loader.Run(ctx)
	go app.poller.Run(ctx)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: app.mux}
	go func() {
		slog.Info("orchestratord: listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("orchestratord: server error", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

type application struct {
	mux    *chi.Mux
	loader *agentbuilder.Loader
	poller *scheduler.Poller
}

func build(cfg *config.Config) *application {
	repo := agentdef.NewRepository()
	if err := agentdef.DefaultSeeder().Seed(repo); err != nil {
		slog.Error("orchestratord: seeding built-in agents failed", "error", err)
	}

	resolver := modelprovider.NewResolver()
	toolMgr := toolserver.NewManager()
	traceStore := tracing.NewRingStore(1000)
	tracing.RegisterMetrics(prometheus.DefaultRegisterer)

	reg := agentregistry.New()
	builder := &agentbuilder.Builder{Repo: repo, Resolver: resolver, ToolMgr: toolMgr, TraceStore: traceStore}
	loader := agentbuilder.NewLoader(builder, reg)
	loader.RebuildAll(context.Background())

	isOrchestrator := func(id string) bool {
		def, ok := repo.GetAgent(id)
		return ok && def.IsOrchestrator
	}

	chat, err := resolver.CreateChatClient(defaultChatProvider(repo))
	if err != nil {
		slog.Error("orchestratord: router chat client unavailable, routing will always fall back", "error", err)
	}

	rt := router.New(reg, chat, isOrchestrator, router.Options{
		Temperature:          cfg.Router.Temperature,
		MaxAttempts:          cfg.Router.MaxAttempts,
		ConfidenceThreshold:  cfg.Router.ConfidenceThreshold,
		Timeout:              cfg.RouterTimeout(),
		FallbackAgentID:      cfg.Router.FallbackAgentID,
		ClarificationAgentID: cfg.Router.ClarificationAgentID,
	})

	dispatcher := dispatch.New(reg, http.DefaultClient, dispatch.Options{})
	sessions := sessioncache.New(cfg.SessionIdleTTL())
	respCache := cache.New(cfg.Cache.MaxEntries)

	f := &facade.Facade{
		Router:          rt,
		Dispatcher:      dispatcher,
		Sessions:        sessions,
		Cache:           respCache,
		TraceStore:      traceStore,
		FallbackMessage: aggregator.DefaultFallbackMessage,
	}

	hubClient := hub.New(hub.Config{BaseURL: cfg.Hub.BaseURL, BearerToken: cfg.Hub.BearerToken, InsecureSkipVerify: cfg.Hub.InsecureSkipVerify})
	presenceResolver := presence.NewHTTPResolver(cfg.Hub.BaseURL, http.DefaultClient)
	clocks := alarmclock.NewRepository()

	taskStore := scheduler.NewStore()
	poller := scheduler.NewPoller(taskStore, dispatchFire(hubClient, presenceResolver, clocks, f), func(t *scheduler.Task) {
		slog.Info("orchestratord: task terminal", "task", t.ID, "status", t.Status)
	})
	poller.Interval = cfg.PollInterval()

	initializeClockSchedules(clocks)

	mux := newMux(reg, f, respCache)
	return &application{mux: mux, loader: loader, poller: poller}
}

func defaultChatProvider(repo *agentdef.Repository) agentdef.ModelProvider {
	p, ok := repo.GetProvider(agentdef.DefaultChatProviderID)
	if !ok {
		return agentdef.ModelProvider{ID: agentdef.DefaultChatProviderID, Type: agentdef.ProviderOpenAICompatible}
	}
	return p
}

func initializeClockSchedules(clocks *alarmclock.Repository) {
	for _, c := range clocks.EnabledClocks() {
		cronsvc.InitializeNextFireAt(c)
	}
}

// dispatchFire routes a scheduler.Task to the Timer/Alarm/AgentTask
// handler matching its Type, per spec.md §4.10.1-3.
func dispatchFire(hubClient *hub.Client, presenceResolver presence.Resolver, clocks *alarmclock.Repository, f *facade.Facade) scheduler.Fire {
	timerFire := scheduler.FireTimer(hubClient)
	alarmFire := scheduler.FireAlarm(hubClient, presenceResolver, clocks, time.Now)
	agentFire := scheduler.FireAgentTask(f, "scheduler")

	return func(ctx context.Context, t *scheduler.Task) error {
		switch t.Type {
		case scheduler.TypeTimer:
			return timerFire(ctx, t)
		case scheduler.TypeAlarm:
			return alarmFire(ctx, t)
		case scheduler.TypeAgentTask:
			return agentFire(ctx, t)
		default:
			return fmt.Errorf("scheduler: unknown task type %q", t.Type)
		}
	}
}

func newMux(reg *agentregistry.Registry, f *facade.Facade, respCache *cache.Cache) *chi.Mux {
	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.Handler())

	mux.Get("/a2a/{agentID}/.well-known/agent.json", func(w http.ResponseWriter, r *http.Request) {
		entry, err := reg.Lookup(chi.URLParam(r, "agentID"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entry.Card)
	})

	mux.Post("/a2a/{agentID}", a2aMessageSendHandler(f))

	mux.Delete("/admin/cache/{namespace}", func(w http.ResponseWriter, r *http.Request) {
		respCache.Clear(chi.URLParam(r, "namespace"))
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

type jsonRPCEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  struct {
		Message struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
			ContextID string `json:"contextId"`
		} `json:"message"`
	} `json:"params"`
}

func a2aMessageSendHandler(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID := chi.URLParam(r, "agentID")

		var env jsonRPCEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if env.Method != "message/send" {
			http.Error(w, "unsupported method", http.StatusNotImplemented)
			return
		}

		var text string
		if len(env.Params.Message.Parts) > 0 {
			text = env.Params.Message.Parts[0].Text
		}
		sessionID := env.Params.Message.ContextID
		if sessionID == "" {
			sessionID = agentID
		}

		result, err := f.Handle(r.Context(), facade.Request{SessionID: sessionID, Prompt: text, TargetAgentID: agentID})
		if err != nil {
			writeRPCError(w, env.ID, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      env.ID,
			"result":  map[string]any{"text": result.Message},
		})
	}
}

func writeRPCError(w http.ResponseWriter, id json.RawMessage, err error) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]any{"code": -32000, "message": err.Error()},
	})
}

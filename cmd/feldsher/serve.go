package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feldsher/feldsher/internal/agent"
	"github.com/feldsher/feldsher/internal/clinic"
	"github.com/feldsher/feldsher/internal/config"
	"github.com/feldsher/feldsher/internal/history"
	"github.com/feldsher/feldsher/internal/httpapi"
	"github.com/feldsher/feldsher/internal/mcpsrv"
	"github.com/feldsher/feldsher/internal/notify"
	"github.com/feldsher/feldsher/internal/provider"
	"github.com/feldsher/feldsher/internal/scheduler"
	"github.com/feldsher/feldsher/internal/session"
	"github.com/feldsher/feldsher/internal/toolreg"
	"github.com/feldsher/feldsher/internal/tools"
)

func runServe(configPath string) {
	if err := config.LoadDotenv(".env"); err != nil {
		slog.Warn("loading .env failed", slog.Any("error", err))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("configuration invalid", slog.Any("error", err))
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	db, err := clinic.Open(cfg.DBPath)
	if err != nil {
		slog.Error("opening clinic database failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := db.Seed(ctx); err != nil {
		slog.Error("seeding doctors failed", slog.Any("error", err))
		os.Exit(1)
	}

	hist, err := history.New(db.Handle())
	if err != nil {
		slog.Error("opening history store failed", slog.Any("error", err))
		os.Exit(1)
	}

	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		slog.Error("telegram setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	deps := &tools.Deps{
		Clinic:   db,
		Slack:    notify.NewSlack(cfg.Slack.WebhookURL),
		Telegram: tg,
		Mailer:   notify.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From),
	}

	registry := toolreg.NewRegistry()
	tools.RegisterAll(registry, deps)
	slog.Info("tool registry initialized",
		slog.Int("patient_tools", len(registry.VisibleNames(toolreg.RolePatient))),
		slog.Int("doctor_tools", len(registry.VisibleNames(toolreg.RoleDoctor))))

	chain, err := buildChain(cfg.Providers)
	if err != nil {
		slog.Error("provider chain invalid", slog.Any("error", err))
		os.Exit(1)
	}

	sessions := session.NewStore(loadHistory(hist), func(role toolreg.Role, callerContext string) string {
		return agent.Compose(role, callerContext, time.Now())
	})
	orchestrator := agent.New(chain, registry, sessions, hist)

	sched, err := scheduler.New(cfg.ReportCron, deps)
	if err != nil {
		slog.Error("scheduler setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	api := httpapi.New(orchestrator, db, sessions, version)
	mux := api.Routes()
	mux.Handle("GET /metrics", promhttp.Handler())

	if cfg.MCP.Enabled {
		mcpHandler := mcpsrv.Handler(mcpsrv.Build(registry, toolreg.RoleDoctor, version))
		go serveHTTP(ctx, &http.Server{
			Addr:         cfg.MCP.Addr,
			Handler:      mcpHandler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		}, "mcp server")
	}

	serveHTTP(ctx, &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}, "chat api")
}

func buildChain(candidates []config.Candidate) (*provider.Chain, error) {
	out := make([]provider.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Model == "" {
			return nil, fmt.Errorf("provider %q has no model", c.Name)
		}
		var p provider.Provider
		switch c.Kind {
		case "openai":
			p = provider.NewOpenAI(c.APIKey, c.APIURL, c.Model)
		default:
			if c.APIURL == "" {
				return nil, fmt.Errorf("provider %q has no api_url", c.Name)
			}
			p = provider.NewOpenAICompat(c.APIURL, c.APIKey, c.Model)
		}
		out = append(out, provider.Candidate{Name: c.Name, Provider: p})
		slog.Info("provider candidate registered",
			slog.String("name", c.Name), slog.String("model", c.Model))
	}
	return provider.NewChain(0, out...), nil
}

func loadHistory(hist *history.Store) session.HistoryLoader {
	return func(ctx context.Context, sessionID string) ([]session.TurnPair, error) {
		entries, err := hist.LoadAll(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		pairs := make([]session.TurnPair, 0, len(entries))
		for _, e := range entries {
			pairs = append(pairs, session.TurnPair{UserText: e.UserText, AssistantText: e.AssistantText})
		}
		return pairs, nil
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

func serveHTTP(ctx context.Context, srv *http.Server, name string) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", slog.String("server", name), slog.Any("error", err))
		}
	}()

	slog.Info("listening", slog.String("server", name), slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", slog.String("server", name), slog.Any("error", err))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"EnPeak/internal/api"
	"EnPeak/internal/community"
	"EnPeak/internal/config"
	"EnPeak/internal/llm"
	"EnPeak/internal/llm/provider"
	"EnPeak/internal/moderation"
	"EnPeak/internal/observability/alerting"
	"EnPeak/internal/observability/metrics"
	"EnPeak/internal/observability/tracing"
	"EnPeak/internal/roleplay"
	"EnPeak/internal/scenario"
	"EnPeak/internal/tutor"
	"EnPeak/pkg/logger"
)

func newServeCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP API 服务",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := initLogger(cfg); err != nil {
		return err
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.Runtime.DataDir, 0o755); err != nil {
		return err
	}

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint:    cfg.Observability.TracingEndpoint,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.L().Warn("关闭链路追踪失败", slog.String("error", err.Error()))
		}
	}()

	notifiers := []alerting.Notifier{alerting.LogNotifier{}}
	if cfg.Observability.AlertWebhookURL != "" {
		notifiers = append(notifiers, &alerting.WebhookNotifier{URL: cfg.Observability.AlertWebhookURL})
	}
	dispatcher := alerting.NewFanout(notifiers...)

	// 初始化推理引擎，没有凭据时以降级模式运行。
	var client llm.Client
	engine, err := provider.NewEngine(ctx, cfg.LLM, alerting.InferenceExhausted(dispatcher))
	switch {
	case err == nil:
		client = engine
		logger.L().Info("推理服务已就绪", slog.String("provider", engine.Provider()), slog.String("model", engine.Model()))
	case errors.Is(err, provider.ErrNoCredentials):
		logger.L().Warn("未配置推理服务，生成式功能将不可用")
	default:
		return err
	}

	b := &backends{cfg: cfg}
	defer b.close()

	sessions, err := b.sessionStore(ctx)
	if err != nil {
		return err
	}
	metrics.SetSessionIdleTTL(b.sessionTTL())
	communityStore, err := b.communityStore(ctx)
	if err != nil {
		return err
	}
	history, err := b.tutorHistory(ctx)
	if err != nil {
		return err
	}
	archive, err := b.reportArchive(ctx)
	if err != nil {
		return err
	}
	publisher, err := b.eventPublisher(ctx)
	if err != nil {
		return err
	}

	gate := moderation.NewKeywordGate()
	communitySvc := community.NewService(communityStore, gate)

	repos := []scenario.Repository{}
	files, err := scenario.LoadFileRepository(ctx, cfg.Scenarios.Dir)
	if err != nil {
		logger.L().Warn("加载内置场景失败，仅提供社区场景", slog.String("dir", cfg.Scenarios.Dir), slog.String("error", err.Error()))
	} else {
		logger.L().Info("内置场景已加载", slog.Int("count", files.Len()))
		repos = append(repos, files)
	}
	repos = append(repos, communitySvc.Repository())

	orchestrator := roleplay.New(scenario.NewChainRepository(repos...), sessions,
		roleplay.WithInference(client),
		roleplay.WithArchive(archive),
		roleplay.WithPublisher(publisher),
		roleplay.WithPlayRecorder(communitySvc),
	)

	server := api.NewServer(cfg.Server.Address, api.Services{
		Roleplay:  orchestrator,
		Tutor:     tutor.NewService(client, history),
		Community: communitySvc,
		Authoring: community.NewAuthoring(client, gate),
	},
		api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		api.WithShutdownTimeout(time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second),
		api.WithMetricsEndpoint(cfg.Observability.MetricsEnabled && cfg.Observability.MetricsAddress == ""),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	if cfg.Observability.MetricsEnabled && cfg.Observability.MetricsAddress != "" {
		g.Go(func() error {
			return metrics.StartServer(gctx, cfg.Observability.MetricsAddress)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.L().Info("enpeakd 已退出")
	return nil
}

func initLogger(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.Outputs,
		Service:     "enpeakd",
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
			MaxAgeDays: cfg.Logging.Audit.MaxAgeDays,
		},
	})
}

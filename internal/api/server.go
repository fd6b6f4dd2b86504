package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"EnPeak/internal/community"
	"EnPeak/internal/interpret"
	"EnPeak/internal/observability/metrics"
	"EnPeak/internal/report"
	"EnPeak/internal/roleplay"
	"EnPeak/internal/scenario"
	"EnPeak/internal/session"
	"EnPeak/internal/tutor"
	"EnPeak/pkg/logger"
)

const (
	defaultMaxBodyBytes    = 1 << 20
	defaultShutdownTimeout = 10 * time.Second
)

// RoleplayService 是角色扮演会话编排的接口。
type RoleplayService interface {
	ListScenarios(ctx context.Context, filter scenario.Filter) ([]scenario.Summary, error)
	StartSession(ctx context.Context, scenarioID, userLevel string) (*roleplay.StartResult, error)
	Advance(ctx context.Context, sessionID, userText string) (*roleplay.TurnResult, error)
	End(ctx context.Context, sessionID string) (*report.Report, error)
	Session(ctx context.Context, sessionID string) (*session.Session, error)
	Reports(ctx context.Context, limit int) ([]report.Report, error)
}

// TutorService 是自由对话与语言工具的接口。
type TutorService interface {
	Chat(ctx context.Context, req tutor.ChatRequest) (*tutor.ChatResult, error)
	ClearConversation(ctx context.Context, conversationID string) (bool, error)
	Translate(ctx context.Context, text, targetLang string) (string, error)
	Grammar(ctx context.Context, text, situation string) (interpret.GrammarFeedback, error)
	QuickTip(ctx context.Context, text string) string
}

// CommunityService 是社区场景目录的接口。
type CommunityService interface {
	Publish(ctx context.Context, draft *community.Scenario, author string) (*community.Scenario, error)
	List(ctx context.Context, opts community.ListOptions) (*community.ListResult, error)
	Get(ctx context.Context, id string) (*community.Scenario, error)
	Like(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id, author string) error
}

// AuthoringService 是场景创作对话的接口。
type AuthoringService interface {
	Create(ctx context.Context, dc community.DraftContext) (*community.CreateResult, error)
	Refine(ctx context.Context, dc community.DraftContext, messages []community.Message) (*community.RefineResult, error)
	Finalize(ctx context.Context, dc community.DraftContext, messages []community.Message, title string) (*community.FinalizeResult, error)
}

// Services 汇总 API 依赖的业务服务，未配置的服务对应接口返回 503。
type Services struct {
	Roleplay  RoleplayService
	Tutor     TutorService
	Community CommunityService
	Authoring AuthoringService
}

// Server 提供 HTTP API。
type Server struct {
	addr            string
	services        Services
	maxBodyBytes    int64
	shutdownTimeout time.Duration
	exposeMetrics   bool
}

// Option 自定义 Server。
type Option func(*Server)

// WithMaxBodyBytes 限制请求体大小。
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithShutdownTimeout 设置优雅关闭的等待时间。
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithMetricsEndpoint 控制是否在 API 端口暴露 /metrics。
func WithMetricsEndpoint(enabled bool) Option {
	return func(s *Server) {
		s.exposeMetrics = enabled
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, services Services, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		services:        services,
		maxBodyBytes:    defaultMaxBodyBytes,
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler 返回注册了全部路由的处理器。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, h))
	}

	route("GET /healthz", s.handleHealth)
	if s.exposeMetrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	route("GET /api/roleplay/scenarios", s.handleListScenarios)
	route("POST /api/roleplay/start", s.handleStartSession)
	route("POST /api/roleplay/turn", s.handleTurn)
	route("POST /api/roleplay/end", s.handleEndSession)
	route("GET /api/roleplay/sessions/{id}", s.handleGetSession)
	route("GET /api/roleplay/reports", s.handleReports)

	route("POST /api/chat", s.handleChat)
	route("DELETE /api/chat/{id}", s.handleClearChat)
	route("POST /api/translate", s.handleTranslate)
	route("POST /api/feedback/grammar", s.handleGrammar)
	route("POST /api/feedback/quick-tip", s.handleQuickTip)

	route("POST /api/scenario/create", s.handleAuthoringCreate)
	route("POST /api/scenario/refine", s.handleAuthoringRefine)
	route("POST /api/scenario/finalize", s.handleAuthoringFinalize)

	route("GET /api/community/scenarios", s.handleCommunityList)
	route("POST /api/community/scenarios", s.handleCommunityPublish)
	route("GET /api/community/scenarios/{id}", s.handleCommunityGet)
	route("DELETE /api/community/scenarios/{id}", s.handleCommunityDelete)
	route("POST /api/community/scenarios/{id}/like", s.handleCommunityLike)
	route("POST /api/community/roleplay/start", s.handleStartSession)
	route("POST /api/community/roleplay/turn", s.handleTurn)
	route("POST /api/community/roleplay/end", s.handleEndSession)

	return limitBody(s.maxBodyBytes, mux)
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	// 配置 HTTP 服务器。
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 启动服务器并监听关闭信号。
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.L().Info("API 服务已启动", slog.String("address", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L().Warn("API 服务关闭超时", slog.String("error", err.Error()))
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

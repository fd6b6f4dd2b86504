package roleplay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"EnPeak/internal/community"
	xerrors "EnPeak/internal/errors"
	"EnPeak/internal/interpret"
	"EnPeak/internal/llm"
	"EnPeak/internal/observability/metrics"
	"EnPeak/internal/report"
	"EnPeak/internal/scenario"
	"EnPeak/internal/session"
	"EnPeak/internal/textnorm"
	"EnPeak/pkg/logger"
)

const (
	// DefaultCompletionMessage 在场景没有编写结束语时使用。
	DefaultCompletionMessage = "Great job! You've completed this conversation."
	// DefaultOpeningLine 在第一阶段缺少开场白时使用。
	DefaultOpeningLine = "Hello! Let's start our conversation."

	retryPrefix         = "Sorry, I didn't quite catch that. "
	defaultUserLevel    = scenario.DifficultyIntermediate
	defaultWindow       = 6
	maxUserMessageRunes = 2000
	turnsPerStage       = 2
	fallbackScore       = 70
	reportVocabulary    = 5
)

// PlayRecorder 在社区场景开始时累计游玩次数。
type PlayRecorder interface {
	RecordPlay(ctx context.Context, scenarioID string) error
}

// StartResult 是开始会话时返回的开场信息。
type StartResult struct {
	SessionID        string           `json:"session_id"`
	Scenario         scenario.Summary `json:"scenario"`
	AIMessage        string           `json:"ai_message"`
	CurrentStage     int              `json:"current_stage"`
	TotalStages      int              `json:"total_stages"`
	LearningTip      string           `json:"learning_tip,omitempty"`
	SuggestedReplies []string         `json:"suggested_responses"`
}

// TurnResult 是一轮对话之后返回给调用方的内容。
type TurnResult struct {
	SessionID        string   `json:"session_id"`
	AIMessage        string   `json:"ai_message"`
	CurrentStage     int      `json:"current_stage"`
	TotalStages      int      `json:"total_stages"`
	LearningTip      string   `json:"learning_tip,omitempty"`
	SuggestedReplies []string `json:"suggested_responses"`
	IsComplete       bool     `json:"is_complete"`
}

// Orchestrator 驱动学习者按阶段完成场景对话。
type Orchestrator struct {
	scenarios scenario.Repository
	sessions  session.Store
	client    llm.Client
	archive   report.Archive
	publisher report.Publisher
	plays     PlayRecorder
	locks     *keyedMutex
	window    int
	now       func() time.Time
	newID     func() string
}

// Option 定义可选的 Orchestrator 配置。
type Option func(*Orchestrator)

// WithInference 配置推理客户端。生成式场景与模型报告依赖它。
func WithInference(client llm.Client) Option {
	return func(o *Orchestrator) {
		o.client = client
	}
}

// WithArchive 配置报告归档。
func WithArchive(archive report.Archive) Option {
	return func(o *Orchestrator) {
		o.archive = archive
	}
}

// WithPublisher 配置会话结束事件的投递方式。
func WithPublisher(publisher report.Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = publisher
	}
}

// WithPlayRecorder 配置社区场景的游玩计数。
func WithPlayRecorder(recorder PlayRecorder) Option {
	return func(o *Orchestrator) {
		o.plays = recorder
	}
}

// WithHistoryWindow 设置生成式回复时参考的最近记录条数。
func WithHistoryWindow(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.window = n
		}
	}
}

// WithClock 替换时间来源。
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator 替换会话标识生成函数。
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// New 创建 Orchestrator。
func New(scenarios scenario.Repository, sessions session.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		scenarios: scenarios,
		sessions:  sessions,
		locks:     newKeyedMutex(),
		window:    defaultWindow,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// ListScenarios 返回满足筛选条件的场景概要。
func (o *Orchestrator) ListScenarios(ctx context.Context, filter scenario.Filter) ([]scenario.Summary, error) {
	return o.scenarios.List(ctx, filter)
}

// StartSession 加载场景并创建会话，返回第一阶段的开场白。
func (o *Orchestrator) StartSession(ctx context.Context, scenarioID, userLevel string) (*StartResult, error) {
	sc, err := o.scenarios.Load(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	if sc == nil || sc.StageCount() == 0 {
		return nil, scenario.ErrNotFound
	}
	if strings.TrimSpace(userLevel) == "" {
		userLevel = defaultUserLevel
	}

	id := o.newID()
	unlock := o.locks.Lock(id)
	defer unlock()

	// 以第一阶段的开场白作为第一条记录。
	first := sc.Stage(1)
	opening := strings.TrimSpace(first.OpeningLine)
	if opening == "" {
		opening = DefaultOpeningLine
	}
	now := o.now()
	sess := &session.Session{
		ID:           id,
		ScenarioID:   sc.ID,
		Scenario:     sc,
		CurrentStage: 1,
		UserLevel:    userLevel,
		CreatedAt:    now,
	}
	sess.Append(session.SpeakerPartner, opening, now)
	if err := o.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	metrics.SessionStarted(id)
	logger.Audit().Info("roleplay session started",
		slog.String("session_id", id),
		slog.String("scenario_id", sc.ID),
		slog.String("mode", string(sc.Mode)))
	if o.plays != nil && sc.Category == community.CategoryCommunity {
		if err := o.plays.RecordPlay(ctx, sc.ID); err != nil {
			logger.Session(id, sc.ID).Warn("记录社区场景游玩次数失败", slog.String("error", err.Error()))
		}
	}

	return &StartResult{
		SessionID:        id,
		Scenario:         sc.Summarize(),
		AIMessage:        opening,
		CurrentStage:     1,
		TotalStages:      sc.StageCount(),
		LearningTip:      first.LearningTip,
		SuggestedReplies: stageSuggestions(first, opening),
	}, nil
}

// Advance 处理一条用户发言。失败时会话保持不变，调用方可以安全重试。
func (o *Orchestrator) Advance(ctx context.Context, sessionID, userText string) (*TurnResult, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil, xerrors.New(xerrors.CodeInvalidInput, "用户发言不能为空")
	}
	if utf8.RuneCountInString(userText) > maxUserMessageRunes {
		return nil, xerrors.New(xerrors.CodeInvalidInput, fmt.Sprintf("用户发言不能超过 %d 个字符", maxUserMessageRunes))
	}

	unlock := o.locks.Lock(sessionID)
	defer unlock()

	// 调用方断开后本轮仍会完成并写回会话，推理耗时由引擎的超时与重试次数限定。
	ctx = context.WithoutCancel(ctx)
	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.StageCount() == 0 {
		return nil, scenario.ErrNotFound
	}

	var result *TurnResult
	if sess.Scenario.Mode == scenario.ModeGenerative {
		result, err = o.advanceGenerative(ctx, sess, userText)
	} else {
		result = o.advanceScripted(sess, userText)
	}
	if err != nil {
		return nil, err
	}

	if err := o.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}
	metrics.SessionActive(sess.ID)
	return result, nil
}

// advanceScripted 按当前阶段的关键字判断是否进入下一阶段。
func (o *Orchestrator) advanceScripted(sess *session.Session, userText string) *TurnResult {
	sc := sess.Scenario
	now := o.now()
	sess.Append(session.SpeakerUser, userText, now)

	result := &TurnResult{SessionID: sess.ID, TotalStages: sc.StageCount()}
	current := sc.Stage(sess.CurrentStage)

	switch {
	case sess.Complete:
		result.AIMessage = completionMessage(sc)
		result.SuggestedReplies = interpret.DefaultSuggestionsFor(result.AIMessage)
	case accepts(current, userText):
		if sess.CurrentStage >= sc.StageCount() {
			sess.Complete = true
			result.AIMessage = completionMessage(sc)
			result.SuggestedReplies = interpret.DefaultSuggestionsFor(result.AIMessage)
			break
		}
		sess.CurrentStage++
		next := sc.Stage(sess.CurrentStage)
		result.AIMessage = next.OpeningLine
		result.LearningTip = next.LearningTip
		result.SuggestedReplies = stageSuggestions(next, next.OpeningLine)
	default:
		result.AIMessage = retryPrefix + current.OpeningLine
		result.LearningTip = current.LearningTip
		result.SuggestedReplies = stageSuggestions(current, current.OpeningLine)
	}

	sess.Append(session.SpeakerPartner, result.AIMessage, now)
	result.CurrentStage = sess.CurrentStage
	result.IsComplete = sess.Complete
	return result
}

// advanceGenerative 由模型生成回复，每两轮用户发言推进一个阶段。
func (o *Orchestrator) advanceGenerative(ctx context.Context, sess *session.Session, userText string) (*TurnResult, error) {
	if o.client == nil {
		return nil, xerrors.New(xerrors.CodeUnavailable, "推理服务未初始化")
	}
	sc := sess.Scenario
	current := sc.Stage(sess.CurrentStage)

	// 调用模型生成回复，失败时直接返回，会话不做任何修改。
	resp, err := o.client.Generate(ctx, llm.Request{
		Prompt:       o.generativePrompt(sess, current, userText),
		SystemPrompt: generativeSystemPrompt,
		MaxTokens:    200,
		Temperature:  0.8,
	})
	if err != nil {
		return nil, err
	}
	turn := interpret.StructuredTurn(resp.Text)

	now := o.now()
	sess.Append(session.SpeakerUser, userText, now)
	sess.Append(session.SpeakerPartner, turn.Reply, now)

	// 根据用户发言次数计算阶段。
	previous := sess.CurrentStage
	if !sess.Complete {
		userTurns := sess.UserTurnCount()
		sess.CurrentStage = min(sc.StageCount(), userTurns/turnsPerStage+1)
		sess.Complete = userTurns >= sc.StageCount()*turnsPerStage
	}

	stage := sc.Stage(sess.CurrentStage)
	suggestions := turn.Suggestions
	if sess.CurrentStage != previous && len(stage.SuggestedReplies) > 0 {
		suggestions = append([]string(nil), stage.SuggestedReplies...)
	}
	return &TurnResult{
		SessionID:        sess.ID,
		AIMessage:        turn.Reply,
		CurrentStage:     sess.CurrentStage,
		TotalStages:      sc.StageCount(),
		LearningTip:      stage.LearningTip,
		SuggestedReplies: suggestions,
		IsComplete:       sess.Complete,
	}, nil
}

func (o *Orchestrator) generativePrompt(sess *session.Session, stage scenario.Stage, userText string) string {
	sc := sess.Scenario
	name := stage.Name
	if name == "" {
		name = fmt.Sprintf("Stage %d", stage.Ordinal)
	}
	objective := stage.ObjectiveHint
	if objective == "" {
		objective = "Continue the conversation naturally"
	}
	difficulty := orDefault(sc.Difficulty, sess.UserLevel)
	return fmt.Sprintf(generativePrompt,
		partnerRole(sc),
		sc.Title,
		orDefault(sc.Place, "Not specified"),
		orDefault(sc.Situation, sc.Description),
		difficulty,
		name, sess.CurrentStage, sc.StageCount(),
		objective,
		renderHistory(sc, sess.Recent(o.window)),
		userText,
		difficulty,
	)
}

// End 生成学习报告并删除会话。归档与事件投递失败只记录日志。
func (o *Orchestrator) End(ctx context.Context, sessionID string) (*report.Report, error) {
	unlock := o.locks.Lock(sessionID)
	defer unlock()

	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	draft, degraded := o.draftReport(ctx, sess)
	if err := o.sessions.Delete(ctx, sessionID); err != nil {
		return nil, err
	}

	rep := report.Report{
		SessionID:            sess.ID,
		ScenarioID:           sess.ScenarioID,
		ScenarioTitle:        scenarioTitle(sess),
		TotalTurns:           sess.UserTurnCount(),
		Completed:            sess.Complete,
		OverallScore:         draft.OverallScore,
		Strengths:            draft.Strengths,
		AreasToImprove:       draft.AreasToImprove,
		VocabularyHighlights: draft.VocabularyHighlights,
		GrammarNotes:         nonNil(draft.GrammarNotes),
		RecommendedPractice:  nonNil(draft.RecommendedPractice),
		Encouragement:        draft.Encouragement,
		Degraded:             degraded,
		CreatedAt:            o.now(),
	}

	metrics.SessionEnded(rep.SessionID, degraded)
	logger.Audit().Info("roleplay session ended",
		slog.String("session_id", rep.SessionID),
		slog.String("scenario_id", rep.ScenarioID),
		slog.Int("total_turns", rep.TotalTurns),
		slog.Int("overall_score", rep.OverallScore),
		slog.Bool("degraded", degraded))

	if o.archive != nil {
		if err := o.archive.Save(ctx, rep); err != nil {
			logger.Session(rep.SessionID, rep.ScenarioID).Warn("归档会话报告失败", slog.String("error", err.Error()))
		}
	}
	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, report.NewSessionEnded(rep)); err != nil {
			logger.Session(rep.SessionID, rep.ScenarioID).Warn("投递会话结束事件失败", slog.String("error", err.Error()))
		}
	}
	return &rep, nil
}

func (o *Orchestrator) draftReport(ctx context.Context, sess *session.Session) (interpret.ReportDraft, bool) {
	fallback := fallbackReport(sess)
	if o.client == nil {
		return fallback, true
	}

	sc := sess.Scenario
	resp, err := o.client.Generate(ctx, llm.Request{
		Prompt:      fmt.Sprintf(sessionReportPrompt, scenarioTitle(sess), orDefault(sc.Difficulty, sess.UserLevel), renderHistory(sc, sess.History)),
		MaxTokens:   500,
		Temperature: 0.3,
	})
	if err != nil {
		logger.Session(sess.ID, sess.ScenarioID).Warn("生成会话报告失败，使用默认报告", slog.String("error", err.Error()))
		return fallback, true
	}
	return interpret.Report(resp.Text, fallback)
}

// Session 返回会话的只读副本。
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

// Reports 返回最近归档的报告，未配置归档时返回空列表。
func (o *Orchestrator) Reports(ctx context.Context, limit int) ([]report.Report, error) {
	if o.archive == nil {
		return []report.Report{}, nil
	}
	return o.archive.Latest(ctx, report.NormalizeLimit(limit))
}

func fallbackReport(sess *session.Session) interpret.ReportDraft {
	vocabulary := []string{}
	if sess.Scenario != nil {
		vocabulary = sess.Scenario.VocabularyWords(reportVocabulary)
	}
	return interpret.ReportDraft{
		OverallScore:         fallbackScore,
		Strengths:            []string{"You completed the conversation!", "Good effort in practicing"},
		AreasToImprove:       []string{"Try using more varied vocabulary", "Practice natural responses"},
		VocabularyHighlights: vocabulary,
		GrammarNotes:         []string{},
		RecommendedPractice:  []string{},
		Encouragement:        "Great job practicing! Keep it up! 잘했어요! 계속 연습하세요!",
	}
}

func accepts(stage scenario.Stage, userText string) bool {
	if len(stage.AcceptanceKeywords) == 0 {
		return true
	}
	for _, kw := range stage.AcceptanceKeywords {
		if strings.TrimSpace(kw) != "" && textnorm.ContainsFold(userText, kw) {
			return true
		}
	}
	return false
}

func stageSuggestions(stage scenario.Stage, line string) []string {
	if len(stage.SuggestedReplies) > 0 {
		return append([]string(nil), stage.SuggestedReplies...)
	}
	return interpret.DefaultSuggestionsFor(line)
}

func completionMessage(sc *scenario.Scenario) string {
	if msg := strings.TrimSpace(sc.CompletionMessage); msg != "" {
		return msg
	}
	return DefaultCompletionMessage
}

func partnerRole(sc *scenario.Scenario) string {
	return orDefault(sc.Roles.Partner, "AI")
}

func renderHistory(sc *scenario.Scenario, turns []session.Turn) string {
	role := partnerRole(sc)
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		speaker := role
		if turn.Speaker == session.SpeakerUser {
			speaker = "User"
		}
		lines = append(lines, speaker+": "+turn.Text)
	}
	return strings.Join(lines, "\n")
}

func scenarioTitle(sess *session.Session) string {
	if sess.Scenario == nil {
		return sess.ScenarioID
	}
	return sess.Scenario.Title
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

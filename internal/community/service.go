package community

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "EnPeak/internal/errors"
	"EnPeak/internal/moderation"
	"EnPeak/internal/scenario"
	"EnPeak/pkg/logger"
)

const (
	SortPopular  = "popular"
	SortRecent   = "recent"
	SortBeginner = "beginner"

	defaultListLimit = 20
	maxListLimit     = 100
)

// ListOptions 控制社区列表的排序与数量。
type ListOptions struct {
	Sort  string
	Limit int
}

// ListResult 是社区列表查询结果，Total 为截断前的数量。
type ListResult struct {
	Scenarios []*Scenario `json:"scenarios"`
	Total     int         `json:"total"`
}

// Service 实现社区场景的发布、浏览、点赞与删除，同时作为场景仓库供角色扮演使用。
type Service struct {
	store Store
	gate  moderation.Gate
	now   func() time.Time
}

// Option 自定义 Service。
type Option func(*Service)

// WithClock 替换时间来源。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService 创建社区服务。
func NewService(store Store, gate moderation.Gate, opts ...Option) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	svc := &Service{store: store, gate: gate, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Publish 审核并发布场景，审核通过即自动批准。
func (s *Service) Publish(ctx context.Context, draft *Scenario, author string) (*Scenario, error) {
	if draft == nil {
		return nil, xerrors.New(xerrors.CodeInvalidInput, "scenario 不能为空")
	}
	if err := moderation.Require(s.gate, draft.Title, draft.LocalizedTitle, draft.Place, draft.Situation); err != nil {
		return nil, err
	}

	published := draft.Clone()
	published.ID = strings.TrimSpace(published.ID)
	if published.ID == "" {
		published.ID = "community_" + shortID()
	}
	if strings.TrimSpace(published.Title) == "" {
		published.Title = "Untitled"
	}
	if published.Difficulty == "" {
		published.Difficulty = scenario.DifficultyIntermediate
	}
	published.Author = strings.TrimSpace(author)
	if published.Author == "" {
		published.Author = "Anonymous"
	}
	published.Likes = 0
	published.Plays = 0
	published.CreatedAt = s.now().UTC()
	published.Approved = true
	if published.Tags == nil {
		published.Tags = []string{}
	}
	if err := published.ToScenario().Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, published); err != nil {
		return nil, err
	}
	logger.Audit().Info("community scenario published",
		slog.String("scenario_id", published.ID),
		slog.String("author", published.Author))
	return published, nil
}

// List 返回社区场景列表。
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	switch opts.Sort {
	case SortPopular, "":
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Popularity() > items[j].Popularity()
		})
	case SortBeginner:
		filtered := items[:0]
		for _, item := range items {
			if item.Difficulty == scenario.DifficultyBeginner {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	total := len(items)
	if len(items) > limit {
		items = items[:limit]
	}
	return &ListResult{Scenarios: items, Total: total}, nil
}

// Get 返回场景并累计一次浏览。
func (s *Service) Get(ctx context.Context, id string) (*Scenario, error) {
	if _, err := s.store.IncrementPlays(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Like 点赞并返回最新的点赞数。
func (s *Service) Like(ctx context.Context, id string) (int, error) {
	return s.store.IncrementLikes(ctx, id)
}

// Delete 删除场景，仅作者本人可以操作。
func (s *Service) Delete(ctx context.Context, id, author string) error {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.Author != author {
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logger.Audit().Info("community scenario deleted",
		slog.String("scenario_id", id),
		slog.String("author", author))
	return nil
}

// Load 实现 scenario.Repository，返回可游玩的场景，不计入浏览数。
func (s *Service) Load(ctx context.Context, id string) (*scenario.Scenario, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.Approved {
		return nil, ErrNotFound
	}
	sc := item.ToScenario()
	if err := sc.Validate(); err != nil {
		logger.L().Warn("社区场景无法游玩", slog.String("scenario_id", id), slog.String("error", err.Error()))
		return nil, ErrNotFound
	}
	return sc, nil
}

// ListScenarios 实现 scenario.Repository 的 List。
func (s *Service) ListScenarios(ctx context.Context, filter scenario.Filter) ([]scenario.Summary, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	var out []scenario.Summary
	for _, item := range items {
		if !item.Approved {
			continue
		}
		sc := item.ToScenario()
		if sc.Validate() != nil {
			continue
		}
		if summary := sc.Summarize(); filter.Match(summary) {
			out = append(out, summary)
		}
	}
	return out, nil
}

// RecordPlay 在社区场景开始游玩时累计次数，非社区场景直接忽略。
func (s *Service) RecordPlay(ctx context.Context, id string) error {
	if _, err := s.store.IncrementPlays(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Repository 返回适配 scenario.Repository 的视图。
func (s *Service) Repository() scenario.Repository {
	return repository{svc: s}
}

type repository struct {
	svc *Service
}

func (r repository) Load(ctx context.Context, id string) (*scenario.Scenario, error) {
	return r.svc.Load(ctx, id)
}

func (r repository) List(ctx context.Context, filter scenario.Filter) ([]scenario.Summary, error) {
	return r.svc.ListScenarios(ctx, filter)
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

var _ scenario.Repository = repository{}

package community

import (
	"context"
	"time"

	xerrors "EnPeak/internal/errors"
	"EnPeak/internal/scenario"
)

// CategoryCommunity 是社区场景在场景列表中的分类。
const CategoryCommunity = "community"

var (
	// ErrNotFound 表示社区场景不存在。
	ErrNotFound = xerrors.New(xerrors.CodeScenarioNotFound, "社区场景不存在")
	// ErrForbidden 表示非作者尝试删除场景。
	ErrForbidden = xerrors.New(xerrors.CodeForbidden, "只有作者可以删除该场景")
)

// Scenario 是学习者发布到社区的场景。
type Scenario struct {
	ID             string                `json:"id" firestore:"id"`
	Title          string                `json:"title" firestore:"title"`
	LocalizedTitle string                `json:"title_ko,omitempty" firestore:"title_ko"`
	Description    string                `json:"description,omitempty" firestore:"description"`
	Author         string                `json:"author" firestore:"author"`
	AuthorID       string                `json:"authorId,omitempty" firestore:"author_id"`
	Place          string                `json:"place" firestore:"place"`
	Situation      string                `json:"situation" firestore:"situation"`
	Difficulty     string                `json:"difficulty" firestore:"difficulty"`
	Roles          scenario.Roles        `json:"roles" firestore:"roles"`
	Likes          int                   `json:"likes" firestore:"likes"`
	Plays          int                   `json:"plays" firestore:"plays"`
	CreatedAt      time.Time             `json:"createdAt" firestore:"created_at"`
	Stages         []scenario.Stage      `json:"stages" firestore:"stages"`
	KeyVocabulary  []scenario.Vocabulary `json:"key_vocabulary,omitempty" firestore:"key_vocabulary"`
	Tags           []string              `json:"tags" firestore:"tags"`
	Approved       bool                  `json:"approved" firestore:"approved"`
}

// Popularity 是 popular 排序使用的热度。
func (s *Scenario) Popularity() int {
	return s.Likes + s.Plays
}

// Clone 返回深拷贝。
func (s *Scenario) Clone() *Scenario {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Stages = make([]scenario.Stage, len(s.Stages))
	for i, stage := range s.Stages {
		stage.AcceptanceKeywords = append([]string(nil), stage.AcceptanceKeywords...)
		stage.SuggestedReplies = append([]string(nil), stage.SuggestedReplies...)
		clone.Stages[i] = stage
	}
	clone.KeyVocabulary = append([]scenario.Vocabulary(nil), s.KeyVocabulary...)
	clone.Tags = append([]string(nil), s.Tags...)
	return &clone
}

// ToScenario 将社区场景转换为可以游玩的生成式场景。
func (s *Scenario) ToScenario() *scenario.Scenario {
	sc := &scenario.Scenario{
		ID:             s.ID,
		Title:          s.Title,
		LocalizedTitle: s.LocalizedTitle,
		Category:       CategoryCommunity,
		Difficulty:     s.Difficulty,
		Mode:           scenario.ModeGenerative,
		Roles:          s.Roles,
		Place:          s.Place,
		Situation:      s.Situation,
		Description:    s.Description,
		KeyVocabulary:  append([]scenario.Vocabulary(nil), s.KeyVocabulary...),
		Tags:           append([]string(nil), s.Tags...),
	}
	for _, stage := range s.Stages {
		stage.AcceptanceKeywords = nil
		stage.SuggestedReplies = append([]string(nil), stage.SuggestedReplies...)
		sc.Stages = append(sc.Stages, stage)
	}
	if len(sc.Stages) > 0 && sc.Stages[0].OpeningLine == "" {
		sc.Stages[0].OpeningLine = "Hello! Let's start our conversation."
	}
	sc.Normalize()
	return sc
}

// Store 抽象社区场景的持久化。计数器的增减必须是原子的。
type Store interface {
	Put(ctx context.Context, s *Scenario) error
	Get(ctx context.Context, id string) (*Scenario, error)
	List(ctx context.Context) ([]*Scenario, error)
	IncrementPlays(ctx context.Context, id string) (int, error)
	IncrementLikes(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

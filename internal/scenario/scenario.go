package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	xerrors "EnPeak/internal/errors"
)

// Mode 决定会话的推进方式。
type Mode string

const (
	// ModeScripted 按关键字匹配推进，回复为预先编写的台词。
	ModeScripted Mode = "scripted"
	// ModeGenerative 由模型生成回复，每两轮用户发言推进一个阶段。
	ModeGenerative Mode = "generative"
)

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

var (
	// ErrNotFound 表示场景不存在或定义无效。
	ErrNotFound = xerrors.New(xerrors.CodeScenarioNotFound, "场景不存在")
)

// Roles 描述对话双方的角色。
type Roles struct {
	Partner string `json:"ai" yaml:"ai" firestore:"ai"`
	Learner string `json:"user" yaml:"user" firestore:"user"`
}

// Stage 是场景中的一个阶段。
type Stage struct {
	Ordinal            int      `json:"stage" yaml:"stage" firestore:"stage"`
	Name               string   `json:"name" yaml:"name" firestore:"name"`
	OpeningLine        string   `json:"ai_opening,omitempty" yaml:"ai_opening,omitempty" firestore:"ai_opening"`
	ObjectiveHint      string   `json:"ai_prompt,omitempty" yaml:"ai_prompt,omitempty" firestore:"ai_prompt"`
	AcceptanceKeywords []string `json:"acceptance_keywords,omitempty" yaml:"acceptance_keywords,omitempty" firestore:"acceptance_keywords"`
	SuggestedReplies   []string `json:"suggested_responses,omitempty" yaml:"suggested_responses,omitempty" firestore:"suggested_responses"`
	LearningTip        string   `json:"learning_tip,omitempty" yaml:"learning_tip,omitempty" firestore:"learning_tip"`
}

// Vocabulary 是场景的关键词汇。文件中既可以写成字符串，也可以写成对象。
type Vocabulary struct {
	Word    string `json:"word" yaml:"word" firestore:"word"`
	Meaning string `json:"meaning,omitempty" yaml:"meaning,omitempty" firestore:"meaning"`
	Example string `json:"example,omitempty" yaml:"example,omitempty" firestore:"example"`
}

// UnmarshalJSON 兼容字符串与对象两种写法。
func (v *Vocabulary) UnmarshalJSON(data []byte) error {
	var word string
	if err := json.Unmarshal(data, &word); err == nil {
		*v = Vocabulary{Word: word}
		return nil
	}
	type plain Vocabulary
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*v = Vocabulary(obj)
	return nil
}

// UnmarshalYAML 兼容字符串与对象两种写法。
func (v *Vocabulary) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*v = Vocabulary{Word: node.Value}
		return nil
	}
	type plain Vocabulary
	var obj plain
	if err := node.Decode(&obj); err != nil {
		return err
	}
	*v = Vocabulary(obj)
	return nil
}

// Scenario 是不可变的场景定义。
type Scenario struct {
	ID                string       `json:"id" yaml:"id"`
	Title             string       `json:"title" yaml:"title"`
	LocalizedTitle    string       `json:"title_ko,omitempty" yaml:"title_ko,omitempty"`
	Category          string       `json:"category,omitempty" yaml:"category,omitempty"`
	Difficulty        string       `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Mode              Mode         `json:"mode,omitempty" yaml:"mode,omitempty"`
	Roles             Roles        `json:"roles" yaml:"roles"`
	Place             string       `json:"place,omitempty" yaml:"place,omitempty"`
	Situation         string       `json:"situation,omitempty" yaml:"situation,omitempty"`
	Description       string       `json:"description,omitempty" yaml:"description,omitempty"`
	EstimatedTime     string       `json:"estimated_time,omitempty" yaml:"estimated_time,omitempty"`
	Stages            []Stage      `json:"stages" yaml:"stages"`
	CompletionMessage string       `json:"completion_message,omitempty" yaml:"completion_message,omitempty"`
	KeyVocabulary     []Vocabulary `json:"key_vocabulary,omitempty" yaml:"key_vocabulary,omitempty"`
	Tags              []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Summary 是列表接口返回的场景概要。
type Summary struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	LocalizedTitle string `json:"title_ko"`
	Category       string `json:"category"`
	Difficulty     string `json:"difficulty"`
	Mode           Mode   `json:"mode"`
	Description    string `json:"description"`
	EstimatedTime  string `json:"estimated_time"`
	StageCount     int    `json:"total_stages"`
}

// Filter 用于筛选场景列表，空字段表示不限制。
type Filter struct {
	Category   string
	Difficulty string
	Mode       Mode
}

// Match 判断概要是否满足筛选条件。
func (f Filter) Match(s Summary) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, s.Category) {
		return false
	}
	if f.Difficulty != "" && !strings.EqualFold(f.Difficulty, s.Difficulty) {
		return false
	}
	if f.Mode != "" && f.Mode != s.Mode {
		return false
	}
	return true
}

// Repository 按标识提供场景定义。
type Repository interface {
	Load(ctx context.Context, id string) (*Scenario, error)
	List(ctx context.Context, filter Filter) ([]Summary, error)
}

// Normalize 填充默认值：阶段序号、推进模式、难度、描述与预计时长。
func (s *Scenario) Normalize() {
	s.ID = strings.TrimSpace(s.ID)
	s.Title = strings.TrimSpace(s.Title)
	if s.LocalizedTitle == "" {
		s.LocalizedTitle = s.Title
	}
	if s.Description == "" {
		s.Description = s.LocalizedTitle
	}
	if s.EstimatedTime == "" {
		s.EstimatedTime = "3-5 minutes"
	}
	if s.Difficulty == "" {
		s.Difficulty = DifficultyIntermediate
	}
	if s.Roles.Partner == "" {
		s.Roles.Partner = "Conversation partner"
	}
	if s.Roles.Learner == "" {
		s.Roles.Learner = "Learner"
	}

	unnumbered := true
	for _, stage := range s.Stages {
		if stage.Ordinal != 0 {
			unnumbered = false
			break
		}
	}
	if unnumbered {
		for i := range s.Stages {
			s.Stages[i].Ordinal = i + 1
		}
	}

	if s.Mode == "" {
		s.Mode = ModeGenerative
		for _, stage := range s.Stages {
			if len(stage.AcceptanceKeywords) > 0 {
				s.Mode = ModeScripted
				break
			}
		}
	}
}

// Validate 检查场景定义是否可用。
func (s *Scenario) Validate() error {
	if s.ID == "" {
		return invalid("场景缺少 id")
	}
	if s.Title == "" {
		return invalid(fmt.Sprintf("场景 %s 缺少标题", s.ID))
	}
	if len(s.Stages) == 0 {
		return invalid(fmt.Sprintf("场景 %s 没有任何阶段", s.ID))
	}
	if s.Mode != ModeScripted && s.Mode != ModeGenerative {
		return invalid(fmt.Sprintf("场景 %s 使用了未知的模式 %q", s.ID, s.Mode))
	}
	for i, stage := range s.Stages {
		if stage.Ordinal != i+1 {
			return invalid(fmt.Sprintf("场景 %s 的阶段序号必须从 1 开始连续递增，第 %d 个阶段为 %d", s.ID, i+1, stage.Ordinal))
		}
		needsOpening := i == 0 || s.Mode == ModeScripted
		if needsOpening && strings.TrimSpace(stage.OpeningLine) == "" {
			return invalid(fmt.Sprintf("场景 %s 的第 %d 阶段缺少开场白", s.ID, stage.Ordinal))
		}
	}
	return nil
}

func invalid(msg string) error {
	return xerrors.New(xerrors.CodeInvalidInput, msg)
}

// StageCount 返回阶段数量。
func (s *Scenario) StageCount() int {
	return len(s.Stages)
}

// Stage 返回指定序号的阶段，越界时返回最后一个阶段。
func (s *Scenario) Stage(ordinal int) Stage {
	if ordinal < 1 {
		ordinal = 1
	}
	if ordinal > len(s.Stages) {
		ordinal = len(s.Stages)
	}
	return s.Stages[ordinal-1]
}

// VocabularyWords 返回前 n 个关键词汇。
func (s *Scenario) VocabularyWords(n int) []string {
	words := make([]string, 0, n)
	for _, v := range s.KeyVocabulary {
		if len(words) == n {
			break
		}
		if w := strings.TrimSpace(v.Word); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// Summarize 生成场景概要。
func (s *Scenario) Summarize() Summary {
	return Summary{
		ID:             s.ID,
		Title:          s.Title,
		LocalizedTitle: s.LocalizedTitle,
		Category:       s.Category,
		Difficulty:     s.Difficulty,
		Mode:           s.Mode,
		Description:    s.Description,
		EstimatedTime:  s.EstimatedTime,
		StageCount:     len(s.Stages),
	}
}

// Clone 返回深拷贝。
func (s *Scenario) Clone() *Scenario {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Stages = make([]Stage, len(s.Stages))
	for i, stage := range s.Stages {
		stage.AcceptanceKeywords = append([]string(nil), stage.AcceptanceKeywords...)
		stage.SuggestedReplies = append([]string(nil), stage.SuggestedReplies...)
		clone.Stages[i] = stage
	}
	clone.KeyVocabulary = append([]Vocabulary(nil), s.KeyVocabulary...)
	clone.Tags = append([]string(nil), s.Tags...)
	return &clone
}

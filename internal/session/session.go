package session

import (
	"time"

	xerrors "EnPeak/internal/errors"
	"EnPeak/internal/scenario"
)

// Speaker 标识一条对话记录的发言方。
type Speaker string

const (
	SpeakerUser    Speaker = "user"
	SpeakerPartner Speaker = "partner"
)

var (
	// ErrNotFound 表示会话不存在或已结束。
	ErrNotFound = xerrors.New(xerrors.CodeSessionNotFound, "会话不存在或已结束")
	// ErrConflict 表示会话标识重复。
	ErrConflict = xerrors.New(xerrors.CodeInvalidInput, "会话已存在")
)

// Turn 是一条对话记录。
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session 是一次进行中的角色扮演练习。
type Session struct {
	ID           string             `json:"session_id"`
	ScenarioID   string             `json:"scenario_id"`
	Scenario     *scenario.Scenario `json:"scenario"`
	CurrentStage int                `json:"current_stage"`
	Complete     bool               `json:"is_complete"`
	UserLevel    string             `json:"user_level,omitempty"`
	History      []Turn             `json:"history"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// UserTurnCount 统计用户发言次数。
func (s *Session) UserTurnCount() int {
	count := 0
	for _, turn := range s.History {
		if turn.Speaker == SpeakerUser {
			count++
		}
	}
	return count
}

// StageCount 返回会话所属场景的阶段数量。
func (s *Session) StageCount() int {
	if s.Scenario == nil {
		return 0
	}
	return s.Scenario.StageCount()
}

// Append 追加一条对话记录。
func (s *Session) Append(speaker Speaker, text string, at time.Time) {
	s.History = append(s.History, Turn{Speaker: speaker, Text: text, Timestamp: at})
	s.UpdatedAt = at
}

// Recent 返回最近 n 条记录。
func (s *Session) Recent(n int) []Turn {
	if n <= 0 || n >= len(s.History) {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// Clone 返回深拷贝，存储层通过它隔离调用方的修改。
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Scenario = s.Scenario.Clone()
	clone.History = append([]Turn(nil), s.History...)
	return &clone
}

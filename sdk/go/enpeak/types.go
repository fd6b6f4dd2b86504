package enpeak

import "time"

// ScenarioSummary is the catalog entry returned by ListScenarios.
type ScenarioSummary struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	LocalizedTitle string `json:"title_ko"`
	Category       string `json:"category"`
	Difficulty     string `json:"difficulty"`
	Mode           string `json:"mode"`
	Description    string `json:"description"`
	EstimatedTime  string `json:"estimated_time"`
	TotalStages    int    `json:"total_stages"`
}

// ScenarioFilter narrows ListScenarios. Empty fields match everything.
type ScenarioFilter struct {
	Category   string
	Difficulty string
	Mode       string
}

// SessionStart is the response to StartSession.
type SessionStart struct {
	SessionID          string          `json:"session_id"`
	Scenario           ScenarioSummary `json:"scenario"`
	AIMessage          string          `json:"ai_message"`
	CurrentStage       int             `json:"current_stage"`
	TotalStages        int             `json:"total_stages"`
	LearningTip        string          `json:"learning_tip,omitempty"`
	SuggestedResponses []string        `json:"suggested_responses"`
}

// Turn is the partner's reply to one learner message.
type Turn struct {
	SessionID          string   `json:"session_id"`
	AIMessage          string   `json:"ai_message"`
	CurrentStage       int      `json:"current_stage"`
	TotalStages        int      `json:"total_stages"`
	LearningTip        string   `json:"learning_tip,omitempty"`
	SuggestedResponses []string `json:"suggested_responses"`
	IsComplete         bool     `json:"is_complete"`
}

// HistoryEntry is one line of a session transcript.
type HistoryEntry struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the server-side state of a roleplay session.
type Session struct {
	SessionID    string         `json:"session_id"`
	ScenarioID   string         `json:"scenario_id"`
	CurrentStage int            `json:"current_stage"`
	IsComplete   bool           `json:"is_complete"`
	UserLevel    string         `json:"user_level,omitempty"`
	History      []HistoryEntry `json:"history"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Report summarises a finished session.
type Report struct {
	SessionID            string    `json:"session_id"`
	ScenarioID           string    `json:"scenario_id"`
	ScenarioTitle        string    `json:"scenario_title"`
	TotalTurns           int       `json:"total_turns"`
	Completed            bool      `json:"completed"`
	OverallScore         int       `json:"overall_score"`
	Strengths            []string  `json:"strengths"`
	AreasToImprove       []string  `json:"areas_to_improve"`
	VocabularyHighlights []string  `json:"vocabulary_highlights"`
	GrammarNotes         []string  `json:"grammar_notes"`
	RecommendedPractice  []string  `json:"recommended_practice"`
	Encouragement        string    `json:"encouragement"`
	Degraded             bool      `json:"degraded"`
	CreatedAt            time.Time `json:"created_at"`
}

// ChatRequest is a free conversation message.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserLevel      string `json:"user_level,omitempty"`
	SystemPrompt   string `json:"system_prompt,omitempty"`
}

// ChatReply is the tutor's answer plus learning aids.
type ChatReply struct {
	ConversationID    string   `json:"conversation_id"`
	Message           string   `json:"message"`
	Suggestions       []string `json:"suggestions"`
	BetterExpressions []string `json:"better_expressions"`
	GrammarFeedback   *string  `json:"grammar_feedback"`
	LearningTip       *string  `json:"learning_tip"`
}

// GrammarIssue is one correction inside GrammarFeedback.
type GrammarIssue struct {
	Type        string `json:"type"`
	Original    string `json:"original"`
	Correction  string `json:"correction"`
	Explanation string `json:"explanation"`
}

// GrammarFeedback is the result of CheckGrammar.
type GrammarFeedback struct {
	IsCorrect     bool           `json:"is_correct"`
	CorrectedText string         `json:"corrected_text,omitempty"`
	Errors        []GrammarIssue `json:"errors"`
	Encouragement string         `json:"encouragement"`
	Tip           string         `json:"tip,omitempty"`
}

// Roles names the two sides of a scenario.
type Roles struct {
	AI   string `json:"ai"`
	User string `json:"user"`
}

// Stage is one step of a scenario.
type Stage struct {
	Stage              int      `json:"stage"`
	Name               string   `json:"name"`
	AIOpening          string   `json:"ai_opening,omitempty"`
	AIPrompt           string   `json:"ai_prompt,omitempty"`
	SuggestedResponses []string `json:"suggested_responses,omitempty"`
	LearningTip        string   `json:"learning_tip,omitempty"`
}

// CommunityScenario is a learner-published scenario.
type CommunityScenario struct {
	ID             string    `json:"id,omitempty"`
	Title          string    `json:"title"`
	LocalizedTitle string    `json:"title_ko,omitempty"`
	Description    string    `json:"description,omitempty"`
	Author         string    `json:"author,omitempty"`
	Place          string    `json:"place"`
	Situation      string    `json:"situation"`
	Difficulty     string    `json:"difficulty,omitempty"`
	Roles          Roles     `json:"roles"`
	Likes          int       `json:"likes"`
	Plays          int       `json:"plays"`
	CreatedAt      time.Time `json:"createdAt"`
	Stages         []Stage   `json:"stages"`
	Tags           []string  `json:"tags,omitempty"`
}

// CommunityList is one page of the community catalog.
type CommunityList struct {
	Scenarios []CommunityScenario `json:"scenarios"`
	Total     int                 `json:"total"`
}

// DraftContext describes the scenario a learner wants to author.
type DraftContext struct {
	Place          string            `json:"place"`
	Time           string            `json:"time,omitempty"`
	Situation      string            `json:"situation"`
	Roles          map[string]string `json:"roles,omitempty"`
	AdditionalInfo string            `json:"additionalInfo,omitempty"`
}

// DraftMessage is one message of an authoring conversation.
type DraftMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DraftReply is the assistant's answer during authoring.
type DraftReply struct {
	Message       string `json:"message"`
	Status        string `json:"status,omitempty"`
	ScenarioReady bool   `json:"scenario_ready"`
}

// DraftResult carries the finished scenario.
type DraftResult struct {
	Scenario CommunityScenario `json:"scenario"`
	Status   string            `json:"status"`
}

// Package enpeak is a small Go client for the enpeakd HTTP API.
package enpeak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout is used by clients created without a custom http.Client.
// Model-backed endpoints may take a while, so it is longer than a plain
// REST timeout.
const DefaultHTTPTimeout = 90 * time.Second

// Client wraps the HTTP interactions with the enpeakd API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("enpeak api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("enpeak api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the enpeakd API. When httpClient is nil,
// a default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// ListScenarios returns the playable scenario catalog.
func (c *Client) ListScenarios(ctx context.Context, filter ScenarioFilter) ([]ScenarioSummary, error) {
	q := url.Values{}
	setQuery(q, "category", filter.Category)
	setQuery(q, "difficulty", filter.Difficulty)
	setQuery(q, "mode", filter.Mode)
	var out struct {
		Scenarios []ScenarioSummary `json:"scenarios"`
	}
	if err := c.send(ctx, http.MethodGet, "/api/roleplay/scenarios", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Scenarios, nil
}

// StartSession opens a roleplay session for scenarioID.
func (c *Client) StartSession(ctx context.Context, scenarioID, userLevel string) (SessionStart, error) {
	var out SessionStart
	body := map[string]string{"scenario_id": scenarioID, "user_level": userLevel}
	err := c.send(ctx, http.MethodPost, "/api/roleplay/start", nil, body, &out)
	return out, err
}

// SendMessage submits one learner message and returns the partner's reply.
func (c *Client) SendMessage(ctx context.Context, sessionID, message string) (Turn, error) {
	var out Turn
	body := map[string]string{"session_id": sessionID, "user_message": message}
	err := c.send(ctx, http.MethodPost, "/api/roleplay/turn", nil, body, &out)
	return out, err
}

// EndSession closes the session and returns its report.
func (c *Client) EndSession(ctx context.Context, sessionID string) (Report, error) {
	var out Report
	err := c.send(ctx, http.MethodPost, "/api/roleplay/end", nil, map[string]string{"session_id": sessionID}, &out)
	return out, err
}

// GetSession fetches the current state of a session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (Session, error) {
	var out Session
	err := c.send(ctx, http.MethodGet, "/api/roleplay/sessions/"+url.PathEscape(sessionID), nil, nil, &out)
	return out, err
}

// Reports lists the most recent session reports.
func (c *Client) Reports(ctx context.Context, limit int) ([]Report, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Reports []Report `json:"reports"`
	}
	if err := c.send(ctx, http.MethodGet, "/api/roleplay/reports", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Reports, nil
}

// Chat sends a free conversation message.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	var out ChatReply
	err := c.send(ctx, http.MethodPost, "/api/chat", nil, req, &out)
	return out, err
}

// ClearConversation drops the tutor history. It reports whether anything was cleared.
func (c *Client) ClearConversation(ctx context.Context, conversationID string) (bool, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.send(ctx, http.MethodDelete, "/api/chat/"+url.PathEscape(conversationID), nil, nil, &out); err != nil {
		return false, err
	}
	return out.Status == "cleared", nil
}

// Translate translates text into targetLang ("ko" or "en").
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	var out struct {
		Translation string `json:"translation"`
	}
	body := map[string]string{"text": text, "target_lang": targetLang}
	if err := c.send(ctx, http.MethodPost, "/api/translate", nil, body, &out); err != nil {
		return "", err
	}
	return out.Translation, nil
}

// CheckGrammar asks for grammar feedback on text.
func (c *Client) CheckGrammar(ctx context.Context, text, situation string) (GrammarFeedback, error) {
	var out GrammarFeedback
	body := map[string]string{"text": text, "context": situation}
	err := c.send(ctx, http.MethodPost, "/api/feedback/grammar", nil, body, &out)
	return out, err
}

// QuickTip returns a one-line tip for text.
func (c *Client) QuickTip(ctx context.Context, text string) (string, error) {
	var out struct {
		Tip string `json:"tip"`
	}
	if err := c.send(ctx, http.MethodPost, "/api/feedback/quick-tip", nil, map[string]string{"text": text}, &out); err != nil {
		return "", err
	}
	return out.Tip, nil
}

// ListCommunity returns community scenarios sorted by popular, recent or beginner.
func (c *Client) ListCommunity(ctx context.Context, sort string, limit int) (CommunityList, error) {
	q := url.Values{}
	setQuery(q, "sort", sort)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out CommunityList
	err := c.send(ctx, http.MethodGet, "/api/community/scenarios", q, nil, &out)
	return out, err
}

// Publish shares a scenario and returns its identifier.
func (c *Client) Publish(ctx context.Context, sc CommunityScenario, author string) (string, error) {
	var out struct {
		ScenarioID string `json:"scenario_id"`
	}
	body := map[string]any{"scenario": sc, "author": author}
	if err := c.send(ctx, http.MethodPost, "/api/community/scenarios", nil, body, &out); err != nil {
		return "", err
	}
	return out.ScenarioID, nil
}

// GetCommunity fetches one community scenario. Each call counts as a play.
func (c *Client) GetCommunity(ctx context.Context, id string) (CommunityScenario, error) {
	var out CommunityScenario
	err := c.send(ctx, http.MethodGet, "/api/community/scenarios/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// Like adds a like and returns the new total.
func (c *Client) Like(ctx context.Context, id string) (int, error) {
	var out struct {
		Likes int `json:"likes"`
	}
	if err := c.send(ctx, http.MethodPost, "/api/community/scenarios/"+url.PathEscape(id)+"/like", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Likes, nil
}

// DeleteCommunity removes a scenario. Only its author may do so.
func (c *Client) DeleteCommunity(ctx context.Context, id, author string) error {
	q := url.Values{}
	q.Set("author", author)
	return c.send(ctx, http.MethodDelete, "/api/community/scenarios/"+url.PathEscape(id), q, nil, nil)
}

// CreateDraft starts an authoring conversation.
func (c *Client) CreateDraft(ctx context.Context, dc DraftContext) (DraftReply, error) {
	var out DraftReply
	err := c.send(ctx, http.MethodPost, "/api/scenario/create", nil, map[string]any{"context": dc}, &out)
	return out, err
}

// RefineDraft continues an authoring conversation.
func (c *Client) RefineDraft(ctx context.Context, dc DraftContext, messages []DraftMessage) (DraftReply, error) {
	var out DraftReply
	body := map[string]any{"context": dc, "messages": messages}
	err := c.send(ctx, http.MethodPost, "/api/scenario/refine", nil, body, &out)
	return out, err
}

// FinalizeDraft turns the authoring conversation into a scenario.
func (c *Client) FinalizeDraft(ctx context.Context, dc DraftContext, messages []DraftMessage, title string) (DraftResult, error) {
	var out DraftResult
	body := map[string]any{"context": dc, "messages": messages, "title": title}
	err := c.send(ctx, http.MethodPost, "/api/scenario/finalize", nil, body, &out)
	return out, err
}

func setQuery(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func (c *Client) send(ctx context.Context, method, endpoint string, query url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &struct {
				Error *APIError `json:"error"`
			}{Error: apiErr})
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stdErrors "errors"
	"fmt"

	"EnPeak/internal/session"
)

// SessionStore 将会话整体序列化为 JSON 存入 roleplay_sessions 表。
type SessionStore struct {
	db *DB
}

// NewSessionStore 创建基于 SQL 的会话存储。
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create 实现 session.Store。
func (s *SessionStore) Create(ctx context.Context, sess *session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	const stmt = `INSERT INTO roleplay_sessions
        (id, scenario_id, current_stage, complete, payload, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.db.ExecContext(ctx, stmt,
		sess.ID,
		sess.ScenarioID,
		sess.CurrentStage,
		sess.Complete,
		string(payload),
		toMillis(sess.CreatedAt),
		toMillis(sess.UpdatedAt),
	); err != nil {
		if isDuplicate(err) {
			return session.ErrConflict
		}
		return unavailable(err, "写入会话失败")
	}
	return nil
}

// Get 实现 session.Store。
func (s *SessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	var payload string
	err := s.db.db.QueryRowContext(ctx, `SELECT payload FROM roleplay_sessions WHERE id = ?`, id).Scan(&payload)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err, "查询会话失败")
	}
	var sess session.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, fmt.Errorf("解析会话 %s 失败: %w", id, err)
	}
	return &sess, nil
}

// Update 实现 session.Store。
func (s *SessionStore) Update(ctx context.Context, sess *session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	res, err := s.db.db.ExecContext(ctx, `UPDATE roleplay_sessions
        SET current_stage = ?, complete = ?, payload = ?, updated_at = ?
        WHERE id = ?`,
		sess.CurrentStage,
		sess.Complete,
		string(payload),
		toMillis(sess.UpdatedAt),
		sess.ID,
	)
	if err != nil {
		return unavailable(err, "更新会话失败")
	}
	return s.requireRow(ctx, res, sess.ID)
}

// Delete 实现 session.Store。
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM roleplay_sessions WHERE id = ?`, id)
	if err != nil {
		return unavailable(err, "删除会话失败")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable(err, "读取影响行数失败")
	}
	if affected == 0 {
		return session.ErrNotFound
	}
	return nil
}

// requireRow 处理 MySQL 在值未变化时返回 0 影响行数的情况。
func (s *SessionStore) requireRow(ctx context.Context, res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable(err, "读取影响行数失败")
	}
	if affected > 0 {
		return nil
	}
	var one int
	err = s.db.db.QueryRowContext(ctx, `SELECT 1 FROM roleplay_sessions WHERE id = ?`, id).Scan(&one)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return session.ErrNotFound
	}
	if err != nil {
		return unavailable(err, "查询会话失败")
	}
	return nil
}

var _ session.Store = (*SessionStore)(nil)

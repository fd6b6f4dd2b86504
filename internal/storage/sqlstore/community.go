package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stdErrors "errors"
	"fmt"

	"EnPeak/internal/community"
)

// CommunityStore 将社区场景保存在 community_scenarios 表，计数器单独成列以便原子自增。
type CommunityStore struct {
	db *DB
}

// NewCommunityStore 创建基于 SQL 的社区场景存储。
func NewCommunityStore(db *DB) *CommunityStore {
	return &CommunityStore{db: db}
}

// Put 实现 community.Store，存在时覆盖除计数器以外的字段。
func (s *CommunityStore) Put(ctx context.Context, sc *community.Scenario) error {
	payload, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("序列化社区场景失败: %w", err)
	}
	res, err := s.db.db.ExecContext(ctx, `UPDATE community_scenarios
        SET title = ?, author = ?, difficulty = ?, approved = ?, payload = ?, created_at = ?
        WHERE id = ?`,
		sc.Title, sc.Author, sc.Difficulty, sc.Approved, string(payload), toMillis(sc.CreatedAt), sc.ID)
	if err != nil {
		return unavailable(err, "更新社区场景失败")
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		return nil
	}

	_, err = s.db.db.ExecContext(ctx, `INSERT INTO community_scenarios
        (id, title, author, difficulty, likes, plays, approved, payload, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.Title, sc.Author, sc.Difficulty, sc.Likes, sc.Plays, sc.Approved, string(payload), toMillis(sc.CreatedAt))
	if err != nil && !isDuplicate(err) {
		return unavailable(err, "写入社区场景失败")
	}
	return nil
}

// Get 实现 community.Store。
func (s *CommunityStore) Get(ctx context.Context, id string) (*community.Scenario, error) {
	row := s.db.db.QueryRowContext(ctx, `SELECT payload, likes, plays FROM community_scenarios WHERE id = ?`, id)
	sc, err := scanCommunity(row)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return nil, community.ErrNotFound
	}
	return sc, err
}

// List 实现 community.Store。
func (s *CommunityStore) List(ctx context.Context) ([]*community.Scenario, error) {
	rows, err := s.db.db.QueryContext(ctx, `SELECT payload, likes, plays FROM community_scenarios ORDER BY created_at DESC`)
	if err != nil {
		return nil, unavailable(err, "查询社区场景失败")
	}
	defer rows.Close()

	var out []*community.Scenario
	for rows.Next() {
		sc, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err, "遍历社区场景失败")
	}
	return out, nil
}

// IncrementPlays 实现 community.Store。
func (s *CommunityStore) IncrementPlays(ctx context.Context, id string) (int, error) {
	return s.increment(ctx, id, "plays")
}

// IncrementLikes 实现 community.Store。
func (s *CommunityStore) IncrementLikes(ctx context.Context, id string) (int, error) {
	return s.increment(ctx, id, "likes")
}

func (s *CommunityStore) increment(ctx context.Context, id, column string) (int, error) {
	res, err := s.db.db.ExecContext(ctx, `UPDATE community_scenarios SET `+column+` = `+column+` + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, unavailable(err, "更新社区场景计数失败")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return 0, community.ErrNotFound
	}
	var value int
	if err := s.db.db.QueryRowContext(ctx, `SELECT `+column+` FROM community_scenarios WHERE id = ?`, id).Scan(&value); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return 0, community.ErrNotFound
		}
		return 0, unavailable(err, "查询社区场景计数失败")
	}
	return value, nil
}

// Delete 实现 community.Store。
func (s *CommunityStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM community_scenarios WHERE id = ?`, id)
	if err != nil {
		return unavailable(err, "删除社区场景失败")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return community.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommunity(row rowScanner) (*community.Scenario, error) {
	var (
		payload      string
		likes, plays int
	)
	if err := row.Scan(&payload, &likes, &plays); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, unavailable(err, "读取社区场景失败")
	}
	var sc community.Scenario
	if err := json.Unmarshal([]byte(payload), &sc); err != nil {
		return nil, fmt.Errorf("解析社区场景失败: %w", err)
	}
	sc.Likes = likes
	sc.Plays = plays
	return &sc, nil
}

var _ community.Store = (*CommunityStore)(nil)

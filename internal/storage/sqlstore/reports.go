package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"EnPeak/internal/report"
)

// ReportArchive 将会话报告归档到 roleplay_reports 表。
type ReportArchive struct {
	db *DB
}

// NewReportArchive 创建基于 SQL 的报告归档。
func NewReportArchive(db *DB) *ReportArchive {
	return &ReportArchive{db: db}
}

// Save 实现 report.Archive。
func (a *ReportArchive) Save(ctx context.Context, r report.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("序列化报告失败: %w", err)
	}
	const stmt = `INSERT INTO roleplay_reports
        (id, session_id, scenario_id, overall_score, degraded, payload, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := a.db.db.ExecContext(ctx, stmt,
		uuid.NewString(),
		r.SessionID,
		r.ScenarioID,
		r.OverallScore,
		r.Degraded,
		string(payload),
		toMillis(r.CreatedAt),
	); err != nil {
		return unavailable(err, "写入报告失败")
	}
	return nil
}

// Latest 实现 report.Archive。
func (a *ReportArchive) Latest(ctx context.Context, limit int) ([]report.Report, error) {
	rows, err := a.db.db.QueryContext(ctx, `SELECT payload FROM roleplay_reports ORDER BY created_at DESC LIMIT ?`, report.NormalizeLimit(limit))
	if err != nil {
		return nil, unavailable(err, "查询报告失败")
	}
	defer rows.Close()

	var out []report.Report
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, unavailable(err, "读取报告失败")
		}
		var r report.Report
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err, "遍历报告失败")
	}
	return out, nil
}

var _ report.Archive = (*ReportArchive)(nil)

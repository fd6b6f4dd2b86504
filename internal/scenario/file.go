package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	xerrors "EnPeak/internal/errors"
	"EnPeak/pkg/logger"
)

// FileRepository 从目录加载场景文件（JSON 或 YAML），加载后只读。
type FileRepository struct {
	byID  map[string]*Scenario
	order []string
}

// NewFileRepository 使用内存中的场景构建仓库，无效场景会被跳过。
func NewFileRepository(items []*Scenario) *FileRepository {
	repo := &FileRepository{byID: make(map[string]*Scenario, len(items))}
	for _, item := range items {
		if item == nil {
			continue
		}
		sc := item.Clone()
		sc.Normalize()
		if err := sc.Validate(); err != nil {
			logger.L().Warn("忽略无效场景", slog.String("scenario", sc.ID), slog.String("error", err.Error()))
			continue
		}
		if _, exists := repo.byID[sc.ID]; !exists {
			repo.order = append(repo.order, sc.ID)
		}
		repo.byID[sc.ID] = sc
	}
	return repo
}

// LoadFileRepository 加载目录下全部场景文件。单个文件无效时记录告警并跳过。
func LoadFileRepository(ctx context.Context, dir string) (*FileRepository, error) {
	items, problems, err := LoadDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	for path, problem := range problems {
		logger.L().Warn("忽略无效场景文件", slog.String("path", path), slog.String("error", problem.Error()))
	}
	return NewFileRepository(items), nil
}

// LoadDir 并发解析目录下的场景文件，返回有效场景以及每个无效文件的错误。
func LoadDir(ctx context.Context, dir string) ([]*Scenario, map[string]error, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil, fmt.Errorf("场景目录不能为空")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("解析场景目录失败: %w", err)
	}
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, nil, fmt.Errorf("读取场景目录失败: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			paths = append(paths, filepath.Join(absDir, entry.Name()))
		}
	}
	sort.Strings(paths)

	results := make([]*Scenario, len(paths))
	var (
		mu       sync.Mutex
		problems = make(map[string]error)
	)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(8)
	for i, path := range paths {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sc, err := LoadFile(path)
			if err != nil {
				mu.Lock()
				problems[path] = err
				mu.Unlock()
				return nil
			}
			results[i] = sc
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	items := make([]*Scenario, 0, len(results))
	for _, sc := range results {
		if sc != nil {
			items = append(items, sc)
		}
	}
	return items, problems, nil
}

// LoadFile 解析并校验单个场景文件。
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取场景文件失败: %w", err)
	}
	var sc Scenario
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &sc)
	default:
		err = json.Unmarshal(data, &sc)
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidInput, err, "解析场景文件失败")
	}
	if sc.ID == "" {
		sc.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	sc.Normalize()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load 返回场景副本。
func (r *FileRepository) Load(_ context.Context, id string) (*Scenario, error) {
	if r == nil {
		return nil, ErrNotFound
	}
	sc, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return sc.Clone(), nil
}

// List 按加载顺序返回满足条件的场景概要。
func (r *FileRepository) List(_ context.Context, filter Filter) ([]Summary, error) {
	if r == nil {
		return nil, nil
	}
	out := make([]Summary, 0, len(r.order))
	for _, id := range r.order {
		summary := r.byID[id].Summarize()
		if filter.Match(summary) {
			out = append(out, summary)
		}
	}
	return out, nil
}

// Len 返回已加载的场景数量。
func (r *FileRepository) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

var _ Repository = (*FileRepository)(nil)

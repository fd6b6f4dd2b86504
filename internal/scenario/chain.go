package scenario

import (
	"context"
	"errors"
)

// ChainRepository 依次查询多个仓库，先找到的场景优先。
type ChainRepository struct {
	repos []Repository
}

// NewChainRepository 组合多个仓库，nil 会被忽略。
func NewChainRepository(repos ...Repository) *ChainRepository {
	chain := &ChainRepository{}
	for _, repo := range repos {
		if repo != nil {
			chain.repos = append(chain.repos, repo)
		}
	}
	return chain
}

// Load 返回第一个仓库中找到的场景。
func (c *ChainRepository) Load(ctx context.Context, id string) (*Scenario, error) {
	for _, repo := range c.repos {
		sc, err := repo.Load(ctx, id)
		if err == nil {
			return sc, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// List 合并全部仓库的概要，重复标识只保留第一次出现。
func (c *ChainRepository) List(ctx context.Context, filter Filter) ([]Summary, error) {
	seen := make(map[string]struct{})
	var out []Summary
	for _, repo := range c.repos {
		items, err := repo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			out = append(out, item)
		}
	}
	return out, nil
}

var _ Repository = (*ChainRepository)(nil)

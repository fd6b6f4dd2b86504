// Package firestorestore 使用 Cloud Firestore 保存社区场景，每个场景一个文档。
package firestorestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"EnPeak/internal/community"
	xerrors "EnPeak/internal/errors"
)

const defaultCollection = "community_scenarios"

// CommunityStore 实现 community.Store。
type CommunityStore struct {
	client     *firestore.Client
	collection string
}

// NewCommunityStore 创建 Firestore 客户端，凭据由 Application Default Credentials 提供。
func NewCommunityStore(ctx context.Context, projectID, collection string) (*CommunityStore, error) {
	if projectID == "" {
		return nil, errors.New("Firestore 项目 ID 不能为空")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("创建 Firestore 客户端失败: %w", err)
	}
	if collection == "" {
		collection = defaultCollection
	}
	return &CommunityStore{client: client, collection: collection}, nil
}

func (s *CommunityStore) col() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// Put 实现 community.Store。
func (s *CommunityStore) Put(ctx context.Context, sc *community.Scenario) error {
	if _, err := s.col().Doc(sc.ID).Set(ctx, sc); err != nil {
		return translate(err, "写入社区场景失败")
	}
	return nil
}

// Get 实现 community.Store。
func (s *CommunityStore) Get(ctx context.Context, id string) (*community.Scenario, error) {
	snap, err := s.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err, "读取社区场景失败")
	}
	var sc community.Scenario
	if err := snap.DataTo(&sc); err != nil {
		return nil, fmt.Errorf("解析社区场景 %s 失败: %w", id, err)
	}
	sc.ID = snap.Ref.ID
	return &sc, nil
}

// List 实现 community.Store。
func (s *CommunityStore) List(ctx context.Context) ([]*community.Scenario, error) {
	iter := s.col().OrderBy("created_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var out []*community.Scenario
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, translate(err, "查询社区场景失败")
		}
		var sc community.Scenario
		if err := snap.DataTo(&sc); err != nil {
			return nil, fmt.Errorf("解析社区场景 %s 失败: %w", snap.Ref.ID, err)
		}
		sc.ID = snap.Ref.ID
		out = append(out, &sc)
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

func (s *CommunityStore) increment(ctx context.Context, id, field string) (int, error) {
	ref := s.col().Doc(id)
	if _, err := ref.Update(ctx, []firestore.Update{{Path: field, Value: firestore.Increment(1)}}); err != nil {
		return 0, translate(err, "更新社区场景计数失败")
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return 0, translate(err, "读取社区场景计数失败")
	}
	value, err := snap.DataAt(field)
	if err != nil {
		return 0, fmt.Errorf("读取字段 %s 失败: %w", field, err)
	}
	n, _ := value.(int64)
	return int(n), nil
}

// Delete 实现 community.Store。
func (s *CommunityStore) Delete(ctx context.Context, id string) error {
	if _, err := s.col().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return translate(err, "删除社区场景失败")
	}
	return nil
}

// Close 关闭 Firestore 客户端。
func (s *CommunityStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func translate(err error, msg string) error {
	switch status.Code(err) {
	case codes.NotFound:
		return community.ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return xerrors.Wrap(xerrors.CodeStoreUnavailable, err, msg)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

var _ community.Store = (*CommunityStore)(nil)

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"EnPeak/internal/community"
	"EnPeak/internal/config"
	"EnPeak/internal/report"
	"EnPeak/internal/session"
	"EnPeak/internal/storage/firestorestore"
	"EnPeak/internal/storage/redisstore"
	"EnPeak/internal/storage/sqlstore"
	"EnPeak/internal/tutor"
	"EnPeak/pkg/logger"
)

// backends 按需建立共享连接，并在退出时逆序关闭。
type backends struct {
	cfg     *config.Config
	db      *sqlstore.DB
	redis   *redisstore.Client
	closers []func() error
}

func (b *backends) sqlDB(ctx context.Context) (*sqlstore.DB, error) {
	if b.db != nil {
		return b.db, nil
	}
	db, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver: b.cfg.Storage.SQL.Driver,
		DSN:    b.cfg.Storage.SQL.DSN,
	})
	if err != nil {
		return nil, err
	}
	b.db = db
	b.closers = append(b.closers, db.Close)
	return db, nil
}

func (b *backends) redisClient(ctx context.Context) (*redisstore.Client, error) {
	if b.redis != nil {
		return b.redis, nil
	}
	rc := b.cfg.Storage.Redis
	client, err := redisstore.Dial(ctx, redisstore.Config{
		Addr:      rc.Addr,
		Password:  rc.Password,
		DB:        rc.DB,
		KeyPrefix: rc.KeyPrefix,
	})
	if err != nil {
		return nil, err
	}
	b.redis = client
	b.closers = append(b.closers, client.Close)
	return client, nil
}

func (b *backends) sessionTTL() time.Duration {
	return time.Duration(b.cfg.Storage.Sessions.TTLMinutes) * time.Minute
}

func (b *backends) sessionStore(ctx context.Context) (session.Store, error) {
	memory := session.NewMemoryStore(session.WithTTL(b.sessionTTL()))

	var primary session.Store
	switch b.cfg.Storage.Sessions.Driver {
	case "memory":
		return memory, nil
	case "sql":
		db, err := b.sqlDB(ctx)
		if err != nil {
			return nil, err
		}
		primary = sqlstore.NewSessionStore(db)
	case "redis":
		client, err := b.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		primary = redisstore.NewSessionStore(client, b.sessionTTL())
	default:
		return nil, fmt.Errorf("未知的会话存储驱动: %s", b.cfg.Storage.Sessions.Driver)
	}

	if b.cfg.Storage.Sessions.FallbackToMemory {
		return session.NewFallbackStore(primary, memory), nil
	}
	return primary, nil
}

func (b *backends) communityStore(ctx context.Context) (community.Store, error) {
	switch b.cfg.Storage.Community.Driver {
	case "memory":
		return community.NewMemoryStore(), nil
	case "sql":
		db, err := b.sqlDB(ctx)
		if err != nil {
			return nil, err
		}
		return sqlstore.NewCommunityStore(db), nil
	case "firestore":
		fs := b.cfg.Storage.Firestore
		store, err := firestorestore.NewCommunityStore(ctx, fs.ProjectID, fs.Collection)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("未知的社区存储驱动: %s", b.cfg.Storage.Community.Driver)
	}
}

func (b *backends) tutorHistory(ctx context.Context) (tutor.History, error) {
	switch b.cfg.Storage.TutorHistory.Driver {
	case "memory":
		return tutor.NewMemoryHistory(tutor.DefaultHistoryLimit), nil
	case "redis":
		client, err := b.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return redisstore.NewHistoryStore(client, tutor.DefaultHistoryLimit, b.sessionTTL()), nil
	default:
		return nil, fmt.Errorf("未知的对话历史驱动: %s", b.cfg.Storage.TutorHistory.Driver)
	}
}

func (b *backends) reportArchive(ctx context.Context) (report.Archive, error) {
	switch b.cfg.Storage.Archive.Driver {
	case "file":
		return report.NewFileArchive(b.cfg.Storage.Archive.Path)
	case "sql":
		db, err := b.sqlDB(ctx)
		if err != nil {
			return nil, err
		}
		return sqlstore.NewReportArchive(db), nil
	default:
		return nil, fmt.Errorf("未知的报告归档驱动: %s", b.cfg.Storage.Archive.Driver)
	}
}

func (b *backends) eventPublisher(ctx context.Context) (report.Publisher, error) {
	var publisher report.Publisher
	switch b.cfg.Events.Driver {
	case "log":
		return report.LogPublisher{}, nil
	case "rabbitmq":
		p, err := report.NewRabbitMQPublisher(report.RabbitMQConfig{
			URL:     b.cfg.Events.RabbitMQURL,
			Queue:   b.cfg.Events.Queue,
			Durable: true,
		})
		if err != nil {
			return nil, err
		}
		publisher = p
	case "redis":
		client, err := b.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		publisher = redisstore.NewEventPublisher(client, b.cfg.Events.RedisChannel)
	default:
		return nil, fmt.Errorf("未知的事件驱动: %s", b.cfg.Events.Driver)
	}
	b.closers = append(b.closers, publisher.Close)
	return publisher, nil
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logger.L().Warn("关闭存储连接失败", slog.String("error", err.Error()))
		}
	}
	b.closers = nil
}

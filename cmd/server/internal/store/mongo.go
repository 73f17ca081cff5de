package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNotConnected is returned when the store has no live client.
var ErrNotConnected = errors.New("mongo store not connected")

// MongoConfig MongoDB 连接参数
type MongoConfig struct {
	URL            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

type inserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

type pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// MongoStore writes transcription records to a single collection.
type MongoStore struct {
	client     *mongo.Client
	collection inserter
	pinger     pinger
	logger     *slog.Logger
}

// NewMongoStore 创建 MongoDB 客户端。
// 驱动按需建立连接，服务不可达时这里不会失败；调用 Ping 检查连通性。
func NewMongoStore(ctx context.Context, cfg MongoConfig, logger *slog.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("mongo url is required")
	}

	clientOpts := options.Client().ApplyURI(cfg.URL)
	if cfg.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(cfg.ConnectTimeout).SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		pinger:     client,
		logger: logger.With(
			"component", "mongo-store",
			"database", cfg.Database,
			"collection", cfg.Collection,
		),
	}, nil
}

// Insert 写入一条记录
func (s *MongoStore) Insert(ctx context.Context, record *Record) error {
	if s == nil || s.collection == nil {
		return ErrNotConnected
	}
	if record == nil {
		return fmt.Errorf("nil record")
	}

	res, err := s.collection.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("insert transcription %s: %w", record.VideoID, err)
	}

	s.logger.Debug("transcription record inserted",
		"video_id", record.VideoID,
		"inserted_id", res.InsertedID,
	)
	return nil
}

// Ping checks connectivity against the primary.
func (s *MongoStore) Ping(ctx context.Context) error {
	if s == nil || s.pinger == nil {
		return ErrNotConnected
	}
	if err := s.pinger.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

// Close 断开客户端连接
func (s *MongoStore) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

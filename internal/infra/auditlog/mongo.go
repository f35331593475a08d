// Package auditlog は監査ログをMongoDBに書く実装。
// AUDIT_SINK=mongo のときDB実装の代わりに使う
package auditlog

import (
	"context"
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/config"
	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type document struct {
	ActorUserID  int64     `bson:"actor_user_id"`
	Action       string    `bson:"action"`
	ResourceType string    `bson:"resource_type"`
	ResourceID   int64     `bson:"resource_id"`
	Before       string    `bson:"before"`
	After        string    `bson:"after"`
	CreatedAt    time.Time `bson:"created_at"`
}

type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ repo.AuditLogRepository = (*MongoSink)(nil)

func NewMongoSink(ctx context.Context, cfg config.MongoConfig) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (m *MongoSink) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoSink) Create(ctx context.Context, log model.AuditLog) error {
	_, err := m.collection.InsertOne(ctx, toDocument(log))
	return err
}

func (m *MongoSink) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	limit, offset := f.Window()

	//新しい順
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := m.collection.Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	logs := make([]model.AuditLog, 0, len(docs))
	for _, d := range docs {
		logs = append(logs, fromDocument(d))
	}
	return logs, nil
}

func buildFilter(f repo.AuditLogFilter) bson.M {
	filter := bson.M{}
	if f.ActorUserID != nil {
		filter["actor_user_id"] = *f.ActorUserID
	}
	if f.Action != nil {
		filter["action"] = string(*f.Action)
	}
	if f.ResourceType != nil {
		filter["resource_type"] = string(*f.ResourceType)
	}
	if f.ResourceID != nil {
		filter["resource_id"] = *f.ResourceID
	}

	created := bson.M{}
	if f.CreatedFrom != nil {
		created["$gte"] = *f.CreatedFrom
	}
	if f.CreatedTo != nil {
		created["$lte"] = *f.CreatedTo
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}
	return filter
}

func toDocument(l model.AuditLog) document {
	createdAt := l.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return document{
		ActorUserID:  l.ActorUserID,
		Action:       string(l.Action),
		ResourceType: string(l.ResourceType),
		ResourceID:   l.ResourceID,
		Before:       l.BeforeJSON,
		After:        l.AfterJSON,
		CreatedAt:    createdAt,
	}
}

func fromDocument(d document) model.AuditLog {
	return model.AuditLog{
		ActorUserID:  d.ActorUserID,
		Action:       model.AuditAction(d.Action),
		ResourceType: model.AuditResourceType(d.ResourceType),
		ResourceID:   d.ResourceID,
		BeforeJSON:   d.Before,
		AfterJSON:    d.After,
		CreatedAt:    d.CreatedAt,
	}
}

package store

import (
	"context"
	"errors"
	"fmt"

	db "github.com/KanapuramVaishnavi/Core/config/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Mongo implements DocumentStore on a mongo database. With a nil database it
// falls back to the collections opened by the Core server bootstrap.
type Mongo struct {
	database *mongo.Database
	logger   *zap.Logger
}

func NewMongo(database *mongo.Database, logger *zap.Logger) *Mongo {
	return &Mongo{database: database, logger: logger}
}

func (m *Mongo) collection(name string) *mongo.Collection {
	if m.database == nil {
		return db.OpenCollections(name)
	}
	return m.database.Collection(name)
}

func (m *Mongo) Get(ctx context.Context, collection, code string) (bson.M, error) {
	doc := bson.M{}
	err := db.FindOne(ctx, m.collection(collection), bson.M{"code": code}, &doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		m.logger.Error("find one failed", zap.String("collection", collection), zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("find %s/%s: %w", collection, code, err)
	}
	delete(doc, "_id")
	return doc, nil
}

func (m *Mongo) Query(ctx context.Context, collection string, filter bson.M) ([]bson.M, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cursor, err := m.collection(collection).Find(ctx, filter)
	if err != nil {
		m.logger.Error("find failed", zap.String("collection", collection), zap.Error(err))
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	docs := []bson.M{}
	if err := cursor.All(ctx, &docs); err != nil {
		m.logger.Error("cursor decode failed", zap.String("collection", collection), zap.Error(err))
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	for _, d := range docs {
		delete(d, "_id")
	}
	return docs, nil
}

func (m *Mongo) Create(ctx context.Context, collection string, doc bson.M) error {
	inserted, err := db.CreateOne(ctx, m.collection(collection), doc)
	if err != nil {
		m.logger.Error("create failed", zap.String("collection", collection), zap.Error(err))
		return fmt.Errorf("create %s: %w", collection, err)
	}
	m.logger.Debug("inserted", zap.String("collection", collection), zap.Any("id", inserted.InsertedID))
	return nil
}

func (m *Mongo) Update(ctx context.Context, collection, code string, fields bson.M) error {
	updated, err := db.UpdateOne(ctx, m.collection(collection), bson.M{"code": code}, bson.M{"$set": fields})
	if err != nil {
		m.logger.Error("update failed", zap.String("collection", collection), zap.String("code", code), zap.Error(err))
		return fmt.Errorf("update %s/%s: %w", collection, code, err)
	}
	if updated.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, collection, code string) error {
	deleted, err := db.DeleteOne(ctx, m.collection(collection), bson.M{"code": code})
	if err != nil {
		m.logger.Error("delete failed", zap.String("collection", collection), zap.String("code", code), zap.Error(err))
		return fmt.Errorf("delete %s/%s: %w", collection, code, err)
	}
	if deleted.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/arthur-debert/nanotodo/todo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultMongoDatabase = "todoapp"
	mongoCollection      = "todos"
)

// mongoTodo is the document shape stored in the todos collection
type mongoTodo struct {
	ID        primitive.ObjectID `bson:"_id"`
	Text      string             `bson:"text"`
	Completed bool               `bson:"completed"`
	CreatedAt time.Time          `bson:"createdAt"`
	Source    string             `bson:"source"`
}

func (d mongoTodo) toTodo() todo.Todo {
	return todo.Todo{
		ID:        d.ID.Hex(),
		Text:      d.Text,
		Completed: d.Completed,
		CreatedAt: d.CreatedAt.UTC(),
		Source:    todo.Source(d.Source),
	}
}

type mongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// NewMongo connects to the MongoDB deployment at uri. The database is taken
// from the URI path and defaults to "todoapp".
func NewMongo(ctx context.Context, uri string, opts ...Option) (todo.Store, error) {
	s := newSettings(opts)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, todo.WrapStoreError("open", fmt.Errorf("failed to connect: %w", err))
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, todo.WrapStoreError("open", fmt.Errorf("failed to ping: %w", err))
	}

	coll := client.Database(mongoDatabaseName(uri)).Collection(mongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, todo.WrapStoreError("open", fmt.Errorf("failed to create index: %w", err))
	}

	return &mongoStore{client: client, coll: coll, now: s.now}, nil
}

// mongoDatabaseName extracts the database from a connection string path
func mongoDatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultMongoDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return defaultMongoDatabase
}

func (s *mongoStore) Create(ctx context.Context, text string, source todo.Source) (todo.Todo, error) {
	oid := primitive.NewObjectID()
	// BSON dates carry milliseconds; truncate so the returned record matches
	// what a later read yields
	t, err := todo.New(oid.Hex(), text, source, s.now().UTC().Truncate(time.Millisecond))
	if err != nil {
		return todo.Todo{}, err
	}

	doc := mongoTodo{
		ID:        oid,
		Text:      t.Text,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
		Source:    string(t.Source),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return todo.Todo{}, todo.WrapStoreError("create", err)
	}
	return t, nil
}

func (s *mongoStore) List(ctx context.Context, opts todo.ListOptions) ([]todo.Todo, error) {
	filter := bson.M{}
	if opts.Completed != nil {
		filter["completed"] = *opts.Completed
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})

	cursor, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, todo.WrapStoreError("list", err)
	}
	var docs []mongoTodo
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, todo.WrapStoreError("list", err)
	}

	result := make([]todo.Todo, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toTodo())
	}
	return result, nil
}

func (s *mongoStore) Update(ctx context.Context, id string, completed bool) (todo.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return todo.Todo{}, todo.ErrNotFound
	}

	var doc mongoTodo
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"completed": completed}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return todo.Todo{}, todo.ErrNotFound
	}
	if err != nil {
		return todo.Todo{}, todo.WrapStoreError("update", err)
	}
	return doc.toTodo(), nil
}

func (s *mongoStore) Delete(ctx context.Context, id string) (todo.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return todo.Todo{}, todo.ErrNotFound
	}

	var doc mongoTodo
	err = s.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return todo.Todo{}, todo.ErrNotFound
	}
	if err != nil {
		return todo.Todo{}, todo.WrapStoreError("delete", err)
	}
	return doc.toTodo(), nil
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
)

// Mongo keeps one document per room in a rooms collection and serves the
// change feed off a change stream on that collection.
type Mongo struct {
	rooms *mongo.Collection
	log   *zap.SugaredLogger
}

func NewMongo(db *mongo.Database, log *zap.SugaredLogger) *Mongo {
	return &Mongo{rooms: db.Collection("rooms"), log: log}
}

// Connect dials the cluster and pings it before handing back a database.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetTimeout(15 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client.Database(dbName), nil
}

func (m *Mongo) Get(ctx context.Context, code string) (Doc, error) {
	var doc Doc
	err := m.rooms.FindOne(ctx, bson.M{"_id": code}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Doc{}, ErrNotFound
	}
	if err != nil {
		return Doc{}, fmt.Errorf("get room: %w", err)
	}
	return doc, nil
}

func (m *Mongo) Create(ctx context.Context, doc Doc) error {
	doc.UpdatedAt = time.Now().UTC()
	_, err := m.rooms.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// ClaimSeat is a single findOneAndUpdate: the filter only matches when the
// seat is empty or already ours, so two claimants cannot both win.
func (m *Mongo) ClaimSeat(ctx context.Context, code string, seat engine.Seat, playerID string) (Doc, error) {
	field := "seats." + string(seat)
	filter := bson.M{
		"_id": code,
		"$or": bson.A{
			bson.M{field: bson.M{"$exists": false}},
			bson.M{field: ""},
			bson.M{field: playerID},
		},
	}
	update := bson.M{
		"$set": bson.M{field: playerID, "updated_at": time.Now().UTC()},
		"$inc": bson.M{"rev": 1},
	}

	var doc Doc
	err := m.rooms.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Either the room is missing or the seat is held; disambiguate.
		if _, getErr := m.Get(ctx, code); getErr != nil {
			return Doc{}, getErr
		}
		return Doc{}, ErrSeatTaken
	}
	if err != nil {
		return Doc{}, fmt.Errorf("claim seat: %w", err)
	}
	return doc, nil
}

func (m *Mongo) Update(ctx context.Context, doc Doc) (Doc, error) {
	filter := bson.M{"_id": doc.Code, "rev": doc.Rev}
	update := bson.M{
		"$set": bson.M{
			"state":      doc.State,
			"seats":      doc.Seats,
			"updated_at": time.Now().UTC(),
		},
		"$inc": bson.M{"rev": 1},
	}

	var out Doc
	err := m.rooms.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := m.Get(ctx, doc.Code); getErr != nil {
			return Doc{}, getErr
		}
		return Doc{}, ErrRevisionConflict
	}
	if err != nil {
		return Doc{}, fmt.Errorf("update room: %w", err)
	}
	return out, nil
}

func (m *Mongo) Watch(ctx context.Context, code string) (<-chan Doc, func(), error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"fullDocument._id": code}}},
	}
	stream, err := m.rooms.Watch(ctx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, nil, fmt.Errorf("watch room: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Doc, 8)
	go func() {
		defer close(ch)
		defer stream.Close(context.Background())
		for stream.Next(watchCtx) {
			var ev struct {
				FullDocument Doc `bson:"fullDocument"`
			}
			if err := stream.Decode(&ev); err != nil {
				m.log.Warnw("change stream decode failed", "room", code, "error", err)
				continue
			}
			select {
			case ch <- ev.FullDocument:
			case <-watchCtx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && watchCtx.Err() == nil {
			m.log.Warnw("change stream ended", "room", code, "error", err)
		}
	}()
	return ch, cancel, nil
}

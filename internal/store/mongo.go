package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/guarzo/poe2gradegap/internal/model"
)

const (
	colGaps          = "analysis_result"
	colExclusions    = "excluded_modifier"
	colDistributions = "distribution_result"

	mongoConnectTimeout = 10 * time.Second
)

var (
	connectMongo = func(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
		return mongo.Connect(ctx, opts)
	}
	pingMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Ping(ctx, readpref.Primary())
	}
)

type exclusionDoc struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	model.ExclusionRule `bson:",inline"`
}

type gapDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	model.GapReport `bson:",inline"`
}

type distributionDoc struct {
	ID                       primitive.ObjectID `bson:"_id,omitempty"`
	model.DistributionReport `bson:",inline"`
}

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// OpenMongo connects to uri and verifies the server is reachable.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" || database == "" {
		return nil, errors.New("mongo uri and database are required")
	}
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	cli, err := connectMongo(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := pingMongo(ctx, cli); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	s := NewMongo(cli.Database(database))
	s.client = cli
	return s, nil
}

// NewMongo uses an existing database handle. Close on the result does not
// disconnect the client.
func NewMongo(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db, now: time.Now}
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *MongoStore) AddExclusion(ctx context.Context, r model.ExclusionRule) (model.ExclusionRule, error) {
	r, err := normalizeExclusion(r)
	if err != nil {
		return model.ExclusionRule{}, err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	r.Active = true

	doc := exclusionDoc{ID: primitive.NewObjectID(), ExclusionRule: r}
	if _, err := s.col(colExclusions).InsertOne(ctx, doc); err != nil {
		return model.ExclusionRule{}, fmt.Errorf("inserting exclusion: %w", err)
	}
	r.ID = doc.ID.Hex()
	return r, nil
}

func (s *MongoStore) ActiveExclusions(ctx context.Context) ([]model.ExclusionRule, error) {
	return s.ListExclusions(ctx, false)
}

func (s *MongoStore) ListExclusions(ctx context.Context, includeInactive bool) ([]model.ExclusionRule, error) {
	filter := bson.M{}
	if !includeInactive {
		filter["is_active"] = true
	}
	cur, err := s.col(colExclusions).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("querying exclusions: %w", err)
	}
	var docs []exclusionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding exclusions: %w", err)
	}

	out := make([]model.ExclusionRule, 0, len(docs))
	for _, d := range docs {
		r := d.ExclusionRule
		r.ID = d.ID.Hex()
		out = append(out, r)
	}
	return out, nil
}

func (s *MongoStore) UpdateExclusion(ctx context.Context, r model.ExclusionRule) error {
	oid, err := objectID(r.ID)
	if err != nil {
		return err
	}
	r, err = normalizeExclusion(r)
	if err != nil {
		return err
	}
	res, err := s.col(colExclusions).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"mod_name_pattern": r.NamePattern,
		"mod_tier":         r.Tier,
		"mod_type":         r.Group,
		"reason":           r.Reason,
		"is_active":        r.Active,
	}})
	if err != nil {
		return fmt.Errorf("updating exclusion: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeactivateExclusion(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.col(colExclusions).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"is_active": false}})
	if err != nil {
		return fmt.Errorf("deactivating exclusion: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SaveGap(ctx context.Context, r model.GapReport) (string, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	doc := gapDoc{ID: primitive.NewObjectID(), GapReport: r}
	if _, err := s.col(colGaps).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("inserting gap report: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (s *MongoStore) ListGaps(ctx context.Context, baseType string, limit int) ([]model.GapReport, error) {
	filter := bson.M{}
	if baseType != "" {
		filter["base_type"] = baseType
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(listLimit(limit)))

	cur, err := s.col(colGaps).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying gap reports: %w", err)
	}
	return decodeGaps(ctx, cur)
}

// LatestGaps returns the newest report of each base type, newest first.
func (s *MongoStore) LatestGaps(ctx context.Context, limit int) ([]model.GapReport, error) {
	cur, err := s.col(colGaps).Aggregate(ctx, latestPipeline(listLimit(limit)))
	if err != nil {
		return nil, fmt.Errorf("aggregating latest gap reports: %w", err)
	}
	return decodeGaps(ctx, cur)
}

func latestPipeline(limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$base_type"},
			{Key: "doc", Value: bson.D{{Key: "$first", Value: "$$ROOT"}}},
		}}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$doc"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}
}

func decodeGaps(ctx context.Context, cur *mongo.Cursor) ([]model.GapReport, error) {
	var docs []gapDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding gap reports: %w", err)
	}
	out := make([]model.GapReport, 0, len(docs))
	for _, d := range docs {
		r := d.GapReport
		r.ID = d.ID.Hex()
		out = append(out, r)
	}
	return out, nil
}

func (s *MongoStore) SaveDistribution(ctx context.Context, r model.DistributionReport) (string, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	doc := distributionDoc{ID: primitive.NewObjectID(), DistributionReport: r}
	if _, err := s.col(colDistributions).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("inserting distribution: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (s *MongoStore) ListDistributions(ctx context.Context, baseType string, limit int) ([]model.DistributionReport, error) {
	filter := bson.M{}
	if baseType != "" {
		filter["base_type"] = baseType
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(listLimit(limit)))

	cur, err := s.col(colDistributions).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying distributions: %w", err)
	}
	var docs []distributionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding distributions: %w", err)
	}
	out := make([]model.DistributionReport, 0, len(docs))
	for _, d := range docs {
		r := d.DistributionReport
		r.ID = d.ID.Hex()
		out = append(out, r)
	}
	return out, nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("exclusion %q: %w", id, ErrNotFound)
	}
	return oid, nil
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MongoStore)(nil)
)

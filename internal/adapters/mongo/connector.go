package mongo

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cinemalab/cinema-data/internal/config"
	"github.com/cinemalab/cinema-data/internal/dataset"
	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/observability"
)

var Collections = []string{CollectionMovies, CollectionGenres}

type Connector struct {
	cfg    config.Mongo
	client *mongo.Client
	logger observability.Logger
}

func NewConnector(cfg config.Mongo, logger observability.Logger) *Connector {
	return &Connector{cfg: cfg, logger: logger.WithField("source", "mongodb")}
}

func (c *Connector) Name() string     { return "mongodb" }
func (c *Connector) Database() string { return c.cfg.Database }
func (c *Connector) Host() string     { return c.cfg.URI }
func (c *Connector) Port() string     { return "" }
func (c *Connector) Tables() []string { return Collections }

// DB returns the catalog database once connected.
func (c *Connector) DB() *mongo.Database {
	if c.client == nil {
		return nil
	}
	return c.client.Database(c.cfg.Database)
}

func (c *Connector) Connect(ctx context.Context) error {
	client, err := Open(ctx, c.cfg)
	if err != nil {
		c.logger.WithError(err).Error("mongodb connection failed")
		return err
	}
	c.client = client
	c.logger.WithField("database", c.cfg.Database).Info("connected to mongodb")
	return nil
}

func (c *Connector) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	err := c.client.Disconnect(ctx)
	c.client = nil
	c.logger.Info("mongodb connection closed")
	return err
}

// Fetch reads a collection in _id order. A positive limit caps the documents.
func (c *Connector) Fetch(ctx context.Context, collection string, limit int) (dataset.Table, error) {
	if c.client == nil {
		return dataset.Table{}, errors.Wrap(domain.ErrConnection, "mongodb not connected")
	}
	if collection != CollectionMovies && collection != CollectionGenres {
		return dataset.Table{}, errors.Wrapf(domain.ErrInvalidInput, "unknown collection %q", collection)
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := c.DB().Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return dataset.Table{}, errors.Wrapf(err, "find %s", collection)
	}
	defer cur.Close(ctx)

	rows := []dataset.Record{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return dataset.Table{}, errors.Wrapf(err, "decode %s", collection)
		}
		rows = append(rows, dataset.NormalizeRecord(dataset.Record(normalizeBSON(doc).(map[string]any))))
	}
	if err := cur.Err(); err != nil {
		return dataset.Table{}, errors.Wrapf(err, "read %s", collection)
	}

	c.logger.WithFields(map[string]interface{}{"collection": collection, "rows": len(rows)}).Info("extracted collection")
	return dataset.Table{Name: collection, Columns: dataset.ColumnsOf(rows), Rows: rows}, nil
}

func (c *Connector) FetchMovies(ctx context.Context) (dataset.Table, error) {
	return c.Fetch(ctx, CollectionMovies, 0)
}

func (c *Connector) FetchGenres(ctx context.Context) (dataset.Table, error) {
	return c.Fetch(ctx, CollectionGenres, 0)
}

// normalizeBSON replaces driver types with plain values: ids become hex
// strings, datetimes become time.Time (formatted later) and documents and
// arrays become maps and slices.
func normalizeBSON(v any) any {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return x.String()
		}
		return f
	case primitive.Binary:
		return x.Data
	case int32:
		return int64(x)
	case bson.M:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalizeBSON(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalizeBSON(val)
		}
		return out
	}
	return v
}

var movieKeys = map[string]bool{
	"_id": true, "title": true, "description": true, "duration": true, "genre": true,
	"director": true, "cast": true, "releaseDate": true, "rating": true, "posterUrl": true,
	"trailerUrl": true, "isActive": true, "createdAt": true, "updatedAt": true,
}

// MoviesFrom types normalized movie records. Keys outside the known set are
// kept in Extra.
func MoviesFrom(t dataset.Table) []domain.Movie {
	out := make([]domain.Movie, 0, t.Len())
	for _, r := range t.Rows {
		m := domain.Movie{
			ID:          asString(r["_id"]),
			Title:       asString(r["title"]),
			Description: asString(r["description"]),
			Duration:    int(asFloat(r["duration"])),
			Genre:       asStrings(r["genre"]),
			Director:    asString(r["director"]),
			Cast:        asStrings(r["cast"]),
			ReleaseDate: asTime(r["releaseDate"]),
			Rating:      asFloat(r["rating"]),
			PosterURL:   asString(r["posterUrl"]),
			TrailerURL:  asString(r["trailerUrl"]),
			IsActive:    r["isActive"] == true,
			CreatedAt:   asTime(r["createdAt"]),
			UpdatedAt:   asTime(r["updatedAt"]),
		}
		m.Extra = extra(r, movieKeys)
		out = append(out, m)
	}
	return out
}

var genreKeys = map[string]bool{"_id": true, "name": true, "description": true, "createdAt": true, "updatedAt": true}

func GenresFrom(t dataset.Table) []domain.Genre {
	out := make([]domain.Genre, 0, t.Len())
	for _, r := range t.Rows {
		out = append(out, domain.Genre{
			ID:          asString(r["_id"]),
			Name:        asString(r["name"]),
			Description: asString(r["description"]),
			CreatedAt:   asTime(r["createdAt"]),
			UpdatedAt:   asTime(r["updatedAt"]),
			Extra:       extra(r, genreKeys),
		})
	}
	return out
}

func extra(r dataset.Record, known map[string]bool) map[string]any {
	var out map[string]any
	for k, v := range r {
		if known[k] {
			continue
		}
		if out == nil {
			out = map[string]any{}
		}
		out[k] = v
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	}
	return 0
}

func asTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func asStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

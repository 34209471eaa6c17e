package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/observability"
)

const (
	CollectionMovies = "movies"
	CollectionGenres = "genres"
)

type MovieDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Duration    int                `bson:"duration"`
	Genre       []string           `bson:"genre"`
	Director    string             `bson:"director"`
	Cast        []string           `bson:"cast"`
	ReleaseDate time.Time          `bson:"releaseDate"`
	Rating      float64            `bson:"rating"`
	PosterURL   string             `bson:"posterUrl"`
	TrailerURL  string             `bson:"trailerUrl"`
	IsActive    bool               `bson:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
	Extra       bson.M             `bson:",inline"`
}

func movieDoc(m domain.Movie) MovieDoc {
	d := MovieDoc{
		Title:       m.Title,
		Description: m.Description,
		Duration:    m.Duration,
		Genre:       m.Genre,
		Director:    m.Director,
		Cast:        m.Cast,
		ReleaseDate: m.ReleaseDate,
		Rating:      m.Rating,
		PosterURL:   m.PosterURL,
		TrailerURL:  m.TrailerURL,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if oid, err := primitive.ObjectIDFromHex(m.ID); err == nil {
		d.ID = oid
	}
	if len(m.Extra) > 0 {
		d.Extra = bson.M(m.Extra)
	}
	return d
}

func (d MovieDoc) Domain() domain.Movie {
	m := domain.Movie{
		Title:       d.Title,
		Description: d.Description,
		Duration:    d.Duration,
		Genre:       d.Genre,
		Director:    d.Director,
		Cast:        d.Cast,
		ReleaseDate: d.ReleaseDate,
		Rating:      d.Rating,
		PosterURL:   d.PosterURL,
		TrailerURL:  d.TrailerURL,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if !d.ID.IsZero() {
		m.ID = d.ID.Hex()
	}
	if len(d.Extra) > 0 {
		m.Extra = map[string]any(d.Extra)
	}
	return m
}

type GenreDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
	Extra       bson.M             `bson:",inline"`
}

func genreDoc(g domain.Genre) GenreDoc {
	d := GenreDoc{Name: g.Name, Description: g.Description, CreatedAt: g.CreatedAt, UpdatedAt: g.UpdatedAt}
	if oid, err := primitive.ObjectIDFromHex(g.ID); err == nil {
		d.ID = oid
	}
	if len(g.Extra) > 0 {
		d.Extra = bson.M(g.Extra)
	}
	return d
}

func (d GenreDoc) Domain() domain.Genre {
	g := domain.Genre{Name: d.Name, Description: d.Description, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
	if !d.ID.IsZero() {
		g.ID = d.ID.Hex()
	}
	if len(d.Extra) > 0 {
		g.Extra = map[string]any(d.Extra)
	}
	return g
}

// CatalogRepository writes the movie catalog.
type CatalogRepository struct {
	movies *mongo.Collection
	genres *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		movies: db.Collection(CollectionMovies),
		genres: db.Collection(CollectionGenres),
		logger: logger,
	}
}

// EnsureIndexes creates the catalog's lookup indexes.
func (c *CatalogRepository) EnsureIndexes(ctx context.Context) error {
	_, err := c.movies.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}}},
		{Keys: bson.D{{Key: "genre", Value: 1}}},
		{Keys: bson.D{{Key: "isActive", Value: 1}}},
		{Keys: bson.D{{Key: "releaseDate", Value: 1}}},
	})
	if err != nil {
		return errors.Wrap(err, "create movie indexes")
	}
	_, err = c.genres.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errors.Wrap(err, "create genre index")
}

// MovieWriter inserts one batch per InsertMany call.
type MovieWriter struct{ repo *CatalogRepository }

func (c *CatalogRepository) Movies() *MovieWriter { return &MovieWriter{repo: c} }

func (w *MovieWriter) WriteBatch(ctx context.Context, rows []domain.Movie) error {
	docs := make([]interface{}, len(rows))
	for i, m := range rows {
		docs[i] = movieDoc(m)
	}
	if _, err := w.repo.movies.InsertMany(ctx, docs); err != nil {
		w.repo.logger.WithError(err).Error("failed to insert movies")
		return errors.Wrap(err, "insert movies")
	}
	return nil
}

type GenreWriter struct{ repo *CatalogRepository }

func (c *CatalogRepository) Genres() *GenreWriter { return &GenreWriter{repo: c} }

func (w *GenreWriter) WriteBatch(ctx context.Context, rows []domain.Genre) error {
	docs := make([]interface{}, len(rows))
	for i, g := range rows {
		docs[i] = genreDoc(g)
	}
	if _, err := w.repo.genres.InsertMany(ctx, docs); err != nil {
		w.repo.logger.WithError(err).Error("failed to insert genres")
		return errors.Wrap(err, "insert genres")
	}
	return nil
}

// GenreCount reports how many genres exist, so seeding can skip them.
func (c *CatalogRepository) GenreCount(ctx context.Context) (int64, error) {
	n, err := c.genres.CountDocuments(ctx, bson.M{})
	return n, errors.Wrap(err, "count genres")
}

package generator

import (
	"strings"
	"time"

	"github.com/cinemalab/cinema-data/internal/domain"
)

var genreNames = []string{
	"Action", "Adventure", "Animation", "Biography", "Comedy", "Crime", "Documentary",
	"Drama", "Family", "Fantasy", "Film-Noir", "History", "Horror", "Music",
	"Musical", "Mystery", "Romance", "Sci-Fi", "Sport", "Thriller", "War", "Western",
}

var directors = []string{
	"Christopher Nolan", "Steven Spielberg", "Martin Scorsese", "Quentin Tarantino",
	"Stanley Kubrick", "Alfred Hitchcock", "Francis Ford Coppola", "Ridley Scott",
	"James Cameron", "Peter Jackson", "David Fincher", "Tim Burton",
	"Wes Anderson", "Coen Brothers", "Denis Villeneuve", "Damien Chazelle",
	"Jordan Peele", "Greta Gerwig", "Ari Aster", "Robert Eggers",
}

var actors = []string{
	"Leonardo DiCaprio", "Tom Hanks", "Meryl Streep", "Robert De Niro",
	"Al Pacino", "Denzel Washington", "Morgan Freeman", "Samuel L. Jackson",
	"Brad Pitt", "Johnny Depp", "Will Smith", "Tom Cruise",
	"Scarlett Johansson", "Emma Stone", "Jennifer Lawrence", "Natalie Portman",
	"Ryan Gosling", "Joaquin Phoenix", "Christian Bale", "Matthew McConaughey",
	"Amy Adams", "Cate Blanchett", "Sandra Bullock", "Julia Roberts",
}

var lorem = strings.Fields("lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod " +
	"tempor incididunt ut labore et dolore magna aliqua enim ad minim veniam quis nostrud " +
	"exercitation ullamco laboris nisi aliquip ex ea commodo consequat duis aute irure")

var (
	releaseFrom = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	releaseTo   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	catalogFrom = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
)

func (g *Generator) words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = g.pick(lorem)
	}
	return strings.Join(w, " ")
}

func (g *Generator) sentence() string {
	s := g.words(g.between(6, 14))
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

// Genres returns every genre exactly once.
func (g *Generator) Genres() []domain.Genre {
	out := make([]domain.Genre, len(genreNames))
	for i, name := range genreNames {
		created := g.timeBetween(catalogFrom, g.now())
		out[i] = domain.Genre{
			Name:        name,
			Description: g.sentence(),
			CreatedAt:   created,
			UpdatedAt:   g.timeBetween(created, g.now()),
		}
	}
	return out
}

func (g *Generator) Movie() domain.Movie {
	title := g.words(g.between(1, 4))
	paragraphs := make([]string, g.between(2, 4))
	for i := range paragraphs {
		paragraphs[i] = g.sentence() + " " + g.sentence()
	}
	created := g.timeBetween(catalogFrom, g.now())

	return domain.Movie{
		Title:       strings.ToUpper(title[:1]) + title[1:],
		Description: strings.Join(paragraphs, "\n"),
		Duration:    g.between(60, 200),
		Genre:       g.sample(genreNames, g.between(1, 3)),
		Director:    g.pick(directors),
		Cast:        g.sample(actors, g.between(3, 8)),
		ReleaseDate: g.timeBetween(releaseFrom, releaseTo),
		Rating:      float64(g.rnd.Intn(101)) / 10,
		PosterURL:   "https://example.com/posters/" + g.alnum(10) + ".jpg",
		TrailerURL:  "https://example.com/trailers/" + g.alnum(10) + ".mp4",
		IsActive:    g.chance(1, 2),
		CreatedAt:   created,
		UpdatedAt:   g.timeBetween(created, g.now()),
	}
}

func (g *Generator) Movies(n int) []domain.Movie {
	out := make([]domain.Movie, n)
	for i := range out {
		out[i] = g.Movie()
	}
	return out
}

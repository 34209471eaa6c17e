package domain

import "time"

// Movie is a catalog document. Keys outside the known set are kept in Extra.
type Movie struct {
	ID          string         `json:"_id,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Duration    int            `json:"duration"`
	Genre       []string       `json:"genre"`
	Director    string         `json:"director"`
	Cast        []string       `json:"cast"`
	ReleaseDate time.Time      `json:"releaseDate"`
	Rating      float64        `json:"rating"`
	PosterURL   string         `json:"posterUrl"`
	TrailerURL  string         `json:"trailerUrl"`
	IsActive    bool           `json:"isActive"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Extra       map[string]any `json:"-"`
}

type Genre struct {
	ID          string         `json:"_id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Extra       map[string]any `json:"-"`
}

package domain

import "time"

// ContentType distinguishes single films from multi-episode series.
type ContentType string

const (
	TypeMovie  ContentType = "movie"
	TypeSeries ContentType = "series"
)

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	return t == TypeMovie || t == TypeSeries
}

// Status controls public visibility of a catalog row.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Toggle flips active <-> inactive.
func (s Status) Toggle() Status {
	if s == StatusActive {
		return StatusInactive
	}
	return StatusActive
}

// Movie represents a catalog row: either a film or a series.
type Movie struct {
	ID          string
	Title       string
	TitleEn     *string
	Description string
	PosterURL   *string
	BackdropURL *string
	ReleaseYear int
	Duration    int
	Genre       []string
	Rating      float64
	Type        ContentType
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsSeries reports whether the row carries episodes.
func (m Movie) IsSeries() bool {
	return m.Type == TypeSeries
}

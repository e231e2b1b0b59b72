package domain

import "time"

// Episode belongs to a series row.
type Episode struct {
	ID            string
	MovieID       string
	SeasonNumber  int
	EpisodeNumber int
	Title         string
	Description   *string
	Duration      int
	ThumbnailURL  *string
	CreatedAt     time.Time
}

// Season groups the episodes of one season number.
type Season struct {
	Number   int
	Episodes []Episode
}

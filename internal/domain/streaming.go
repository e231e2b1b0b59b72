package domain

import "time"

// StreamingLink points at a third-party player for a movie or one of its episodes.
// A nil EpisodeID marks a movie-level link.
type StreamingLink struct {
	ID         string
	MovieID    string
	EpisodeID  *string
	ServerName string
	Quality    string
	URL        string
	EmbedCode  *string
	IsActive   bool
	CreatedAt  time.Time
}

// MovieView is a single recorded playback page hit.
type MovieView struct {
	ID        string
	MovieID   string
	EpisodeID *string
	IPAddress *string
	UserAgent *string
	ViewedAt  time.Time
}

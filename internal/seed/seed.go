// Package seed loads catalog rows from a YAML file and inserts them.
//
// Example file:
//
//	movies:
//	  - title: الرحلة الأخيرة
//	    title_en: The Last Journey
//	    description: قصة مغامرة في الصحراء
//	    release_year: 2023
//	    duration: 118
//	    genre: [مغامرة, دراما]
//	    rating: 8.1
//	    type: movie
//	    links:
//	      - server: DoodStream
//	        quality: 1080p
//	        url: https://dood.example/e/abc
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Clark-Hu/cinema-online/internal/catalog"
	"github.com/Clark-Hu/cinema-online/internal/domain"
)

// File is the document root.
type File struct {
	Movies []Movie `yaml:"movies"`
}

// Movie is one catalog row with its links and episodes.
type Movie struct {
	Title       string    `yaml:"title"`
	TitleEn     string    `yaml:"title_en"`
	Description string    `yaml:"description"`
	PosterURL   string    `yaml:"poster_url"`
	BackdropURL string    `yaml:"backdrop_url"`
	ReleaseYear int       `yaml:"release_year"`
	Duration    int       `yaml:"duration"`
	Genre       []string  `yaml:"genre"`
	Rating      float64   `yaml:"rating"`
	Type        string    `yaml:"type"`
	Status      string    `yaml:"status"`
	Links       []Link    `yaml:"links"`
	Episodes    []Episode `yaml:"episodes"`
}

// Episode belongs to a series row.
type Episode struct {
	Season       int    `yaml:"season"`
	Number       int    `yaml:"episode"`
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	Duration     int    `yaml:"duration"`
	ThumbnailURL string `yaml:"thumbnail_url"`
	Links        []Link `yaml:"links"`
}

// Link is a streaming link.
type Link struct {
	Server    string `yaml:"server"`
	Quality   string `yaml:"quality"`
	URL       string `yaml:"url"`
	EmbedCode string `yaml:"embed_code"`
	Inactive  bool   `yaml:"inactive"`
}

// Catalog is the write side of catalog.Service used by Apply.
type Catalog interface {
	CreateMovie(ctx context.Context, in catalog.MovieInput) (domain.Movie, error)
	CreateStreamingLink(ctx context.Context, in catalog.LinkInput) (domain.StreamingLink, error)
	CreateEpisode(ctx context.Context, in catalog.EpisodeInput) (domain.Episode, error)
}

// Summary counts what Apply stored and skipped.
type Summary struct {
	Movies          int
	Episodes        int
	Links           int
	SkippedLinks    int
	SkippedEpisodes int
}

// LoadFile reads and decodes a seed file.
func LoadFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a seed document. Unknown keys are rejected.
func Decode(r io.Reader) (File, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("decode seed file: %w", err)
	}
	return file, nil
}

// Apply inserts every row. A row that fails validation or insert aborts the run;
// failing episodes and links are logged and skipped.
func Apply(ctx context.Context, cat Catalog, file File, logger *logrus.Entry) (Summary, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	var sum Summary
	for i, row := range file.Movies {
		movie, err := cat.CreateMovie(ctx, row.input())
		if err != nil {
			return sum, fmt.Errorf("movie #%d %q: %w", i+1, row.Title, err)
		}
		sum.Movies++
		log := logger.WithFields(logrus.Fields{"movie_id": movie.ID, "title": movie.Title})

		for _, l := range row.Links {
			if _, err := cat.CreateStreamingLink(ctx, l.input(movie.ID, nil)); err != nil {
				log.WithError(err).Warn("seed link skipped")
				sum.SkippedLinks++
				continue
			}
			sum.Links++
		}

		for _, e := range row.Episodes {
			ep, err := cat.CreateEpisode(ctx, catalog.EpisodeInput{
				MovieID:       movie.ID,
				SeasonNumber:  e.Season,
				EpisodeNumber: e.Number,
				Title:         e.Title,
				Description:   optional(e.Description),
				Duration:      e.Duration,
				ThumbnailURL:  optional(e.ThumbnailURL),
			})
			if err != nil {
				log.WithFields(logrus.Fields{"season": e.Season, "episode": e.Number}).WithError(err).Warn("seed episode skipped")
				sum.SkippedEpisodes++
				continue
			}
			sum.Episodes++
			for _, l := range e.Links {
				if _, err := cat.CreateStreamingLink(ctx, l.input(movie.ID, &ep.ID)); err != nil {
					log.WithField("episode_id", ep.ID).WithError(err).Warn("seed link skipped")
					sum.SkippedLinks++
					continue
				}
				sum.Links++
			}
		}
		log.Info("seeded")
	}
	return sum, nil
}

func (m Movie) input() catalog.MovieInput {
	return catalog.MovieInput{
		Title:       m.Title,
		TitleEn:     optional(m.TitleEn),
		Description: m.Description,
		PosterURL:   optional(m.PosterURL),
		BackdropURL: optional(m.BackdropURL),
		ReleaseYear: m.ReleaseYear,
		Duration:    m.Duration,
		Genre:       m.Genre,
		Rating:      m.Rating,
		Type:        domain.ContentType(m.Type),
		Status:      domain.Status(m.Status),
	}
}

func (l Link) input(movieID string, episodeID *string) catalog.LinkInput {
	return catalog.LinkInput{
		MovieID:    movieID,
		EpisodeID:  episodeID,
		ServerName: l.Server,
		Quality:    l.Quality,
		URL:        l.URL,
		EmbedCode:  optional(l.EmbedCode),
		IsActive:   !l.Inactive,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

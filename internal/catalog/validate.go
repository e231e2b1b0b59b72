package catalog

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/Clark-Hu/cinema-online/internal/domain"
)

const (
	minReleaseYear = 1900
	maxRating      = 10
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func normalizeMovie(in MovieInput) MovieInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.TitleEn = optional(in.TitleEn)
	in.PosterURL = optional(in.PosterURL)
	in.BackdropURL = optional(in.BackdropURL)
	in.Genre = NormalizeGenres(in.Genre)
	in.Rating = roundRating(in.Rating)
	if in.Type == "" {
		in.Type = domain.TypeMovie
	}
	if in.Status == "" {
		in.Status = domain.StatusActive
	}
	return in
}

func validateMovie(in MovieInput) error {
	if in.Title == "" {
		return invalid("title", "title is required")
	}
	if in.Description == "" {
		return invalid("description", "description is required")
	}
	if !in.Type.Valid() {
		return invalid("type", "type must be movie or series")
	}
	if !in.Status.Valid() {
		return invalid("status", "status must be active or inactive")
	}
	if err := validateRating(in.Rating); err != nil {
		return err
	}
	if err := validateYear(in.ReleaseYear); err != nil {
		return err
	}
	if in.Duration < 0 {
		return invalid("duration", "duration must not be negative")
	}
	return nil
}

func normalizePatch(p MoviePatch) MoviePatch {
	if p.Title != nil {
		v := strings.TrimSpace(*p.Title)
		p.Title = &v
	}
	if p.Description != nil {
		v := strings.TrimSpace(*p.Description)
		p.Description = &v
	}
	if p.Genre != nil {
		p.Genre = NormalizeGenres(p.Genre)
	}
	if p.Rating != nil {
		v := roundRating(*p.Rating)
		p.Rating = &v
	}
	return p
}

func validatePatch(p MoviePatch) error {
	if p.Title != nil && *p.Title == "" {
		return invalid("title", "title must not be empty")
	}
	if p.Description != nil && *p.Description == "" {
		return invalid("description", "description must not be empty")
	}
	if p.Type != nil && !p.Type.Valid() {
		return invalid("type", "type must be movie or series")
	}
	if p.Status != nil && !p.Status.Valid() {
		return invalid("status", "status must be active or inactive")
	}
	if p.Rating != nil {
		if err := validateRating(*p.Rating); err != nil {
			return err
		}
	}
	if p.ReleaseYear != nil {
		if err := validateYear(*p.ReleaseYear); err != nil {
			return err
		}
	}
	if p.Duration != nil && *p.Duration < 0 {
		return invalid("duration", "duration must not be negative")
	}
	return nil
}

// roundRating keeps one decimal place. NaN and infinities pass through for validateRating to reject.
func roundRating(r float64) float64 {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return r
	}
	return math.Round(r*10) / 10
}

func validateRating(r float64) error {
	if math.IsNaN(r) || r < 0 || r > maxRating {
		return invalid("rating", "rating must be between 0 and 10")
	}
	return nil
}

// A zero year means unknown.
func validateYear(year int) error {
	if year == 0 {
		return nil
	}
	maxYear := time.Now().Year() + 5
	if year < minReleaseYear || year > maxYear {
		return invalid("release_year", fmt.Sprintf("release year must be between %d and %d", minReleaseYear, maxYear))
	}
	return nil
}

func normalizeLink(in LinkInput) LinkInput {
	in.ServerName = strings.TrimSpace(in.ServerName)
	in.Quality = strings.TrimSpace(in.Quality)
	in.URL = strings.TrimSpace(in.URL)
	in.EmbedCode = optional(in.EmbedCode)
	in.EpisodeID = optional(in.EpisodeID)
	return in
}

func validateLink(in LinkInput) error {
	if !validID(in.MovieID) {
		return invalid("movie_id", "movie_id must be a valid id")
	}
	if in.EpisodeID != nil && !validID(*in.EpisodeID) {
		return invalid("episode_id", "episode_id must be a valid id")
	}
	if in.ServerName == "" {
		return invalid("server_name", "server name is required")
	}
	if in.Quality == "" {
		return invalid("quality", "quality is required")
	}
	if !IsHTTPURL(in.URL) {
		return invalid("url", "url must be an absolute http(s) address")
	}
	return nil
}

func normalizeEpisode(in EpisodeInput) EpisodeInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = optional(in.Description)
	in.ThumbnailURL = optional(in.ThumbnailURL)
	return in
}

func validateEpisode(in EpisodeInput) error {
	if !validID(in.MovieID) {
		return invalid("movie_id", "movie_id must be a valid id")
	}
	if in.SeasonNumber <= 0 {
		return invalid("season_number", "season number must be positive")
	}
	if in.EpisodeNumber <= 0 {
		return invalid("episode_number", "episode number must be positive")
	}
	if in.Title == "" {
		return invalid("title", "title is required")
	}
	if in.Duration < 0 {
		return invalid("duration", "duration must not be negative")
	}
	return nil
}

// NormalizeGenres trims each tag and drops blanks and duplicates, keeping first-seen order.
func NormalizeGenres(genres []string) []string {
	out := make([]string, 0, len(genres))
	seen := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// SplitGenres parses the comma separated genre field of the admin form.
// Both the Latin and the Arabic comma are accepted.
func SplitGenres(raw string) []string {
	raw = strings.ReplaceAll(raw, "،", ",")
	return NormalizeGenres(strings.Split(raw, ","))
}

// IsHTTPURL reports whether raw is an absolute http or https URL with a host.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

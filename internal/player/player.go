// Package player turns a movie's streaming links into what the watch page renders:
// server groups, the selected link and a sanitised iframe source.
package player

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Clark-Hu/cinema-online/internal/catalog"
	"github.com/Clark-Hu/cinema-online/internal/domain"
)

// ServerGroup holds the links of one server, in the order they were listed.
type ServerGroup struct {
	Name  string
	Icon  string
	Links []domain.StreamingLink
}

// View is the watch page model.
type View struct {
	Movie    domain.Movie
	Episode  *domain.Episode
	Groups   []ServerGroup
	Selected *domain.StreamingLink
	// Source is the iframe src for Selected; empty when nothing can be played.
	Source string
}

// HasLinks reports whether any server is available.
func (v View) HasLinks() bool {
	return len(v.Groups) > 0
}

// Build filters links to the episode (or to movie-level links when episode is nil),
// groups them by server and picks selectedID, falling back to the first link.
func Build(movie domain.Movie, episode *domain.Episode, links []domain.StreamingLink, selectedID string) View {
	view := View{Movie: movie, Episode: episode}

	available := Filter(links, episode)
	view.Groups = Group(available)
	if len(available) == 0 {
		return view
	}

	view.Selected = &available[0]
	for i := range available {
		if available[i].ID == selectedID {
			view.Selected = &available[i]
			break
		}
	}
	view.Source = Source(*view.Selected)
	return view
}

// Filter keeps links belonging to episode, or movie-level links when episode is nil.
func Filter(links []domain.StreamingLink, episode *domain.Episode) []domain.StreamingLink {
	out := make([]domain.StreamingLink, 0, len(links))
	for _, link := range links {
		if episode == nil {
			if link.EpisodeID == nil {
				out = append(out, link)
			}
			continue
		}
		if link.EpisodeID != nil && *link.EpisodeID == episode.ID {
			out = append(out, link)
		}
	}
	return out
}

// Group buckets links by server name in first-appearance order.
func Group(links []domain.StreamingLink) []ServerGroup {
	index := make(map[string]int)
	groups := make([]ServerGroup, 0)
	for _, link := range links {
		i, ok := index[link.ServerName]
		if !ok {
			i = len(groups)
			index[link.ServerName] = i
			groups = append(groups, ServerGroup{Name: link.ServerName, Icon: Icon(link.ServerName)})
		}
		groups[i].Links = append(groups[i].Links, link)
	}
	return groups
}

// Icon names the glyph shown next to a server.
func Icon(server string) string {
	switch strings.ToLower(strings.TrimSpace(server)) {
	case "doodstream":
		return "monitor"
	case "uqload":
		return "smartphone"
	default:
		return "tv"
	}
}

// Source returns the iframe src to play link. The embed code is parsed rather
// than rendered; when it yields no usable http(s) src the link URL is used.
func Source(link domain.StreamingLink) string {
	if link.EmbedCode != nil {
		if src, ok := EmbedSource(*link.EmbedCode); ok {
			return src
		}
	}
	if catalog.IsHTTPURL(link.URL) {
		return link.URL
	}
	return ""
}

// EmbedSource extracts the src of the first iframe in an embed snippet.
func EmbedSource(embed string) (string, bool) {
	if strings.TrimSpace(embed) == "" {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(embed))
	if err != nil {
		return "", false
	}
	src, ok := doc.Find("iframe[src]").First().Attr("src")
	if !ok {
		return "", false
	}
	src = strings.TrimSpace(src)
	if !catalog.IsHTTPURL(src) {
		return "", false
	}
	return src, true
}

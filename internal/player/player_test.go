package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/cinema-online/internal/domain"
)

func strPtr(s string) *string { return &s }

func link(id, server, quality string, episodeID *string) domain.StreamingLink {
	return domain.StreamingLink{
		ID:         id,
		MovieID:    "m1",
		EpisodeID:  episodeID,
		ServerName: server,
		Quality:    quality,
		URL:        "https://" + id + ".example/embed",
		IsActive:   true,
	}
}

func TestBuildMovieLevel(t *testing.T) {
	links := []domain.StreamingLink{
		link("a", "DoodStream", "1080p", nil),
		link("b", "Uqload", "720p", nil),
		link("c", "DoodStream", "720p", nil),
		link("d", "DoodStream", "480p", strPtr("ep1")),
	}

	view := Build(domain.Movie{ID: "m1"}, nil, links, "")
	require.True(t, view.HasLinks())
	require.Len(t, view.Groups, 2)
	assert.Equal(t, "DoodStream", view.Groups[0].Name)
	assert.Equal(t, "monitor", view.Groups[0].Icon)
	assert.Len(t, view.Groups[0].Links, 2)
	assert.Equal(t, "Uqload", view.Groups[1].Name)
	assert.Equal(t, "smartphone", view.Groups[1].Icon)

	require.NotNil(t, view.Selected)
	assert.Equal(t, "a", view.Selected.ID)
	assert.Equal(t, "https://a.example/embed", view.Source)
}

func TestBuildEpisodeAndSelection(t *testing.T) {
	links := []domain.StreamingLink{
		link("a", "Server", "1080p", nil),
		link("b", "Server", "720p", strPtr("ep1")),
		link("c", "Other", "480p", strPtr("ep1")),
		link("d", "Other", "480p", strPtr("ep2")),
	}
	ep := &domain.Episode{ID: "ep1", SeasonNumber: 1, EpisodeNumber: 1}

	view := Build(domain.Movie{ID: "m1"}, ep, links, "c")
	require.Len(t, view.Groups, 2)
	assert.Equal(t, "c", view.Selected.ID)

	view = Build(domain.Movie{ID: "m1"}, ep, links, "d")
	assert.Equal(t, "b", view.Selected.ID, "a link from another episode cannot be selected")
}

func TestBuildWithoutLinks(t *testing.T) {
	view := Build(domain.Movie{ID: "m1"}, nil, nil, "x")
	assert.False(t, view.HasLinks())
	assert.Nil(t, view.Selected)
	assert.Empty(t, view.Source)
}

func TestSourcePrefersEmbedIframe(t *testing.T) {
	l := link("a", "S", "HD", nil)
	l.EmbedCode = strPtr(`<div><IFRAME SRC=" https://player.example/e/42 " allowfullscreen></IFRAME></div>`)
	assert.Equal(t, "https://player.example/e/42", Source(l))
}

func TestSourceFallsBackToURL(t *testing.T) {
	tests := []struct {
		name  string
		embed string
	}{
		{"script only", `<script>alert(1)</script>`},
		{"javascript src", `<iframe src="javascript:alert(1)"></iframe>`},
		{"relative src", `<iframe src="/embed/1"></iframe>`},
		{"protocol relative", `<iframe src="//evil.example/x"></iframe>`},
		{"blank", `   `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := link("a", "S", "HD", nil)
			l.EmbedCode = strPtr(tt.embed)
			assert.Equal(t, l.URL, Source(l))
		})
	}
}

func TestSourceRejectsUnsafeURL(t *testing.T) {
	l := link("a", "S", "HD", nil)
	l.URL = "javascript:alert(1)"
	assert.Empty(t, Source(l))
}

func FuzzEmbedSource(f *testing.F) {
	seeds := []string{
		`<iframe src="https://a.example/e"></iframe>`,
		`<iframe src='http://b.example'>`,
		`<iframe>`,
		`<<<>>>`,
		"",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, embed string) {
		src, ok := EmbedSource(embed)
		if !ok {
			if src != "" {
				t.Fatalf("src %q returned with ok=false", src)
			}
			return
		}
		l := domain.StreamingLink{EmbedCode: &embed}
		if got := Source(l); got != src {
			t.Fatalf("Source=%q, EmbedSource=%q", got, src)
		}
	})
}

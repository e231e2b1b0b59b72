package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/cinema-online/internal/catalog"
	"github.com/Clark-Hu/cinema-online/internal/catalog/catalogtest"
	"github.com/Clark-Hu/cinema-online/internal/domain"
	"github.com/Clark-Hu/cinema-online/internal/metrics"
)

func strPtr(s string) *string { return &s }

func seedMovie(t *testing.T, svc *catalog.Service, title string, typ domain.ContentType, rating float64, genres ...string) domain.Movie {
	t.Helper()
	m, err := svc.CreateMovie(context.Background(), catalog.MovieInput{
		Title:       title,
		Description: title + " description",
		Type:        typ,
		Rating:      rating,
		Genre:       genres,
	})
	require.NoError(t, err)
	return m
}

func TestCreateMovieNormalizesInput(t *testing.T) {
	svc := catalogtest.NewService(catalogtest.New())

	m, err := svc.CreateMovie(context.Background(), catalog.MovieInput{
		Title:       "  الرحلة  ",
		TitleEn:     strPtr("   "),
		Description: " قصة ",
		Genre:       []string{" دراما", "", "دراما", "أكشن "},
	})
	require.NoError(t, err)

	assert.Equal(t, "الرحلة", m.Title)
	assert.Nil(t, m.TitleEn)
	assert.Equal(t, "قصة", m.Description)
	assert.Equal(t, []string{"دراما", "أكشن"}, m.Genre)
	assert.Equal(t, domain.TypeMovie, m.Type)
	assert.Equal(t, domain.StatusActive, m.Status)
}

func TestCreateMovieValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    catalog.MovieInput
		field string
	}{
		{"missing title", catalog.MovieInput{Description: "d"}, "title"},
		{"missing description", catalog.MovieInput{Title: "t"}, "description"},
		{"bad type", catalog.MovieInput{Title: "t", Description: "d", Type: "anime"}, "type"},
		{"bad status", catalog.MovieInput{Title: "t", Description: "d", Status: "draft"}, "status"},
		{"rating too high", catalog.MovieInput{Title: "t", Description: "d", Rating: 10.5}, "rating"},
		{"negative rating", catalog.MovieInput{Title: "t", Description: "d", Rating: -1}, "rating"},
		{"nan rating", catalog.MovieInput{Title: "t", Description: "d", Rating: math.NaN()}, "rating"},
		{"infinite rating", catalog.MovieInput{Title: "t", Description: "d", Rating: math.Inf(1)}, "rating"},
		{"ancient year", catalog.MovieInput{Title: "t", Description: "d", ReleaseYear: 1800}, "release_year"},
		{"far future year", catalog.MovieInput{Title: "t", Description: "d", ReleaseYear: 9999}, "release_year"},
		{"negative duration", catalog.MovieInput{Title: "t", Description: "d", Duration: -3}, "duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := catalogtest.New()
			svc := catalogtest.NewService(db)
			_, err := svc.CreateMovie(context.Background(), tt.in)

			var verr *catalog.ValidationError
			require.True(t, errors.As(err, &verr), "want catalog.ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, db.Movies)
		})
	}
}

func TestRatingKeepsOneDecimal(t *testing.T) {
	svc := catalogtest.NewService(catalogtest.New())
	ctx := context.Background()

	m := seedMovie(t, svc, "الرحلة", domain.TypeMovie, 7.25)
	assert.Equal(t, 7.3, m.Rating)

	rating := 8.04
	got, err := svc.UpdateMovie(ctx, m.ID, catalog.MoviePatch{Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 8.0, got.Rating)

	nan := math.NaN()
	_, err = svc.UpdateMovie(ctx, m.ID, catalog.MoviePatch{Rating: &nan})
	var verr *catalog.ValidationError
	require.True(t, errors.As(err, &verr), "want catalog.ValidationError, got %v", err)
	assert.Equal(t, "rating", verr.Field)
}

func TestGetMovieHidesInactiveAndMalformedIDs(t *testing.T) {
	svc := catalogtest.NewService(catalogtest.New())
	ctx := context.Background()

	m := seedMovie(t, svc, "Hidden", domain.TypeMovie, 7)
	_, err := svc.SetStatus(ctx, m.ID, domain.StatusInactive)
	require.NoError(t, err)

	_, err = svc.GetMovie(ctx, m.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = svc.GetMovie(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	stored, err := svc.GetAnyMovie(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, stored.Status)
}

func TestToggleStatus(t *testing.T) {
	svc := catalogtest.NewService(catalogtest.New())
	ctx := context.Background()
	m := seedMovie(t, svc, "Toggle", domain.TypeMovie, 5)

	got, err := svc.ToggleStatus(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, got.Status)

	got, err = svc.ToggleStatus(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)
}

func TestListMoviesFiltersByType(t *testing.T) {
	svc := catalogtest.NewService(catalogtest.New())
	ctx := context.Background()
	seedMovie(t, svc, "Film A", domain.TypeMovie, 6)
	seedMovie(t, svc, "Show B", domain.TypeSeries, 8)
	seedMovie(t, svc, "Film C", domain.TypeMovie, 7)

	series := domain.TypeSeries
	items, err := svc.ListMovies(ctx, &series, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Show B", items[0].Title)

	all, err := svc.ListMovies(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Film C", all[0].Title, "newest first")
}

func TestSearch(t *testing.T) {
	db := catalogtest.New()
	svc := catalogtest.NewService(db)
	ctx := context.Background()
	seedMovie(t, svc, "Desert Road", domain.TypeMovie, 6)
	seedMovie(t, svc, "Desert Sky", domain.TypeSeries, 9)
	seedMovie(t, svc, "Ocean", domain.TypeMovie, 8)

	t.Run("short query skips the store", func(t *testing.T) {
		db.LastFilter.Query = nil
		items, err := svc.Search(ctx, " d ")
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.Nil(t, db.LastFilter.Query)
	})

	t.Run("two arabic runes are enough", func(t *testing.T) {
		_, err := svc.Search(ctx, "حب")
		require.NoError(t, err)
		require.NotNil(t, db.LastFilter.Query)
		assert.Equal(t, "حب", *db.LastFilter.Query)
	})

	t.Run("ordered by rating and capped", func(t *testing.T) {
		items, err := svc.Search(ctx, "  desert ")
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Desert Sky", items[0].Title)
		assert.Equal(t, catalog.SearchLimit, db.LastFilter.Limit)
		assert.Equal(t, domain.StatusActive, *db.LastFilter.Status)
	})
}

func TestTopRatedAndByGenreDefaults(t *testing.T) {
	svc := catalogtest.NewService(catalogtest.New())
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		seedMovie(t, svc, fmt.Sprintf("Title %02d", i), domain.TypeMovie, float64(i%10), "دراما")
	}

	top, err := svc.TopRated(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, catalog.DefaultShelfLimit)
	assert.Equal(t, 9.0, top[0].Rating)

	drama, err := svc.ByGenre(ctx, "دراما", 3)
	require.NoError(t, err)
	assert.Len(t, drama, 3)

	none, err := svc.ByGenre(ctx, "  ", 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateMovieWithLinksSkipsFailures(t *testing.T) {
	db := catalogtest.New()
	db.FailLinks["https://broken.example/embed"] = true
	svc := catalogtest.NewService(db)

	m, stored, err := svc.CreateMovieWithLinks(context.Background(),
		catalog.MovieInput{Title: "Bundle", Description: "with links"},
		[]catalog.LinkInput{
			{ServerName: "Server 1", Quality: "1080p", URL: "https://one.example/embed"},
			{ServerName: "Server 2", Quality: "720p", URL: "   "},
			{ServerName: "Server 3", Quality: "720p", URL: "https://broken.example/embed"},
			{ServerName: "", Quality: "480p", URL: "https://nameless.example/embed"},
			{ServerName: "Server 5", Quality: "480p", URL: "https://five.example/embed"},
		})
	require.NoError(t, err)
	assert.Equal(t, 2, stored)
	require.Len(t, db.Links, 2)
	for _, l := range db.Links {
		assert.Equal(t, m.ID, l.MovieID)
		assert.True(t, l.IsActive)
	}
}

func TestCreateStreamingLinkValidation(t *testing.T) {
	svc := catalogtest.NewService(catalogtest.New())
	ctx := context.Background()
	m := seedMovie(t, svc, "Linked", domain.TypeMovie, 5)

	_, err := svc.CreateStreamingLink(ctx, catalog.LinkInput{MovieID: m.ID, ServerName: "S", Quality: "HD", URL: "javascript:alert(1)"})
	var verr *catalog.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "url", verr.Field)

	_, err = svc.CreateStreamingLink(ctx, catalog.LinkInput{MovieID: m.ID, EpisodeID: strPtr("x"), ServerName: "S", Quality: "HD", URL: "https://a.example"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "episode_id", verr.Field)

	link, err := svc.CreateStreamingLink(ctx, catalog.LinkInput{MovieID: m.ID, EpisodeID: strPtr(" "), ServerName: " S ", Quality: "HD", URL: "https://a.example", IsActive: true})
	require.NoError(t, err)
	assert.Nil(t, link.EpisodeID)
	assert.Equal(t, "S", link.ServerName)
}

func TestListStreamingLinksScopesEpisodes(t *testing.T) {
	svc := catalogtest.NewService(catalogtest.New())
	ctx := context.Background()
	show := seedMovie(t, svc, "Show", domain.TypeSeries, 7)
	ep, err := svc.CreateEpisode(ctx, catalog.EpisodeInput{MovieID: show.ID, SeasonNumber: 1, EpisodeNumber: 1, Title: "Pilot"})
	require.NoError(t, err)

	_, err = svc.CreateStreamingLink(ctx, catalog.LinkInput{MovieID: show.ID, ServerName: "Trailer", Quality: "HD", URL: "https://t.example", IsActive: true})
	require.NoError(t, err)
	_, err = svc.CreateStreamingLink(ctx, catalog.LinkInput{MovieID: show.ID, EpisodeID: &ep.ID, ServerName: "Ep", Quality: "HD", URL: "https://e.example", IsActive: true})
	require.NoError(t, err)

	movieLevel, err := svc.ListStreamingLinks(ctx, show.ID, nil)
	require.NoError(t, err)
	require.Len(t, movieLevel, 1)
	assert.Equal(t, "Trailer", movieLevel[0].ServerName)

	episodeLevel, err := svc.ListStreamingLinks(ctx, show.ID, &ep.ID)
	require.NoError(t, err)
	require.Len(t, episodeLevel, 1)
	assert.Equal(t, "Ep", episodeLevel[0].ServerName)

	bad := "nope"
	none, err := svc.ListStreamingLinks(ctx, show.ID, &bad)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateEpisodeValidation(t *testing.T) {
	svc := catalogtest.NewService(catalogtest.New())
	ctx := context.Background()
	show := seedMovie(t, svc, "Show", domain.TypeSeries, 7)

	_, err := svc.CreateEpisode(ctx, catalog.EpisodeInput{MovieID: show.ID, SeasonNumber: 0, EpisodeNumber: 1, Title: "x"})
	var verr *catalog.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "season_number", verr.Field)

	_, err = svc.CreateEpisode(ctx, catalog.EpisodeInput{MovieID: show.ID, SeasonNumber: 1, EpisodeNumber: 1, Title: "  "})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
}

func TestUpdateMovie(t *testing.T) {
	svc := catalogtest.NewService(catalogtest.New())
	ctx := context.Background()
	m := seedMovie(t, svc, "Before", domain.TypeMovie, 5)

	title := " After "
	rating := 8.5
	got, err := svc.UpdateMovie(ctx, m.ID, catalog.MoviePatch{Title: &title, Rating: &rating, Genre: []string{"a", "a"}})
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)
	assert.Equal(t, 8.5, got.Rating)
	assert.Equal(t, []string{"a"}, got.Genre)

	tooHigh := 11.0
	_, err = svc.UpdateMovie(ctx, m.ID, catalog.MoviePatch{Rating: &tooHigh})
	var verr *catalog.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.UpdateMovie(ctx, "00000000-0000-0000-0000-000000000000", catalog.MoviePatch{Title: &title})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestDeleteMovie(t *testing.T) {
	svc := catalogtest.NewService(catalogtest.New())
	ctx := context.Background()
	m := seedMovie(t, svc, "Gone", domain.TypeMovie, 5)

	require.NoError(t, svc.DeleteMovie(ctx, m.ID))
	assert.ErrorIs(t, svc.DeleteMovie(ctx, m.ID), catalog.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteMovie(ctx, "bad"), catalog.ErrNotFound)
}

func TestRecordViewAndStats(t *testing.T) {
	svc := catalogtest.NewService(catalogtest.New())
	ctx := context.Background()
	a := seedMovie(t, svc, "A", domain.TypeMovie, 8)
	seedMovie(t, svc, "B", domain.TypeSeries, 6)

	before := testutil.ToFloat64(metrics.ViewsRecorded)
	view, err := svc.RecordView(ctx, catalog.ViewInput{MovieID: a.ID, EpisodeID: strPtr("garbage"), IPAddress: strPtr("10.0.0.1"), UserAgent: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, view.EpisodeID)
	assert.Nil(t, view.UserAgent)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ViewsRecorded))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Movies)
	assert.Equal(t, int64(1), stats.Series)
	assert.Equal(t, int64(2), stats.ActiveContent)
	assert.Equal(t, int64(1), stats.Views)
	assert.InDelta(t, 7.0, stats.AverageRating, 0.001)
}

func TestStoreFailuresAreWrappedAndCounted(t *testing.T) {
	db := catalogtest.New()
	db.FailMovies = true
	svc := catalogtest.NewService(db)

	before := testutil.ToFloat64(metrics.CatalogErrors.WithLabelValues("top_rated"))
	_, err := svc.TopRated(context.Background(), 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalogtest.ErrBoom)
	assert.Contains(t, err.Error(), "top_rated")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CatalogErrors.WithLabelValues("top_rated")))
}

func TestTableStatusAndConnection(t *testing.T) {
	db := catalogtest.New()
	svc := catalogtest.NewService(db)
	ctx := context.Background()
	seedMovie(t, svc, "A", domain.TypeMovie, 8)

	conn := svc.CheckConnection(ctx)
	assert.True(t, conn.Connected)
	assert.NoError(t, conn.Err)

	db.FailTable["episodes"] = true
	probes := svc.TableStatus(ctx)
	require.Len(t, probes, len(catalog.Tables))
	assert.Equal(t, "movies", probes[0].Table)
	assert.Equal(t, int64(1), probes[0].Rows)
	assert.True(t, probes[0].OK())
	assert.False(t, probes[1].OK())
	assert.True(t, probes[2].OK(), "later tables are still probed")

	db.FailTable["movies"] = true
	assert.False(t, svc.CheckConnection(ctx).Connected)
}

func TestDeactivateLink(t *testing.T) {
	db := catalogtest.New()
	svc := catalogtest.NewService(db)
	ctx := context.Background()
	m := seedMovie(t, svc, "A", domain.TypeMovie, 8)
	link, err := svc.CreateStreamingLink(ctx, catalog.LinkInput{MovieID: m.ID, ServerName: "S", Quality: "HD", URL: "https://a.example", IsActive: true})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateLink(ctx, link.ID))
	active, err := svc.ListActiveLinks(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

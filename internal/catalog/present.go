package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cinema-online/internal/domain"
)

// Tables probed by TableStatus, in display order.
var Tables = []string{"movies", "episodes", "streaming_links", "movie_views", "admins"}

// TableProbe is the outcome of counting one table.
type TableProbe struct {
	Table string
	Rows  int64
	Err   error
}

// OK reports whether the table answered.
func (p TableProbe) OK() bool { return p.Err == nil }

// ConnectionStatus reports whether the catalog database answered a trivial query.
type ConnectionStatus struct {
	Connected bool
	Latency   time.Duration
	Err       error
}

// CheckConnection runs a single count against movies.
func (s *Service) CheckConnection(ctx context.Context) ConnectionStatus {
	start := time.Now()
	_, err := s.tables.CountRows(ctx, "movies")
	status := ConnectionStatus{Connected: err == nil, Latency: time.Since(start), Err: err}
	if err != nil {
		s.logger.WithError(err).Warn("catalog connection check failed")
	}
	return status
}

// TableStatus counts rows in every catalog table. A failing table does not stop the others.
func (s *Service) TableStatus(ctx context.Context) []TableProbe {
	probes := make([]TableProbe, 0, len(Tables))
	for _, table := range Tables {
		n, err := s.tables.CountRows(ctx, table)
		if err != nil {
			s.logger.WithFields(logrus.Fields{"table": table}).WithError(err).Warn("table probe failed")
		}
		probes = append(probes, TableProbe{Table: table, Rows: n, Err: err})
	}
	return probes
}

// GroupBySeason buckets episodes by season number, seasons ascending and
// episodes ascending inside each season.
func GroupBySeason(episodes []domain.Episode) []domain.Season {
	index := make(map[int]int)
	seasons := make([]domain.Season, 0)
	for _, ep := range episodes {
		i, ok := index[ep.SeasonNumber]
		if !ok {
			i = len(seasons)
			index[ep.SeasonNumber] = i
			seasons = append(seasons, domain.Season{Number: ep.SeasonNumber})
		}
		seasons[i].Episodes = append(seasons[i].Episodes, ep)
	}
	sort.Slice(seasons, func(a, b int) bool { return seasons[a].Number < seasons[b].Number })
	for i := range seasons {
		eps := seasons[i].Episodes
		sort.SliceStable(eps, func(a, b int) bool { return eps[a].EpisodeNumber < eps[b].EpisodeNumber })
	}
	return seasons
}

// Window returns items[from:to] clamped to the slice bounds.
func Window(items []domain.Movie, from, to int) []domain.Movie {
	if from < 0 {
		from = 0
	}
	if to > len(items) {
		to = len(items)
	}
	if from >= to {
		return []domain.Movie{}
	}
	return items[from:to]
}

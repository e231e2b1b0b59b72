package linkcheck

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cinema-online/internal/domain"
)

// LinkSource is the slice of the catalog the sweep needs.
type LinkSource interface {
	ListActiveLinks(ctx context.Context) ([]domain.StreamingLink, error)
	DeactivateLink(ctx context.Context, id string) error
}

// Report summarises a sweep.
type Report struct {
	Results     []Result
	Checked     int
	Unreachable int
	Deactivated int
}

// Sweep probes every active link. With deactivate set, unreachable links are
// hidden; a failed deactivation is logged and the sweep continues.
func Sweep(ctx context.Context, src LinkSource, checker Checker, concurrency int, deactivate bool, logger *logrus.Entry) (Report, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	links, err := src.ListActiveLinks(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list active links: %w", err)
	}

	report := Report{Results: CheckAll(ctx, checker, links, concurrency), Checked: len(links)}
	for _, res := range report.Results {
		if res.Reachable {
			continue
		}
		report.Unreachable++
		entry := logger.WithFields(logrus.Fields{
			"link_id":  res.Link.ID,
			"movie_id": res.Link.MovieID,
			"server":   res.Link.ServerName,
			"status":   res.Status,
		}).WithError(res.Err)
		if !deactivate {
			entry.Warn("streaming link unreachable")
			continue
		}
		if err := src.DeactivateLink(ctx, res.Link.ID); err != nil {
			entry.WithField("deactivate_error", err.Error()).Error("failed to deactivate link")
			continue
		}
		report.Deactivated++
		entry.Info("streaming link deactivated")
	}
	return report, nil
}

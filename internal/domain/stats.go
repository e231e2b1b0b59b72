package domain

// CatalogStats backs the home page strip and the dashboard overview cards.
type CatalogStats struct {
	Movies        int64
	Series        int64
	ActiveContent int64
	Views         int64
	AverageRating float64
}

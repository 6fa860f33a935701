package disputes

import (
	"context"
	"math"
	"time"

	"github.com/angelmondragon/disputedesk-backend/pkg/db/models"
	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/disputedesk-backend/pkg/errors"
)

func (s *service) GetDisputeStatistics(ctx context.Context, start, end *time.Time) (stats *Statistics, err error) {
	defer s.observe(opStatistics, time.Now(), &err)

	if start != nil && end != nil && end.Before(*start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must not be before start date")
	}
	window := Period{Start: start, End: end}

	counts, err := s.repo.CountByStatus(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count disputes by status")
	}
	closed, err := s.repo.ClosedTimestamps(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load closed disputes")
	}

	stats = &Statistics{
		ByStatus: make(map[enums.DisputeStatus]int64, len(enums.DisputeStatuses())),
		Period:   window,
	}
	for _, status := range enums.DisputeStatuses() {
		stats.ByStatus[status] = 0
	}
	for _, c := range counts {
		stats.Total += c.Count
		if c.Status.IsValid() {
			stats.ByStatus[c.Status] += c.Count
		}
	}
	stats.AverageResolutionHours = averageResolutionHours(closed)
	return stats, nil
}

// averageResolutionHours averages over disputes with both timestamps, rounded to one decimal.
func averageResolutionHours(disputes []models.Dispute) float64 {
	var total float64
	var n int
	for _, d := range disputes {
		hours, ok := d.ResolutionHours()
		if !ok {
			continue
		}
		total += hours
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(total/float64(n)*10) / 10
}

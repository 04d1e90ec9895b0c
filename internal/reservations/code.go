package reservations

import (
	"context"
	"fmt"
	"time"
)

// nextCode builds the daily-sequenced reservation code, RSV-YYYYMMDD-NNN.
// The sequence restarts every day; the unique index on reservations.code
// backstops concurrent generators.
func nextCode(ctx context.Context, repo Repository, now time.Time) (string, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	count, err := repo.CountCreatedBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("RSV-%s-%03d", now.Format("20060102"), count+1), nil
}

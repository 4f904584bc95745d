package conflict

import (
	"context"
	"strings"

	"studyrooms/internal/reservations/repository"
	"studyrooms/pkg/model"
	"studyrooms/pkg/sanitizer"
)

// Checker answers whether a proposed range collides with an existing
// reservation of the same room. It never writes.
type Checker struct {
	repo repository.ReservationRepository
}

func NewChecker(repo repository.ReservationRepository) *Checker {
	return &Checker{repo: repo}
}

// Check returns the first reservation (by start time) of the room that
// overlaps tr, or nil. Store errors are returned unchanged.
func (c *Checker) Check(ctx context.Context, resourceID, roomName string, tr model.TimeRange) (*model.Reservation, error) {
	candidates, err := c.repo.List(ctx, tr)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		if !SameRoom(candidate, resourceID, roomName) {
			continue
		}
		// The store's window filter is not trusted to be exact.
		if candidate.Range().Overlaps(tr) {
			return candidate, nil
		}
	}
	return nil, nil
}

// SameRoom matches on the structured resource ID. Events without one fall back
// to a case-insensitive search for the room name in the summary.
func SameRoom(r *model.Reservation, resourceID, roomName string) bool {
	if r.ResourceID != "" {
		return r.ResourceID == resourceID
	}
	name := sanitizer.NormalizeForComparison(roomName)
	if name == "" {
		return false
	}
	return strings.Contains(sanitizer.NormalizeForComparison(r.Summary), name)
}

package usecase

import (
	syncdomain "sift-backend/internal/sync/domain"
	"sift-backend/internal/sync/repository"
)

// dedupGate decides whether an event was already recorded, first against the
// keys seen so far this run, then against the persisted ledger. The in-run
// check comes first so repeats within one sync never hit the database.
type dedupGate struct {
	userID string
	repo   repository.CalendarEventRepository
	seen   map[string]struct{}
}

func newDedupGate(userID string, repo repository.CalendarEventRepository) *dedupGate {
	return &dedupGate{
		userID: userID,
		repo:   repo,
		seen:   make(map[string]struct{}),
	}
}

func (g *dedupGate) IsDuplicate(event *syncdomain.Event) (bool, error) {
	if _, ok := g.seen[event.DedupKey()]; ok {
		return true, nil
	}
	existing, err := g.repo.FindDuplicate(g.userID, event.Title, event.Start)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// Record marks an event seen for the remainder of the run.
func (g *dedupGate) Record(event *syncdomain.Event) {
	g.seen[event.DedupKey()] = struct{}{}
}

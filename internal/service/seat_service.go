// Package service runs seat assignment against the database.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-seat-assignment/internal/queue"
	"github.com/iliyamo/event-seat-assignment/internal/repository"
	"github.com/iliyamo/event-seat-assignment/internal/seating"
)

// ErrAssignmentInProgress is returned when another run holds the lock.
var ErrAssignmentInProgress = errors.New("seat assignment already in progress")

// AssignLockKey is the lock shared by every assignment run.
const AssignLockKey = "lock:seat-assignment"

// errDryRun rolls back a dry run after the allocation has been recorded.
var errDryRun = errors.New("dry run")

// AssignmentStore opens the assignment transaction.  *repository.SeatRepo
// satisfies it.
type AssignmentStore interface {
	InAssignmentTx(ctx context.Context, fn func(repository.AssignmentTx) error) error
}

// EventPublisher receives committed runs.  *queue.Publisher satisfies it.
type EventPublisher interface {
	PublishSeatsAssigned(ctx context.Context, ev queue.SeatsAssignedEvent) error
}

// AssignRequest describes one run.  A nil Seed draws a random one; the
// seed used is echoed in the result so a run can be replayed.
type AssignRequest struct {
	Groups []string
	Policy seating.Policy
	Seed   *uint64
	DryRun bool
}

// AssignResult is what a run decided.  AssignedCount counts tickets (seats),
// not registrants.
type AssignResult struct {
	RunID         string               `json:"run_id"`
	Policy        seating.Policy       `json:"policy"`
	Groups        []string             `json:"groups"`
	Seed          uint64               `json:"seed"`
	DryRun        bool                 `json:"dry_run"`
	Registrants   int                  `json:"registrants"`
	AssignedCount int                  `json:"assigned_count"`
	Assignments   []seating.Assignment `json:"assignments"`
	Unplaced      []uint64             `json:"unplaced"`
}

// SeatService coordinates a run: lock, load, allocate, persist, publish.
type SeatService struct {
	store   AssignmentStore
	catalog seating.Catalog
	locker  Locker
	pub     EventPublisher

	Timeout time.Duration
	LockTTL time.Duration
	now     func() time.Time
}

// NewSeatService wires a SeatService.  pub may be nil.
func NewSeatService(store AssignmentStore, catalog seating.Catalog, locker Locker, pub EventPublisher) *SeatService {
	return &SeatService{
		store:   store,
		catalog: catalog,
		locker:  locker,
		pub:     pub,
		Timeout: 30 * time.Second,
		LockTTL: 2 * time.Minute,
		now:     time.Now,
	}
}

// Catalog returns the catalog runs allocate from.
func (s *SeatService) Catalog() seating.Catalog { return s.catalog }

// Assign runs one allocation.  The roster is read with FOR UPDATE and the
// occupancy is read in the same transaction, so the snapshot the allocator
// sees cannot change before the writes land.  Capacity and pairing failures
// come back as *seating.CapacityError and *seating.PairingError with nothing
// written.
func (s *SeatService) Assign(ctx context.Context, req AssignRequest) (*AssignResult, error) {
	if len(req.Groups) == 0 {
		return nil, seating.ErrNoGroups
	}
	lock, err := s.locker.Acquire(ctx, AssignLockKey, s.LockTTL)
	if errors.Is(err, ErrLockHeld) {
		return nil, ErrAssignmentInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			log.Printf("seat-service: release lock: %v", err)
		}
	}()

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	seed := rand.Uint64()
	if req.Seed != nil {
		seed = *req.Seed
	}
	out := &AssignResult{
		RunID:  uuid.NewString(),
		Policy: req.Policy,
		Groups: req.Groups,
		Seed:   seed,
		DryRun: req.DryRun,
	}

	err = s.store.InAssignmentTx(ctx, func(tx repository.AssignmentTx) error {
		roster, err := tx.LoadUnseatedPaidRoster(ctx)
		if err != nil {
			return fmt.Errorf("load roster: %w", err)
		}
		holdings, err := tx.LoadHoldings(ctx)
		if err != nil {
			return fmt.Errorf("load occupancy: %w", err)
		}
		res, err := s.catalog.Allocate(seating.Plan{
			Groups:   req.Groups,
			Occupied: seating.ComputeOccupied(holdings),
			Requests: roster,
			Policy:   req.Policy,
		}, seating.NewRand(seed))
		if err != nil {
			return err
		}
		out.Registrants = len(res.Assignments)
		out.AssignedCount = res.SeatsUsed
		out.Assignments = res.Assignments
		out.Unplaced = res.Unplaced
		if req.DryRun {
			return errDryRun
		}
		for _, a := range res.Assignments {
			if err := tx.PersistAssignment(ctx, a); err != nil {
				return fmt.Errorf("persist registrant %d: %w", a.RequestID, err)
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, err
	}
	if out.Assignments == nil {
		out.Assignments = []seating.Assignment{}
	}
	if out.Unplaced == nil {
		out.Unplaced = []uint64{}
	}

	log.Printf("seat-service: run %s policy=%s groups=%v dry_run=%t assigned=%d unplaced=%d",
		out.RunID, out.Policy, out.Groups, out.DryRun, out.AssignedCount, len(out.Unplaced))
	if !req.DryRun && s.pub != nil && len(out.Assignments) > 0 {
		s.publish(out)
	}
	return out, nil
}

// publish runs detached from the request context; the run has committed
// and a broker outage must not turn it into a failure.
func (s *SeatService) publish(r *AssignResult) {
	ev := queue.SeatsAssignedEvent{
		RunID:         r.RunID,
		Policy:        string(r.Policy),
		Groups:        r.Groups,
		AssignedCount: r.AssignedCount,
		SeatsUsed:     r.AssignedCount,
		Unplaced:      r.Unplaced,
		AssignedAt:    s.now().UTC().Format(time.RFC3339),
	}
	for _, a := range r.Assignments {
		as := queue.AssignedSeat{RegistrantID: a.RequestID, Primary: a.Primary.Label()}
		if a.Companion != nil {
			as.Companion = a.Companion.Label()
		}
		ev.Assignments = append(ev.Assignments, as)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.pub.PublishSeatsAssigned(ctx, ev); err != nil {
		log.Printf("seat-service: publish run %s: %v", r.RunID, err)
	}
}

package stage

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/avm1/vm"
)

type queued struct {
	id   uuid.UUID
	unit vm.Unit
}

// Scheduler runs queued units in FIFO order. Units queued while the queue
// drains run in the same drain, after everything queued before them.
type Scheduler struct {
	queue     []queued
	cancelled map[uuid.UUID]bool

	// OnError, if set, sees every unit error as it happens.
	OnError func(id uuid.UUID, u vm.Unit, err error)
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{cancelled: make(map[uuid.UUID]bool)}
}

// Queue appends u and returns the id it can be cancelled by.
func (s *Scheduler) Queue(u vm.Unit) uuid.UUID {
	id := uuid.New()
	s.queue = append(s.queue, queued{id: id, unit: u})
	log.Debugf("queued %s as %s", u, id)
	return id
}

// Cancel drops a unit that has not run yet.
func (s *Scheduler) Cancel(id uuid.UUID) bool {
	for _, q := range s.queue {
		if q.id == id {
			s.cancelled[id] = true
			return true
		}
	}
	return false
}

// Len returns the number of units waiting, cancelled ones excluded.
func (s *Scheduler) Len() int {
	n := 0
	for _, q := range s.queue {
		if !s.cancelled[q.id] {
			n++
		}
	}
	return n
}

// RunAll drains the queue. Units bound to unloaded targets are skipped.
// Errors do not stop the drain; they are joined into the result.
func (s *Scheduler) RunAll() error {
	var errs []error
	for len(s.queue) > 0 {
		q := s.queue[0]
		s.queue = s.queue[1:]
		if s.cancelled[q.id] {
			delete(s.cancelled, q.id)
			continue
		}
		if t, ok := q.unit.Target().(vm.Target); ok && t.Unloaded() {
			log.Debugf("skipping %s (%s): target unloaded", q.unit, q.id)
			continue
		}
		if err := q.unit.Run(); err != nil {
			log.Errorf("%s (%s): %s", q.unit, q.id, err)
			if s.OnError != nil {
				s.OnError(q.id, q.unit, err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", q.unit, err))
		}
	}
	return errors.Join(errs...)
}

package booking

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory booking repository for tests and local runs.
type MemoryRepo struct {
	mu       sync.Mutex
	bookings map[string]Booking
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{bookings: make(map[string]Booking)}
}

func (r *MemoryRepo) Create(_ context.Context, b Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = b
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return b, nil
}

func (r *MemoryRepo) Complete(_ context.Context, id string, f CompletionFields, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.PatientName = f.PatientName
	b.PreferredDoctor = f.PreferredDoctor
	b.AppointmentDate = f.AppointmentDate
	b.AppointmentTime = f.AppointmentTime
	b.Completed = true
	b.CompletedAt = &at
	r.bookings[id] = b
	return nil
}

func (r *MemoryRepo) ListCompleted(_ context.Context, limit int) ([]Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Booking, 0)
	for _, b := range r.bookings {
		if b.Completed {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CompletedAt.After(*out[j].CompletedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

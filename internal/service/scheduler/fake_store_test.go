package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

// fakeStore is an in-memory store that enforces the same active-slot
// uniqueness as the partial index in postgres.
type fakeStore struct {
	mu           sync.Mutex
	clock        time.Time
	appointments map[uuid.UUID]*model.Appointment
	doctors      map[uuid.UUID]*model.DoctorProfile
	patients     map[uuid.UUID]*model.PatientProfile

	// skipPrecheck makes HasConflict always report a free slot so that
	// the insert-time constraint is the only guard.
	skipPrecheck bool
	// beforeApply runs just before a conditional update takes the lock.
	beforeApply func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		appointments: map[uuid.UUID]*model.Appointment{},
		doctors:      map[uuid.UUID]*model.DoctorProfile{},
		patients:     map[uuid.UUID]*model.PatientProfile{},
	}
}

func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *fakeStore) addDoctor(name string, active bool) *model.DoctorProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &model.DoctorProfile{
		Base:           model.Base{ID: uuid.New()},
		AccountID:      uuid.New(),
		Specialization: "Cardiology",
		FullName:       name,
		IsActive:       active,
	}
	s.doctors[d.ID] = d
	return d
}

func (s *fakeStore) addPatient(name string) *model.PatientProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &model.PatientProfile{
		Base:      model.Base{ID: uuid.New()},
		AccountID: uuid.New(),
		FullName:  name,
		Email:     name + "@example.com",
		IsActive:  true,
	}
	s.patients[p.ID] = p
	return p
}

// snapshot returns a copy of the stored row for before/after comparisons.
func (s *fakeStore) snapshot(id uuid.UUID) model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.appointments[id]
}

func (s *fakeStore) slotTaken(doctorID uuid.UUID, date, clock string, exclude uuid.UUID) bool {
	for _, a := range s.appointments {
		if a.ID == exclude || a.Status == model.AppointmentStatusCancelled {
			continue
		}
		if a.DoctorID == doctorID && a.AppointmentDate == date && a.AppointmentTime == clock {
			return true
		}
	}
	return false
}

func (s *fakeStore) detail(a *model.Appointment) *model.AppointmentDetail {
	d := &model.AppointmentDetail{Appointment: *a}
	if p, ok := s.patients[a.PatientID]; ok {
		d.PatientName, d.PatientEmail = p.FullName, p.Email
	}
	if doc, ok := s.doctors[a.DoctorID]; ok {
		d.DoctorName, d.Specialization = doc.FullName, doc.Specialization
	}
	return d
}

// AppointmentRepository

func (s *fakeStore) Create(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slotTaken(a.DoctorID, a.AppointmentDate, a.AppointmentTime, uuid.Nil) {
		return repository.ErrSlotTaken
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := s.tick()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	s.appointments[a.ID] = &cp
	return nil
}

func (s *fakeStore) Get(_ context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.detail(a), nil
}

func (s *fakeStore) HasConflict(_ context.Context, doctorID uuid.UUID, date, clock string, excludeID *uuid.UUID) (bool, error) {
	if s.skipPrecheck {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exclude := uuid.Nil
	if excludeID != nil {
		exclude = *excludeID
	}
	return s.slotTaken(doctorID, date, clock, exclude), nil
}

func (s *fakeStore) Reschedule(_ context.Context, id uuid.UUID, from []model.AppointmentStatus, date, clock string) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok || !containsStatus(from, a.Status) {
		return nil, repository.ErrNotFound
	}
	if s.slotTaken(a.DoctorID, date, clock, id) {
		return nil, repository.ErrSlotTaken
	}
	a.AppointmentDate, a.AppointmentTime = date, clock
	a.UpdatedAt = s.tick()
	cp := *a
	return &cp, nil
}

func (s *fakeStore) Apply(_ context.Context, u model.AppointmentUpdate) (*model.Appointment, error) {
	if s.beforeApply != nil {
		s.beforeApply()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[u.ID]
	if !ok || !containsStatus(u.From, a.Status) {
		return nil, repository.ErrNotFound
	}
	date, clock := a.AppointmentDate, a.AppointmentTime
	if u.Date != nil {
		date = *u.Date
	}
	if u.Time != nil {
		clock = *u.Time
	}
	if (u.Date != nil || u.Time != nil) && s.slotTaken(a.DoctorID, date, clock, a.ID) {
		return nil, repository.ErrSlotTaken
	}
	a.AppointmentDate, a.AppointmentTime = date, clock
	if u.To != "" {
		a.Status = u.To
	}
	if u.Notes != nil {
		n := *u.Notes
		a.Notes = &n
	}
	if u.Reason != nil {
		r := *u.Reason
		a.Reason = &r
	}
	a.UpdatedAt = s.tick()
	cp := *a
	return &cp, nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.appointments, id)
	return nil
}

func (s *fakeStore) matching(f model.AppointmentFilters) []*model.Appointment {
	var out []*model.Appointment
	for _, a := range s.appointments {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Date != "" && a.AppointmentDate != f.Date {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *fakeStore) List(_ context.Context, f model.AppointmentFilters) ([]*model.AppointmentDetail, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.matching(f)
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.AppointmentDate != b.AppointmentDate {
			return a.AppointmentDate > b.AppointmentDate
		}
		if a.AppointmentTime != b.AppointmentTime {
			return a.AppointmentTime > b.AppointmentTime
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	total := len(rows)
	if f.Offset > 0 {
		if f.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[f.Offset:]
		}
	}
	if f.Limit > 0 && f.Limit < len(rows) {
		rows = rows[:f.Limit]
	}

	out := make([]*model.AppointmentDetail, 0, len(rows))
	for _, a := range rows {
		out = append(out, s.detail(a))
	}
	return out, total, nil
}

func (s *fakeStore) CountByStatus(_ context.Context, f model.AppointmentFilters) (map[model.AppointmentStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[model.AppointmentStatus]int{}
	for _, a := range s.matching(f) {
		counts[a.Status]++
	}
	return counts, nil
}

// DoctorRepository

type fakeDoctors struct{ *fakeStore }

func (d fakeDoctors) Create(context.Context, *sqlx.Tx, *model.DoctorProfile) error { return nil }

func (d fakeDoctors) GetByID(_ context.Context, id uuid.UUID) (*model.DoctorProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (d fakeDoctors) GetByAccountID(context.Context, uuid.UUID) (*model.DoctorProfile, error) {
	return nil, repository.ErrNotFound
}

func (d fakeDoctors) Update(context.Context, *model.DoctorProfile) error { return nil }

func (d fakeDoctors) UpdateAvailability(context.Context, uuid.UUID, model.Availability) error {
	return nil
}

func (d fakeDoctors) Delete(context.Context, uuid.UUID) error { return nil }

func (d fakeDoctors) List(context.Context, model.DoctorFilters) ([]*model.DoctorProfile, int, error) {
	return nil, 0, nil
}

func (d fakeDoctors) Count(context.Context) (int, error) { return len(d.doctors), nil }

// PatientRepository

type fakePatients struct{ *fakeStore }

func (p fakePatients) Create(context.Context, *sqlx.Tx, *model.PatientProfile) error { return nil }

func (p fakePatients) GetByID(_ context.Context, id uuid.UUID) (*model.PatientProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pat, ok := p.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *pat
	return &cp, nil
}

func (p fakePatients) GetByAccountID(context.Context, uuid.UUID) (*model.PatientProfile, error) {
	return nil, repository.ErrNotFound
}

func (p fakePatients) Update(context.Context, *model.PatientProfile) error { return nil }

func (p fakePatients) Delete(context.Context, uuid.UUID) error { return nil }

func (p fakePatients) List(context.Context, model.PatientFilters) ([]*model.PatientProfile, int, error) {
	return nil, 0, nil
}

func (p fakePatients) ListByDoctor(context.Context, uuid.UUID, int, int) ([]*model.PatientProfile, int, error) {
	return nil, 0, nil
}

func (p fakePatients) Count(context.Context) (int, error) { return len(p.patients), nil }

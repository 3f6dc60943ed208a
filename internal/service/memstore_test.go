package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/store"
)

// memStorage is an in-memory Storage with real transaction semantics: fn runs
// against a deep copy of the state which replaces the original only on
// success, so rollback behavior is actually exercised.
type memStorage struct {
	mu    sync.Mutex
	state *memState
	seq   int64

	// dropPropertyWrites makes SetPropertyStatus silently not apply,
	// simulating a defective write path for the verifier to catch.
	dropPropertyWrites bool
}

type memState struct {
	properties   map[uuid.UUID]*model.Property
	accounts     map[uuid.UUID]*model.Account
	leases       map[uuid.UUID]*model.Lease
	assignments  map[uuid.UUID]*model.Assignment
	history      []*model.HistoryRecord
	applications map[uuid.UUID]*model.Application
}

func newMemStorage() *memStorage {
	return &memStorage{state: &memState{
		properties:   map[uuid.UUID]*model.Property{},
		accounts:     map[uuid.UUID]*model.Account{},
		leases:       map[uuid.UUID]*model.Lease{},
		assignments:  map[uuid.UUID]*model.Assignment{},
		applications: map[uuid.UUID]*model.Application{},
	}}
}

var _ Storage = (*memStorage)(nil)

func (m *memStorage) InTx(_ context.Context, fn func(store.TxOps) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.state.clone()
	if err := fn(&memTx{s: next, store: m}); err != nil {
		return err
	}
	m.state = next
	return nil
}

// InLockedTx needs no separate lock: the storage mutex already serializes
// whole transactions.
func (m *memStorage) InLockedTx(ctx context.Context, _ string, fn func(store.TxOps) error) error {
	return m.InTx(ctx, fn)
}

// tick yields strictly increasing timestamps so created_at ordering is
// deterministic.
func (m *memStorage) tick() time.Time {
	m.seq++
	return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneUUIDPtr(u *uuid.UUID) *uuid.UUID {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (s *memState) clone() *memState {
	next := &memState{
		properties:   make(map[uuid.UUID]*model.Property, len(s.properties)),
		accounts:     make(map[uuid.UUID]*model.Account, len(s.accounts)),
		leases:       make(map[uuid.UUID]*model.Lease, len(s.leases)),
		assignments:  make(map[uuid.UUID]*model.Assignment, len(s.assignments)),
		history:      make([]*model.HistoryRecord, len(s.history)),
		applications: make(map[uuid.UUID]*model.Application, len(s.applications)),
	}
	for id, p := range s.properties {
		c := *p
		next.properties[id] = &c
	}
	for id, a := range s.accounts {
		c := *a
		next.accounts[id] = &c
	}
	for id, l := range s.leases {
		c := *l
		c.EndDate = cloneTimePtr(l.EndDate)
		next.leases[id] = &c
	}
	for id, a := range s.assignments {
		c := *a
		next.assignments[id] = &c
	}
	for i, h := range s.history {
		c := *h
		next.history[i] = &c
	}
	for id, a := range s.applications {
		c := *a
		c.TenantID = cloneUUIDPtr(a.TenantID)
		c.DecidedAt = cloneTimePtr(a.DecidedAt)
		next.applications[id] = &c
	}
	return next
}

// Seeding helpers write straight into committed state, bypassing the
// workflows; corruption scenarios depend on that.

func (m *memStorage) seedProperty(ownerID uuid.UUID, status model.PropertyStatus) *model.Property {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &model.Property{
		ID: uuid.New(), OwnerID: ownerID, Label: "unit", Status: status,
		CreatedAt: m.tick(), UpdatedAt: m.tick(),
	}
	m.state.properties[p.ID] = p
	return p
}

func (m *memStorage) seedAccount(role model.AccountRole, phone string) *model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &model.Account{
		ID: uuid.New(), PersonRef: uuid.New(), FullName: "Seeded Person",
		Phone: phone, Role: role, CreatedAt: m.tick(),
	}
	m.state.accounts[a.ID] = a
	return a
}

func (m *memStorage) seedLease(propertyID, tenantID uuid.UUID, status model.LeaseStatus, amount int64) *model.Lease {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	l := &model.Lease{
		ID: uuid.New(), PropertyID: propertyID, TenantID: tenantID,
		Status: status, PaymentStatus: model.PaymentOwing,
		StartDate: now, NextDueDate: model.NextDueDate(now, model.FrequencyMonthly),
		Amount: amount, Frequency: model.FrequencyMonthly,
		CreatedAt: now, UpdatedAt: now,
	}
	m.state.leases[l.ID] = l
	return l
}

func (m *memStorage) seedAssignment(propertyID, tenantID uuid.UUID, status model.AssignmentStatus) *model.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &model.Assignment{
		ID: uuid.New(), PropertyID: propertyID, TenantID: tenantID,
		Status: status, CreatedAt: m.tick(), UpdatedAt: m.tick(),
	}
	m.state.assignments[a.ID] = a
	return a
}

func (m *memStorage) seedApplication(propertyID uuid.UUID, phone string, status model.ApplicationStatus) *model.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &model.Application{
		ID: uuid.New(), PropertyID: propertyID, FullName: "Applicant",
		Phone: phone, Status: status, SubmittedAt: m.tick(),
	}
	m.state.applications[a.ID] = a
	return a
}

// Committed-state accessors for assertions.

func (m *memStorage) property(id uuid.UUID) *model.Property {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.properties[id]
}

func (m *memStorage) lease(id uuid.UUID) *model.Lease {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.leases[id]
}

func (m *memStorage) application(id uuid.UUID) *model.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.applications[id]
}

func (m *memStorage) activeLeasesOf(tenantID uuid.UUID) []*model.Lease {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Lease
	for _, l := range m.state.leases {
		if l.TenantID == tenantID && l.Status == model.LeaseActive {
			out = append(out, l)
		}
	}
	return out
}

func (m *memStorage) historyFor(propertyID uuid.UUID) []*model.HistoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.HistoryRecord
	for _, h := range m.state.history {
		if h.PropertyID == propertyID {
			out = append(out, h)
		}
	}
	return out
}

func (m *memStorage) assignmentFor(propertyID, tenantID uuid.UUID) *model.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.state.assignments {
		if a.PropertyID == propertyID && a.TenantID == tenantID && a.Status == model.AssignmentActive {
			return a
		}
	}
	return nil
}

func (m *memStorage) accountsByPhone(phone string) []*model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Account
	for _, a := range m.state.accounts {
		if a.Phone == phone {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *memStorage) counts() (leases, assignments, history, accounts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.leases), len(m.state.assignments), len(m.state.history), len(m.state.accounts)
}

// memTx implements store.TxOps over one cloned state.
type memTx struct {
	s     *memState
	store *memStorage
}

var _ store.TxOps = (*memTx)(nil)

func (t *memTx) LockTenant(context.Context, uuid.UUID) error { return nil }

func (t *memTx) PropertyByID(_ context.Context, id uuid.UUID) (*model.Property, error) {
	return t.s.properties[id], nil
}

func (t *memTx) SetPropertyStatus(_ context.Context, id uuid.UUID, status model.PropertyStatus) error {
	p, ok := t.s.properties[id]
	if !ok {
		return sql.ErrNoRows
	}
	if t.store.dropPropertyWrites {
		return nil
	}
	p.Status = status
	p.UpdatedAt = t.store.tick()
	return nil
}

func (t *memTx) AccountByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	return t.s.accounts[id], nil
}

func (t *memTx) AccountByPhoneRole(_ context.Context, phone string, role model.AccountRole) (*model.Account, error) {
	accounts, _ := t.AccountsByPhone(context.Background(), phone)
	for _, a := range accounts {
		if a.Role == role {
			return a, nil
		}
	}
	return nil, nil
}

func (t *memTx) AccountsByPhone(_ context.Context, phone string) ([]*model.Account, error) {
	var out []*model.Account
	for _, a := range t.s.accounts {
		if a.Phone == phone {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) InsertAccount(_ context.Context, a *model.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.PersonRef == uuid.Nil {
		a.PersonRef = uuid.New()
	}
	a.CreatedAt = t.store.tick()
	c := *a
	t.s.accounts[a.ID] = &c
	return nil
}

func (t *memTx) ActiveLeasesByTenant(_ context.Context, tenantID uuid.UUID) ([]*model.Lease, error) {
	var out []*model.Lease
	for _, l := range t.s.leases {
		if l.TenantID == tenantID && l.Status == model.LeaseActive {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) ActiveLeaseByProperty(_ context.Context, propertyID uuid.UUID) (*model.Lease, error) {
	var newest *model.Lease
	for _, l := range t.s.leases {
		if l.PropertyID == propertyID && l.Status == model.LeaseActive {
			if newest == nil || l.CreatedAt.After(newest.CreatedAt) {
				newest = l
			}
		}
	}
	return newest, nil
}

func (t *memTx) InsertLease(_ context.Context, l *model.Lease) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	now := t.store.tick()
	l.CreatedAt = now
	l.UpdatedAt = now
	c := *l
	c.EndDate = cloneTimePtr(l.EndDate)
	t.s.leases[l.ID] = &c
	return nil
}

func (t *memTx) UpdateLeaseTerms(_ context.Context, l *model.Lease) error {
	cur, ok := t.s.leases[l.ID]
	if !ok || cur.Status != model.LeaseActive {
		return sql.ErrNoRows
	}
	cur.StartDate = l.StartDate
	cur.EndDate = cloneTimePtr(l.EndDate)
	cur.NextDueDate = l.NextDueDate
	cur.Amount = l.Amount
	cur.Frequency = l.Frequency
	cur.UpdatedAt = t.store.tick()
	return nil
}

func (t *memTx) DeactivateLease(_ context.Context, id uuid.UUID, payment model.PaymentStatus) error {
	l, ok := t.s.leases[id]
	if !ok || l.Status != model.LeaseActive {
		return sql.ErrNoRows
	}
	l.Status = model.LeaseInactive
	l.PaymentStatus = payment
	l.UpdatedAt = t.store.tick()
	return nil
}

func (t *memTx) AssignmentByID(_ context.Context, id uuid.UUID) (*model.Assignment, error) {
	return t.s.assignments[id], nil
}

func (t *memTx) ActiveAssignment(_ context.Context, propertyID, tenantID uuid.UUID) (*model.Assignment, error) {
	var newest *model.Assignment
	for _, a := range t.s.assignments {
		if a.PropertyID == propertyID && a.TenantID == tenantID && a.Status == model.AssignmentActive {
			if newest == nil || a.CreatedAt.After(newest.CreatedAt) {
				newest = a
			}
		}
	}
	return newest, nil
}

func (t *memTx) InsertAssignment(_ context.Context, a *model.Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := t.store.tick()
	a.CreatedAt = now
	a.UpdatedAt = now
	c := *a
	t.s.assignments[a.ID] = &c
	return nil
}

func (t *memTx) DeactivateAssignments(_ context.Context, propertyID, tenantID uuid.UUID) error {
	for _, a := range t.s.assignments {
		if a.PropertyID == propertyID && a.TenantID == tenantID && a.Status == model.AssignmentActive {
			a.Status = model.AssignmentInactive
			a.UpdatedAt = t.store.tick()
		}
	}
	return nil
}

func (t *memTx) AppendHistory(_ context.Context, h *model.HistoryRecord) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.OccurredAt.IsZero() {
		h.OccurredAt = t.store.tick()
	}
	c := *h
	t.s.history = append(t.s.history, &c)
	return nil
}

func (t *memTx) ApplicationByID(_ context.Context, id uuid.UUID) (*model.Application, error) {
	return t.s.applications[id], nil
}

func (t *memTx) ApproveApplication(_ context.Context, id, tenantID uuid.UUID) error {
	a, ok := t.s.applications[id]
	if !ok || a.Status != model.ApplicationPending {
		return sql.ErrNoRows
	}
	a.Status = model.ApplicationApproved
	tid := tenantID
	a.TenantID = &tid
	now := t.store.tick()
	a.DecidedAt = &now
	return nil
}

func (t *memTx) RejectPendingApplications(_ context.Context, propertyID, except uuid.UUID) (int64, error) {
	var n int64
	for _, a := range t.s.applications {
		if a.PropertyID == propertyID && a.Status == model.ApplicationPending && a.ID != except {
			a.Status = model.ApplicationRejected
			now := t.store.tick()
			a.DecidedAt = &now
			n++
		}
	}
	return n, nil
}

func (t *memTx) TenantsWithDuplicateActiveLeases(_ context.Context) ([]uuid.UUID, error) {
	counts := map[uuid.UUID]int{}
	for _, l := range t.s.leases {
		if l.Status == model.LeaseActive {
			counts[l.TenantID]++
		}
	}
	var out []uuid.UUID
	for id, n := range counts {
		if n > 1 {
			out = append(out, id)
		}
	}
	return out, nil
}

func (t *memTx) OccupiedPropertiesWithoutLease(_ context.Context) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id, p := range t.s.properties {
		if p.Status != model.PropertyOccupied {
			continue
		}
		if l, _ := t.ActiveLeaseByProperty(context.Background(), id); l == nil {
			out = append(out, id)
		}
	}
	return out, nil
}

func (t *memTx) NonOccupiedPropertiesWithLease(_ context.Context) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id, p := range t.s.properties {
		if p.Status == model.PropertyOccupied {
			continue
		}
		if l, _ := t.ActiveLeaseByProperty(context.Background(), id); l != nil {
			out = append(out, id)
		}
	}
	return out, nil
}

func (t *memTx) MismatchedActivePairs(_ context.Context) ([]model.PairMismatch, error) {
	var out []model.PairMismatch
	for _, l := range t.s.leases {
		if l.Status != model.LeaseActive {
			continue
		}
		if a, _ := t.ActiveAssignment(context.Background(), l.PropertyID, l.TenantID); a == nil {
			out = append(out, model.PairMismatch{PropertyID: l.PropertyID, TenantID: l.TenantID, Missing: "assignment"})
		}
	}
	for _, a := range t.s.assignments {
		if a.Status != model.AssignmentActive {
			continue
		}
		found := false
		for _, l := range t.s.leases {
			if l.PropertyID == a.PropertyID && l.TenantID == a.TenantID && l.Status == model.LeaseActive {
				found = true
				break
			}
		}
		if !found {
			out = append(out, model.PairMismatch{PropertyID: a.PropertyID, TenantID: a.TenantID, Missing: "lease"})
		}
	}
	return out, nil
}

package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-operations/internal/apperr"
	"github.com/hackgods/clinic-operations/internal/metrics"
)

// memRepo is an in-memory Repository over a fixed employee roster.
type memRepo struct {
	mu         sync.Mutex
	employees  []uuid.UUID
	rows       map[uuid.UUID]*Notification
	clock      time.Time
	failWith   error
	lastFilter ListFilter
}

func newMemRepo(activeEmployees int) *memRepo {
	r := &memRepo{rows: map[uuid.UUID]*Notification{}, clock: time.Now().UTC()}
	for i := 0; i < activeEmployees; i++ {
		r.employees = append(r.employees, uuid.New())
	}
	return r
}

func (r *memRepo) insertLocked(d Draft, to Recipient) Notification {
	r.clock = r.clock.Add(time.Second)
	n := Notification{
		ID: uuid.New(), Title: d.Title, Message: d.Message, Type: d.Type, Priority: d.Priority,
		Status: StatusUnread, Recipient: to, Origin: d.Origin, CreatedAt: r.clock,
	}
	r.rows[n.ID] = &n
	return n
}

func (r *memRepo) Insert(_ context.Context, d Draft, to Recipient) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	n := r.insertLocked(d, to)
	return &n, nil
}

func (r *memRepo) InsertForActiveEmployees(_ context.Context, d Draft) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	var out []Notification
	for _, id := range r.employees {
		out = append(out, r.insertLocked(d, Employee(id)))
	}
	return out, nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *memRepo) ListForRecipient(_ context.Context, to Recipient, f ListFilter) ([]Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = f
	var out []Notification
	for _, n := range r.rows {
		if n.Recipient != to {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, n.Status) {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if f.Offset < len(out) {
		out = out[f.Offset:]
	} else {
		out = nil
	}
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (r *memRepo) CountUnread(_ context.Context, to Recipient) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := 0
	for _, n := range r.rows {
		if n.Recipient == to && n.Status == StatusUnread {
			c++
		}
	}
	return c, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, from []Status, to Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok || !containsStatus(from, n.Status) {
		return false, nil
	}
	n.Status = to
	now := time.Now().UTC()
	switch to {
	case StatusRead:
		n.ReadAt = &now
	case StatusArchived:
		n.ArchivedAt = &now
	}
	return true, nil
}

func (r *memRepo) MarkAllRead(_ context.Context, to Recipient) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c int64
	for _, n := range r.rows {
		if n.Recipient == to && n.Status == StatusUnread {
			n.Status = StatusRead
			c++
		}
	}
	return c, nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotificationNotFound
	}
	delete(r.rows, id)
	return nil
}

func containsStatus(set []Status, s Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func newTestEngine(repo Repository) *Engine {
	return NewEngine(repo, zerolog.Nop(), metrics.New(prometheus.NewRegistry()))
}

func TestBroadcastWritesOneRowPerActiveEmployee(t *testing.T) {
	repo := newMemRepo(4)
	engine := newTestEngine(repo)
	eventID := uuid.New()

	first, err := engine.Notify(context.Background(), Payload{
		Title: "Fire drill", Message: "Friday 10:00", Type: TypeEvent, Broadcast: true,
		Origin: Origin{EventID: &eventID},
	})
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, PriorityMedium, first.Priority)

	require.Len(t, repo.rows, 4)
	seen := map[uuid.UUID]bool{}
	for _, n := range repo.rows {
		assert.Equal(t, "Fire drill", n.Title)
		assert.Equal(t, "Friday 10:00", n.Message)
		assert.Equal(t, TypeEvent, n.Type)
		assert.Equal(t, RecipientEmployee, n.Recipient.Kind)
		assert.Equal(t, eventID, *n.Origin.EventID)
		seen[n.Recipient.ID] = true
	}
	assert.Len(t, seen, 4, "recipients must be distinct")
}

func TestBroadcastWithEmptyRoster(t *testing.T) {
	engine := newTestEngine(newMemRepo(0))

	n, err := engine.Notify(context.Background(), Payload{Title: "t", Message: "m", Type: TypeSystem, Broadcast: true})
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestSingleRecipientWritesExactlyOneRow(t *testing.T) {
	repo := newMemRepo(3)
	engine := newTestEngine(repo)
	doctor := Doctor(uuid.New())

	n, err := engine.Notify(context.Background(), Payload{
		Title: "New appointment", Message: "Jane Roe, 09:00 AM", Type: TypeAppointment,
		Priority: PriorityHigh, Recipient: &doctor,
	})
	require.NoError(t, err)
	assert.Len(t, repo.rows, 1)
	assert.Equal(t, doctor, n.Recipient)
	assert.Equal(t, PriorityHigh, n.Priority)
}

func TestNotifyValidation(t *testing.T) {
	engine := newTestEngine(newMemRepo(1))
	patient := Patient(uuid.New())

	cases := []struct {
		name string
		p    Payload
	}{
		{"missing title", Payload{Message: "m", Type: TypeKYC, Recipient: &patient}},
		{"unknown type", Payload{Title: "t", Message: "m", Type: "sms", Recipient: &patient}},
		{"unknown priority", Payload{Title: "t", Message: "m", Type: TypeKYC, Priority: "urgent", Recipient: &patient}},
		{"neither audience", Payload{Title: "t", Message: "m", Type: TypeKYC}},
		{"both audiences", Payload{Title: "t", Message: "m", Type: TypeKYC, Recipient: &patient, Broadcast: true}},
		{"nil recipient id", Payload{Title: "t", Message: "m", Type: TypeKYC, Recipient: &Recipient{Kind: RecipientPatient}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Notify(context.Background(), tc.p)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestNotifyClassifiesStoreErrors(t *testing.T) {
	repo := newMemRepo(1)
	repo.failWith = errors.New("boom")
	staff := Staff(uuid.New())

	_, err := newTestEngine(repo).Notify(context.Background(), Payload{Title: "t", Message: "m", Type: TypeSystem, Recipient: &staff})
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestMarkAllReadNeverUnarchives(t *testing.T) {
	repo := newMemRepo(0)
	engine := newTestEngine(repo)
	ctx := context.Background()
	emp := Employee(uuid.New())

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		n, err := engine.Notify(ctx, Payload{Title: "t", Message: "m", Type: TypeSystem, Recipient: &emp})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	_, err := engine.Archive(ctx, ids[0])
	require.NoError(t, err)
	_, err = engine.MarkRead(ctx, ids[1])
	require.NoError(t, err)

	changed, err := engine.MarkAllRead(ctx, emp)
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)

	archived, err := engine.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, archived.Status)

	count, err := engine.UnreadCount(ctx, emp)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkReadIsMonotonic(t *testing.T) {
	engine := newTestEngine(newMemRepo(0))
	ctx := context.Background()
	p := Patient(uuid.New())

	n, err := engine.Notify(ctx, Payload{Title: "t", Message: "m", Type: TypeKYC, Recipient: &p})
	require.NoError(t, err)

	_, err = engine.Archive(ctx, n.ID)
	require.NoError(t, err)

	got, err := engine.MarkRead(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, got.Status)

	again, err := engine.Archive(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, again.Status)
}

func TestReadSideNotFound(t *testing.T) {
	engine := newTestEngine(newMemRepo(0))
	ctx := context.Background()

	_, err := engine.MarkRead(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.NotFound(apperr.ReasonNotificationMiss, ""))

	err = engine.Delete(ctx, uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListNewestFirstWithDefaultLimit(t *testing.T) {
	engine := newTestEngine(newMemRepo(0))
	ctx := context.Background()
	d := Doctor(uuid.New())

	for _, title := range []string{"first", "second", "third"} {
		_, err := engine.Notify(ctx, Payload{Title: title, Message: "m", Type: TypeAppointment, Recipient: &d})
		require.NoError(t, err)
	}

	items, total, err := engine.List(ctx, d, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 3)
	assert.Equal(t, "third", items[0].Title)
	assert.Equal(t, "first", items[2].Title)
}

func TestListClampsLimit(t *testing.T) {
	repo := newMemRepo(0)
	engine := newTestEngine(repo)

	_, _, err := engine.List(context.Background(), Employee(uuid.New()), ListFilter{Limit: 1000, Offset: -5})
	require.NoError(t, err)
	assert.Equal(t, 100, repo.lastFilter.Limit)
	assert.Zero(t, repo.lastFilter.Offset)
}

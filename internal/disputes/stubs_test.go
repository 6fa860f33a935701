package disputes

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/disputedesk-backend/internal/auditlog"
	"github.com/angelmondragon/disputedesk-backend/internal/events"
	"github.com/angelmondragon/disputedesk-backend/internal/lookup"
	"github.com/angelmondragon/disputedesk-backend/pkg/db/models"
	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	"github.com/angelmondragon/disputedesk-backend/pkg/logger"
	"github.com/angelmondragon/disputedesk-backend/pkg/metrics"
)

type memoryRepo struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]models.Dispute
	createErr error
	// beforeUpdate runs before the conditional update is evaluated.
	beforeUpdate func(r *memoryRepo, id uuid.UUID)
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[uuid.UUID]models.Dispute{}}
}

func (r *memoryRepo) Create(_ context.Context, d *models.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.rows {
		if existing.TransactionID == d.TransactionID {
			return ErrDuplicateTransaction
		}
	}
	if d.DisputeID == uuid.Nil {
		d.DisputeID = uuid.New()
	}
	r.rows[d.DisputeID] = *d
	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func (r *memoryRepo) ExistsForTransaction(_ context.Context, transactionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.rows {
		if d.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) List(_ context.Context, q listQuery) ([]models.Dispute, int64, error) {
	var out []models.Dispute
	for _, d := range r.sorted() {
		if q.Status != "" && d.Status != q.Status {
			continue
		}
		if q.RaisedBy != "" && d.RaisedBy != q.RaisedBy {
			continue
		}
		out = append(out, d)
	}
	return out, int64(len(out)), nil
}

func (r *memoryRepo) ListByTransaction(_ context.Context, transactionID string) ([]models.Dispute, error) {
	var out []models.Dispute
	for _, d := range r.sorted() {
		if d.TransactionID == transactionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListByUser(_ context.Context, userID string) ([]models.Dispute, error) {
	var out []models.Dispute
	for _, d := range r.sorted() {
		if d.RaisedBy == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memoryRepo) UpdateStatusIf(_ context.Context, id uuid.UUID, expected enums.DisputeStatus, change statusChange) (bool, error) {
	if r.beforeUpdate != nil {
		hook := r.beforeUpdate
		r.beforeUpdate = nil
		hook(r, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.rows[id]
	if !ok || d.Status != expected {
		return false, nil
	}
	r.rows[id] = *applyChange(d, change)
	return true, nil
}

func (r *memoryRepo) CountByStatus(_ context.Context, window Period) ([]statusCount, error) {
	counts := map[enums.DisputeStatus]int64{}
	for _, d := range r.inWindow(window) {
		counts[d.Status]++
	}
	var out []statusCount
	for status, count := range counts {
		out = append(out, statusCount{Status: status, Count: count})
	}
	return out, nil
}

func (r *memoryRepo) ClosedTimestamps(_ context.Context, window Period) ([]models.Dispute, error) {
	var out []models.Dispute
	for _, d := range r.inWindow(window) {
		if d.Status.IsTerminal() && d.ResolvedAt != nil {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memoryRepo) inWindow(window Period) []models.Dispute {
	var out []models.Dispute
	for _, d := range r.sorted() {
		if window.Start != nil && d.CreatedAt.Before(*window.Start) {
			continue
		}
		if window.End != nil && d.CreatedAt.After(*window.End) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (r *memoryRepo) sorted() []models.Dispute {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Dispute, 0, len(r.rows))
	for _, d := range r.rows {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memoryRepo) put(d models.Dispute) models.Dispute {
	if d.DisputeID == uuid.Nil {
		d.DisputeID = uuid.New()
	}
	r.mu.Lock()
	r.rows[d.DisputeID] = d
	r.mu.Unlock()
	return d
}

// callLog records side effects from every stub in call order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) reset() {
	l.mu.Lock()
	l.calls = nil
	l.mu.Unlock()
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []auditlog.RecordInput
	err     error
	log     *callLog
}

func (a *recordingAudit) Record(_ context.Context, input auditlog.RecordInput) (*models.AdminAction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	a.entries = append(a.entries, input)
	a.log.add("audit:" + string(input.ActionType))
	return &models.AdminAction{ActionID: uuid.New(), ActionType: input.ActionType}, nil
}

func (a *recordingAudit) count(actionType enums.AdminActionType) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.entries {
		if e.ActionType == actionType {
			n++
		}
	}
	return n
}

type publishedEvent struct {
	exchange   string
	routingKey string
	message    events.DisputeEvent
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []publishedEvent
	err       error
	log       *callLog
}

func (p *recordingPublisher) Publish(_ context.Context, exchange, routingKey string, message events.DisputeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, publishedEvent{exchange: exchange, routingKey: routingKey, message: message})
	p.log.add("publish:" + routingKey)
	return nil
}

func (p *recordingPublisher) count(routingKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.published {
		if e.routingKey == routingKey {
			n++
		}
	}
	return n
}

type stubTransactions struct {
	exists     bool
	existsErr  error
	details    *lookup.TransactionDetails
	detailsErr error
}

func (s *stubTransactions) Exists(context.Context, string, string) (bool, error) {
	return s.exists, s.existsErr
}

func (s *stubTransactions) GetDetails(context.Context, string, string) (*lookup.TransactionDetails, error) {
	return s.details, s.detailsErr
}

type stubUsers struct {
	users map[string]*lookup.UserInfo
	fail  map[string]bool
}

func (s *stubUsers) GetBasicInfo(_ context.Context, userID, _ string) (*lookup.UserInfo, error) {
	if s.fail[userID] {
		return nil, errors.New("identity service unavailable")
	}
	return s.users[userID], nil
}

type fixture struct {
	repo         *memoryRepo
	audit        *recordingAudit
	publisher    *recordingPublisher
	transactions *stubTransactions
	users        *stubUsers
	metrics      *metrics.DisputeMetrics
	calls        *callLog
	svc          *service
	clock        time.Time
}

const (
	testTransactionID = "550e8400-e29b-41d4-a716-446655440000"
	testUserID        = "user-1"
	testAdminID       = "admin-1"
)

func newFixture() *fixture {
	calls := &callLog{}
	f := &fixture{
		repo:         newMemoryRepo(),
		audit:        &recordingAudit{log: calls},
		publisher:    &recordingPublisher{log: calls},
		calls:        calls,
		transactions: &stubTransactions{exists: true},
		users:        &stubUsers{users: map[string]*lookup.UserInfo{}, fail: map[string]bool{}},
		clock:        time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Repo:         f.repo,
		Audit:        f.audit,
		Transactions: f.transactions,
		Users:        f.users,
		Publisher:    f.publisher,
		Metrics:      f.metrics,
		Logger:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		panic(err)
	}
	f.svc = svc.(*service)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

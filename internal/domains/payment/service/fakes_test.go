package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	agreementModel "rentflow-backend/internal/domains/agreement/model"
	"rentflow-backend/internal/domains/payment/gateway/esewa"
	"rentflow-backend/internal/domains/payment/model"
	"rentflow-backend/pkg/database"
)

const (
	testProductCode = "EPAYTEST"
	testSecret      = "8gBm/:&EnhH.1/q"
)

// =====================================================
// IN-MEMORY STORE
// =====================================================

// store is shared by the fake repositories. fakeTxManager snapshots it on
// begin and restores the snapshot when fn fails.
type store struct {
	mu         sync.Mutex
	payments   map[int64]model.Payment
	agreements map[int64]agreementModel.Agreement
	history    []agreementModel.StatusChange
	nextID     int64
	clock      time.Time

	// fault injection
	transitionErr error
}

func newStore() *store {
	return &store{
		payments:   map[int64]model.Payment{},
		agreements: map[int64]agreementModel.Agreement{},
		nextID:     1,
		clock:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

type snapshot struct {
	payments   map[int64]model.Payment
	agreements map[int64]agreementModel.Agreement
	history    []agreementModel.StatusChange
	nextID     int64
}

func (s *store) snapshot() snapshot {
	snap := snapshot{
		payments:   make(map[int64]model.Payment, len(s.payments)),
		agreements: make(map[int64]agreementModel.Agreement, len(s.agreements)),
		history:    append([]agreementModel.StatusChange(nil), s.history...),
		nextID:     s.nextID,
	}
	for k, v := range s.payments {
		snap.payments[k] = v
	}
	for k, v := range s.agreements {
		snap.agreements[k] = v
	}
	return snap
}

func (s *store) restore(snap snapshot) {
	s.payments = snap.payments
	s.agreements = snap.agreements
	s.history = snap.history
	s.nextID = snap.nextID
}

func (s *store) addAgreement(id int64, status agreementModel.Status, renterID, landlordID int64) {
	s.agreements[id] = agreementModel.Agreement{
		ID:         id,
		BookingID:  id * 10,
		LandlordID: landlordID,
		RenterID:   renterID,
		Status:     status,
		CreatedAt:  s.clock,
		UpdatedAt:  s.clock,
	}
}

func (s *store) addPayment(agreementID int64, amount int64, status string, createdAt time.Time) model.Payment {
	a := s.agreements[agreementID]
	p := model.Payment{
		ID:          s.nextID,
		AgreementID: agreementID,
		RenterID:    a.RenterID,
		Amount:      decimal.NewFromInt(amount),
		Status:      status,
		Gateway:     model.GatewayEsewa,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	s.nextID++
	s.payments[p.ID] = p
	return p
}

func (s *store) payment(id int64) model.Payment {
	return s.payments[id]
}

func (s *store) agreementStatus(id int64) agreementModel.Status {
	return s.agreements[id].Status
}

// =====================================================
// TRANSACTION MANAGER
// =====================================================

// fakeTx satisfies pgx.Tx; the fake repositories never call it
type fakeTx struct {
	pgx.Tx
}

type fakeTxManager struct {
	store     *store
	commits   int
	rollbacks int
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn database.TxFunc) error {
	m.store.mu.Lock()
	snap := m.store.snapshot()
	m.store.mu.Unlock()

	if err := fn(&fakeTx{}); err != nil {
		m.store.mu.Lock()
		m.store.restore(snap)
		m.store.mu.Unlock()
		m.rollbacks++
		return err
	}

	m.commits++
	return nil
}

// =====================================================
// PAYMENT REPOSITORY
// =====================================================

type fakePaymentRepo struct {
	store *store
}

func (r *fakePaymentRepo) CreateWithTx(ctx context.Context, tx pgx.Tx, payment *model.Payment) error {
	payment.ID = r.store.nextID
	r.store.nextID++
	payment.CreatedAt = r.store.clock
	payment.UpdatedAt = r.store.clock
	r.store.payments[payment.ID] = *payment
	return nil
}

func (r *fakePaymentRepo) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *fakePaymentRepo) GetCompletedByAgreementWithTx(ctx context.Context, tx pgx.Tx, agreementID int64) (*model.Payment, error) {
	for _, p := range r.store.payments {
		if p.AgreementID == agreementID && p.IsCompleted() {
			cp := p
			return &cp, nil
		}
	}
	return nil, model.ErrNoCompleted
}

func (r *fakePaymentRepo) MarkCompletedWithTx(ctx context.Context, tx pgx.Tx, id int64, transactionCode, referenceCode string) error {
	p, ok := r.store.payments[id]
	if !ok {
		return model.ErrPaymentNotFound
	}
	now := r.store.clock
	p.Status = model.PaymentStatusCompleted
	p.TransactionID = &transactionCode
	p.ReferenceID = &referenceCode
	p.CompletedAt = &now
	r.store.payments[id] = p
	return nil
}

func (r *fakePaymentRepo) MarkFailedWithTx(ctx context.Context, tx pgx.Tx, id int64, reason string) error {
	p, ok := r.store.payments[id]
	if !ok {
		return model.ErrPaymentNotFound
	}
	now := r.store.clock
	p.Status = model.PaymentStatusFailed
	p.FailureReason = &reason
	p.FailedAt = &now
	r.store.payments[id] = p
	return nil
}

func (r *fakePaymentRepo) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	p, ok := r.store.payments[id]
	if !ok {
		return nil, model.ErrPaymentNotFound
	}
	return &p, nil
}

func (r *fakePaymentRepo) GetLatestByAgreement(ctx context.Context, agreementID int64) (*model.Payment, error) {
	list, _ := r.ListByAgreement(ctx, agreementID)
	if len(list) == 0 {
		return nil, model.ErrPaymentNotFound
	}
	return list[0], nil
}

func (r *fakePaymentRepo) ListByAgreement(ctx context.Context, agreementID int64) ([]*model.Payment, error) {
	out := make([]*model.Payment, 0)
	for _, p := range r.store.payments {
		if p.AgreementID == agreementID {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakePaymentRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*model.Payment, error) {
	out := make([]*model.Payment, 0)
	for _, p := range r.store.payments {
		if p.IsPending() && p.CreatedAt.Before(olderThan) {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// =====================================================
// AGREEMENT REPOSITORY
// =====================================================

type fakeAgreementRepo struct {
	store *store
}

func (r *fakeAgreementRepo) GetByID(ctx context.Context, id int64) (*agreementModel.Agreement, error) {
	a, ok := r.store.agreements[id]
	if !ok {
		return nil, agreementModel.ErrAgreementNotFound
	}
	return &a, nil
}

func (r *fakeAgreementRepo) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id int64) (*agreementModel.Agreement, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeAgreementRepo) TransitionWithTx(ctx context.Context, tx pgx.Tx, from agreementModel.Status, t agreementModel.Transition) error {
	if r.store.transitionErr != nil {
		return r.store.transitionErr
	}
	if !from.CanTransitionTo(t.To) {
		return &agreementModel.TransitionError{AgreementID: t.AgreementID, From: from, To: t.To}
	}
	a, ok := r.store.agreements[t.AgreementID]
	if !ok {
		return agreementModel.ErrAgreementNotFound
	}
	a.Status = t.To
	r.store.agreements[t.AgreementID] = a
	r.store.history = append(r.store.history, agreementModel.StatusChange{
		AgreementID: t.AgreementID,
		FromStatus:  from,
		ToStatus:    t.To,
		Reason:      t.Reason,
		PaymentID:   t.PaymentID,
	})
	return nil
}

func (r *fakeAgreementRepo) ListHistory(ctx context.Context, agreementID int64) ([]agreementModel.StatusChange, error) {
	var out []agreementModel.StatusChange
	for _, c := range r.store.history {
		if c.AgreementID == agreementID {
			out = append(out, c)
		}
	}
	return out, nil
}

// =====================================================
// GATEWAY, LOCKER, QUEUE
// =====================================================

// fakeGateway signs with the real client and answers status checks from a table
type fakeGateway struct {
	*esewa.Client
	statuses map[string]string
	refs     map[string]string
	errs     map[string]error
}

func newFakeGateway() *fakeGateway {
	c, err := esewa.NewClient(esewa.Config{ProductCode: testProductCode, SecretKey: testSecret})
	if err != nil {
		panic(err)
	}
	return &fakeGateway{
		Client:   c,
		statuses: map[string]string{},
		refs:     map[string]string{},
		errs:     map[string]error{},
	}
}

func (g *fakeGateway) CheckStatus(ctx context.Context, transactionID string, amount decimal.Decimal) (*esewa.StatusResult, error) {
	if err, ok := g.errs[transactionID]; ok {
		return nil, err
	}
	status, ok := g.statuses[transactionID]
	if !ok {
		status = esewa.StatusNotFound
	}
	res := &esewa.StatusResult{
		ProductCode:     testProductCode,
		TransactionUUID: transactionID,
		TotalAmount:     esewa.RawValue(amount.String()),
		Status:          status,
	}
	if ref, ok := g.refs[transactionID]; ok {
		res.RefID = &ref
	}
	return res, nil
}

type fakeLocker struct {
	held       map[string]string // key -> owner token
	acquireErr error
	released   []string
	seq        int

	// expireAfterAcquire hands the key to another owner right after granting it
	expireAfterAcquire bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]string{}}
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l.acquireErr != nil {
		return "", false, l.acquireErr
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.seq++
	token := "token-" + strconv.Itoa(l.seq)
	l.held[key] = token
	if l.expireAfterAcquire {
		l.held[key] = "other-owner"
	}
	return token, true, nil
}

func (l *fakeLocker) Release(ctx context.Context, key, token string) error {
	if l.held[key] == token {
		delete(l.held, key)
	}
	l.released = append(l.released, key)
	return nil
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

var errBoom = errors.New("boom")

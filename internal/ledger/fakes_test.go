package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/commission"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/ledgerevent"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/outbox"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/seller"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/withdrawal"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/metrics"
)

var errInjected = errors.New("injected storage failure")

type memState struct {
	sellers      map[uuid.UUID]seller.Account
	entries      map[uuid.UUID]commission.Entry
	withdrawals  map[uuid.UUID]withdrawal.Request
	outbox       []outbox.Message
	nextOutboxID int64
}

func (s memState) clone() memState {
	c := memState{
		sellers:      make(map[uuid.UUID]seller.Account, len(s.sellers)),
		entries:      make(map[uuid.UUID]commission.Entry, len(s.entries)),
		withdrawals:  make(map[uuid.UUID]withdrawal.Request, len(s.withdrawals)),
		outbox:       append([]outbox.Message(nil), s.outbox...),
		nextOutboxID: s.nextOutboxID,
	}
	for k, v := range s.sellers {
		c.sellers[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.withdrawals {
		c.withdrawals[k] = v
	}
	return c
}

// memDB is an in-memory stand-in for Postgres. ExecuteTx runs one transaction
// at a time and restores the previous state when fn fails.
type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   memState

	failSetAvailable error
	failSumCredits   map[uuid.UUID]error
	failListIDs      error
	commits          int
	rollbacks        int
}

func newMemDB() *memDB {
	return &memDB{
		st: memState{
			sellers:     map[uuid.UUID]seller.Account{},
			entries:     map[uuid.UUID]commission.Entry{},
			withdrawals: map[uuid.UUID]withdrawal.Request{},
		},
		failSumCredits: map[uuid.UUID]error{},
	}
}

func (db *memDB) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	snapshot := db.st.clone()
	db.mu.Unlock()

	if err := fn(nil); err != nil {
		db.mu.Lock()
		db.st = snapshot
		db.rollbacks++
		db.mu.Unlock()
		return err
	}

	db.mu.Lock()
	db.commits++
	db.mu.Unlock()
	return nil
}

func (db *memDB) repositories() Repositories {
	return Repositories{
		Sellers:     &memSellers{db: db},
		Commissions: &memCommissions{db: db},
		Withdrawals: &memWithdrawals{db: db},
		Outbox:      &memOutbox{db: db},
	}
}

func (db *memDB) account(id uuid.UUID) seller.Account {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.st.sellers[id]
}

func (db *memDB) setCachedAvailable(id uuid.UUID, amount int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	acc := db.st.sellers[id]
	acc.AvailableCommission = amount
	db.st.sellers[id] = acc
}

func (db *memDB) entry(id uuid.UUID) commission.Entry {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.st.entries[id]
}

func (db *memDB) request(id uuid.UUID) withdrawal.Request {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.st.withdrawals[id]
}

func (db *memDB) events() []*ledgerevent.Event {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*ledgerevent.Event, 0, len(db.st.outbox))
	for i := range db.st.outbox {
		event, err := db.st.outbox[i].Event()
		if err != nil {
			panic(err)
		}
		out = append(out, event)
	}
	return out
}

func (db *memDB) eventsOfType(t ledgerevent.Type) []*ledgerevent.Event {
	var out []*ledgerevent.Event
	for _, e := range db.events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type memSellers struct{ db *memDB }

func (r *memSellers) WithTx(pgx.Tx) seller.Repository { return r }

func (r *memSellers) EnsureExists(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.st.sellers[id]; !ok {
		r.db.st.sellers[id] = *seller.NewAccount(id)
	}
	return nil
}

func (r *memSellers) GetByID(ctx context.Context, id uuid.UUID) (*seller.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	acc, ok := r.db.st.sellers[id]
	if !ok {
		return nil, seller.ErrSellerNotFound{SellerID: id}
	}
	return &acc, nil
}

func (r *memSellers) LockForUpdate(ctx context.Context, id uuid.UUID) (*seller.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *memSellers) UpdateBankDetails(ctx context.Context, id uuid.UUID, details seller.BankDetails) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	acc, ok := r.db.st.sellers[id]
	if !ok {
		return seller.ErrSellerNotFound{SellerID: id}
	}
	acc.BankDetails = details
	acc.UpdatedAt = time.Now().UTC()
	r.db.st.sellers[id] = acc
	return nil
}

func (r *memSellers) IncrementTotalCommission(ctx context.Context, id uuid.UUID, amount int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	acc, ok := r.db.st.sellers[id]
	if !ok {
		return seller.ErrSellerNotFound{SellerID: id}
	}
	acc.TotalCommission += amount
	r.db.st.sellers[id] = acc
	return nil
}

func (r *memSellers) SetAvailableCommission(ctx context.Context, id uuid.UUID, amount int64, version int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failSetAvailable != nil {
		return r.db.failSetAvailable
	}
	if amount < 0 {
		return seller.ErrNegativeBalance
	}
	acc, ok := r.db.st.sellers[id]
	if !ok {
		return seller.ErrSellerNotFound{SellerID: id}
	}
	if acc.Version != version {
		return seller.ErrConcurrentModification{SellerID: id}
	}
	acc.AvailableCommission = amount
	acc.Version++
	acc.UpdatedAt = time.Now().UTC()
	r.db.st.sellers[id] = acc
	return nil
}

func (r *memSellers) ListIDs(ctx context.Context, afterID uuid.UUID, limit int) ([]uuid.UUID, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failListIDs != nil {
		return nil, r.db.failListIDs
	}
	ids := make([]uuid.UUID, 0, len(r.db.st.sellers))
	for id := range r.db.st.sellers {
		if bytes.Compare(id[:], afterID[:]) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type memCommissions struct{ db *memDB }

func (r *memCommissions) WithTx(pgx.Tx) commission.Repository { return r }

func (r *memCommissions) Create(ctx context.Context, entry *commission.Entry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if entry.Type == commission.TypeEarned && entry.OrderID != nil {
		for _, e := range r.db.st.entries {
			if e.SellerID == entry.SellerID && e.Type == commission.TypeEarned && e.OrderID != nil && *e.OrderID == *entry.OrderID {
				return commission.ErrDuplicateOrderEntry{SellerID: entry.SellerID, OrderID: *entry.OrderID}
			}
		}
	}
	r.db.st.entries[entry.ID] = *entry
	return nil
}

func (r *memCommissions) GetByID(ctx context.Context, id uuid.UUID) (*commission.Entry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.st.entries[id]
	if !ok {
		return nil, commission.ErrEntryNotFound{EntryID: id}
	}
	return &e, nil
}

func (r *memCommissions) GetByOrder(ctx context.Context, sellerID uuid.UUID, orderID string, entryType commission.EntryType) (*commission.Entry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range r.db.st.entries {
		if e.SellerID == sellerID && e.Type == entryType && e.OrderID != nil && *e.OrderID == orderID {
			found := e
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memCommissions) UpdateStatus(ctx context.Context, entry *commission.Entry, from commission.Status) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.st.entries[entry.ID]
	if !ok {
		return commission.ErrEntryNotFound{EntryID: entry.ID}
	}
	if stored.Status != from {
		return shared.ErrInvalidTransition{Entity: "commission entry", ID: entry.ID, From: string(stored.Status), To: string(entry.Status)}
	}
	r.db.st.entries[entry.ID] = *entry
	return nil
}

func matchesEntry(e commission.Entry, f commission.Filter) bool {
	if f.SellerID != nil && e.SellerID != *f.SellerID {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func (r *memCommissions) filtered(f commission.Filter) []commission.Entry {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []commission.Entry
	for _, e := range r.db.st.entries {
		if matchesEntry(e, f) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memCommissions) List(ctx context.Context, f commission.Filter, limit, offset int) ([]*commission.Entry, error) {
	all := r.filtered(f)
	var out []*commission.Entry
	for i := offset; i < len(all) && len(out) < limit; i++ {
		e := all[i]
		out = append(out, &e)
	}
	return out, nil
}

func (r *memCommissions) Count(ctx context.Context, f commission.Filter) (int64, error) {
	return int64(len(r.filtered(f))), nil
}

func (r *memCommissions) SumConfirmedCredits(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failSumCredits[sellerID]; err != nil {
		return 0, err
	}
	var sum int64
	for _, e := range r.db.st.entries {
		if e.SellerID == sellerID && e.Status == commission.StatusConfirmed && e.Type.IsCredit() {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (r *memCommissions) Summarize(ctx context.Context, sellerID uuid.UUID) (*commission.Summary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s := &commission.Summary{}
	for _, e := range r.db.st.entries {
		if e.SellerID != sellerID {
			continue
		}
		switch {
		case e.Type.IsCredit() && e.Status == commission.StatusPending:
			s.TotalEarned += e.Amount
			s.PendingAmount += e.Amount
		case e.Type.IsCredit() && e.Status == commission.StatusConfirmed:
			s.TotalEarned += e.Amount
			s.ConfirmedAmount += e.Amount
		case e.Type == commission.TypeDeducted && e.Status == commission.StatusConfirmed:
			s.TotalDeducted += e.Amount
		}
	}
	return s, nil
}

func (r *memCommissions) MonthlyRollup(ctx context.Context, sellerID uuid.UUID, since time.Time) ([]commission.MonthlyTotal, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	byMonth := map[time.Time]*commission.MonthlyTotal{}
	for _, e := range r.db.st.entries {
		if e.SellerID != sellerID || !e.Type.IsCredit() || e.Status != commission.StatusConfirmed || e.CreatedAt.Before(since) {
			continue
		}
		c := e.CreatedAt.UTC()
		m := time.Date(c.Year(), c.Month(), 1, 0, 0, 0, 0, time.UTC)
		if byMonth[m] == nil {
			byMonth[m] = &commission.MonthlyTotal{Month: m}
		}
		byMonth[m].Amount += e.Amount
		byMonth[m].Count++
	}
	var out []commission.MonthlyTotal
	for _, t := range byMonth {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

type memWithdrawals struct{ db *memDB }

func (r *memWithdrawals) WithTx(pgx.Tx) withdrawal.Repository { return r }

func (r *memWithdrawals) Create(ctx context.Context, req *withdrawal.Request) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.st.withdrawals[req.ID] = *req
	return nil
}

func (r *memWithdrawals) GetByID(ctx context.Context, id uuid.UUID) (*withdrawal.Request, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	req, ok := r.db.st.withdrawals[id]
	if !ok {
		return nil, withdrawal.ErrRequestNotFound{RequestID: id}
	}
	return &req, nil
}

func (r *memWithdrawals) UpdateStatus(ctx context.Context, req *withdrawal.Request, from withdrawal.Status) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.st.withdrawals[req.ID]
	if !ok {
		return withdrawal.ErrRequestNotFound{RequestID: req.ID}
	}
	if stored.Status != from {
		return shared.ErrInvalidTransition{Entity: "withdrawal", ID: req.ID, From: string(stored.Status), To: string(req.Status)}
	}
	r.db.st.withdrawals[req.ID] = *req
	return nil
}

func (r *memWithdrawals) filtered(f withdrawal.Filter) []withdrawal.Request {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []withdrawal.Request
	for _, req := range r.db.st.withdrawals {
		if f.SellerID != nil && req.SellerID != *f.SellerID {
			continue
		}
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out
}

func (r *memWithdrawals) List(ctx context.Context, f withdrawal.Filter, limit, offset int) ([]*withdrawal.Request, error) {
	all := r.filtered(f)
	var out []*withdrawal.Request
	for i := offset; i < len(all) && len(out) < limit; i++ {
		req := all[i]
		out = append(out, &req)
	}
	return out, nil
}

func (r *memWithdrawals) Count(ctx context.Context, f withdrawal.Filter) (int64, error) {
	return int64(len(r.filtered(f))), nil
}

func (r *memWithdrawals) SumByStatus(ctx context.Context, sellerID uuid.UUID) (withdrawal.Totals, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var t withdrawal.Totals
	for _, req := range r.db.st.withdrawals {
		if req.SellerID != sellerID {
			continue
		}
		switch req.Status {
		case withdrawal.StatusCompleted:
			t.Completed += req.Amount
		case withdrawal.StatusPending:
			t.Pending += req.Amount
		}
	}
	return t, nil
}

type memOutbox struct{ db *memDB }

func (r *memOutbox) WithTx(pgx.Tx) outbox.Repository { return r }

func (r *memOutbox) Create(ctx context.Context, msg *outbox.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.st.nextOutboxID++
	msg.ID = r.db.st.nextOutboxID
	r.db.st.outbox = append(r.db.st.outbox, *msg)
	return nil
}

func (r *memOutbox) GetPending(ctx context.Context, limit, maxAttempts int) ([]*outbox.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*outbox.Message
	for i := range r.db.st.outbox {
		m := r.db.st.outbox[i]
		if m.Status == shared.OutboxStatusPending && m.Attempts < maxAttempts && len(out) < limit {
			out = append(out, &m)
		}
	}
	return out, nil
}

func (r *memOutbox) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.st.outbox {
		if r.db.st.outbox[i].ID == id {
			r.db.st.outbox[i].Status = status
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r *memOutbox) IncrementAttempts(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.st.outbox {
		if r.db.st.outbox[i].ID == id {
			r.db.st.outbox[i].Attempts++
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

// memCache counts lookups and invalidations.
type memCache struct {
	mu            sync.Mutex
	data          map[string][]byte
	invalidations map[uuid.UUID]int
	failGet       error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, invalidations: map[uuid.UUID]int{}}
}

func cacheKey(sellerID uuid.UUID, months int) string {
	return sellerID.String() + "/" + strconv.Itoa(months)
}

func (c *memCache) Get(ctx context.Context, sellerID uuid.UUID, months int, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return false, c.failGet
	}
	raw, ok := c.data[cacheKey(sellerID, months)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memCache) Set(ctx context.Context, sellerID uuid.UUID, months int, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[cacheKey(sellerID, months)] = raw
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, sellerID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := sellerID.String() + "/"
	for k := range c.data {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(c.data, k)
		}
	}
	c.invalidations[sellerID]++
	return nil
}

func (c *memCache) invalidated(sellerID uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidations[sellerID]
}

type harness struct {
	db    *memDB
	cache *memCache
	svc   *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithOptions(t, Options{})
}

func newHarnessWithOptions(t *testing.T, opts Options) *harness {
	t.Helper()
	db := newMemDB()
	cache := newMemCache()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	m := metrics.NewLedgerMetrics(prometheus.NewRegistry())
	return &harness{
		db:    db,
		cache: cache,
		svc:   New(db, db.repositories(), cache, m, logger, opts),
	}
}

var completeProfile = seller.BankDetails{
	AccountHolder: "Meera Decor House",
	AccountNumber: "501002345678",
	IFSC:          "HDFC0001234",
	BankName:      "HDFC Bank",
}

// newSeller creates a seller with a complete payout profile.
func (h *harness) newSeller(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := h.svc.Projection.UpdatePayoutProfile(context.Background(), id, completeProfile)
	require.NoError(t, err)
	return id
}

func (h *harness) credit(t *testing.T, sellerID uuid.UUID, amount int64, status commission.Status) *commission.Entry {
	t.Helper()
	entry, err := h.svc.Store.Record(context.Background(), RecordInput{
		SellerID: sellerID,
		Type:     commission.TypeEarned,
		Amount:   &amount,
		Status:   status,
	})
	require.NoError(t, err)
	return entry
}

func (h *harness) withdraw(t *testing.T, sellerID uuid.UUID, amount int64) *withdrawal.Request {
	t.Helper()
	req, err := h.svc.Withdrawals.Request(context.Background(), sellerID, amount, "", "")
	require.NoError(t, err)
	return req
}

// assertConsistent checks the cached balance equals the recomputed one.
func (h *harness) assertConsistent(t *testing.T, sellerID uuid.UUID) int64 {
	t.Helper()
	available, err := h.svc.Reconciler.Available(context.Background(), sellerID)
	require.NoError(t, err)
	cached := h.db.account(sellerID).AvailableCommission
	require.Equal(t, available, cached, "cached available commission drifted from the ledger")
	require.GreaterOrEqual(t, cached, int64(0))
	return cached
}

func ptr[T any](v T) *T {
	return &v
}

package payment

import (
	"context"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/loja-api/internal/sale"
	"github.com/noah-isme/loja-api/internal/settings"
)

type fakeGateway struct {
	mu          sync.Mutex
	payments    map[string]PaymentInfo
	err         error
	prefErr     error
	pref        PreferenceResult
	lastPref    Preference
	lastToken   string
	getCalls    int
	searchCalls int
	prefCalls   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string]PaymentInfo{}}
}

func (g *fakeGateway) CreatePreference(_ context.Context, token string, pref Preference) (PreferenceResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prefCalls++
	g.lastPref = pref
	g.lastToken = token
	if g.prefErr != nil {
		return PreferenceResult{}, g.prefErr
	}
	return g.pref, nil
}

func (g *fakeGateway) GetPayment(_ context.Context, token, id string) (PaymentInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls++
	g.lastToken = token
	if g.err != nil {
		return PaymentInfo{}, g.err
	}
	info, ok := g.payments[id]
	if !ok {
		return PaymentInfo{}, ErrPaymentNotFound
	}
	return info, nil
}

func (g *fakeGateway) SearchByExternalReference(_ context.Context, token, ref string) (PaymentInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searchCalls++
	g.lastToken = token
	if g.err != nil {
		return PaymentInfo{}, g.err
	}
	for _, info := range g.payments {
		if info.ExternalReference == ref {
			return info, nil
		}
	}
	return PaymentInfo{}, ErrPaymentNotFound
}

// memLedger applies the same transition rule as the SQL guard.
type memLedger struct {
	mu    sync.Mutex
	sales map[int64]sale.Sale
	err   error
}

func newMemLedger(ids ...int64) *memLedger {
	l := &memLedger{sales: map[int64]sale.Sale{}}
	for _, id := range ids {
		l.sales[id] = sale.Sale{ID: id, Status: sale.StatusPending}
	}
	return l
}

func (l *memLedger) Get(_ context.Context, id int64) (sale.Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sales[id]
	if !ok {
		return sale.Sale{}, sale.ErrNotFound
	}
	return s, nil
}

func (l *memLedger) UpdateStatus(_ context.Context, id int64, status sale.Status, paymentID string) (sale.Update, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return sale.Update{}, l.err
	}
	s, ok := l.sales[id]
	if !ok {
		return sale.Update{Result: sale.UpdateUnknown}, nil
	}
	prev := s.Status
	if !sale.CanTransition(prev, status) {
		return sale.Update{Result: sale.UpdateRejected, Previous: prev, Sale: s}, nil
	}
	if prev == status {
		return sale.Update{Result: sale.UpdateUnchanged, Previous: prev, Sale: s}, nil
	}
	s.Status = status
	if paymentID != "" {
		s.PaymentID = paymentID
	}
	l.sales[id] = s
	return sale.Update{Result: sale.UpdateApplied, Previous: prev, Sale: s}, nil
}

func (l *memLedger) status(id int64) sale.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sales[id].Status
}

type staticSettings settings.Values

func (s staticSettings) Snapshot(context.Context) (settings.Values, error) {
	return settings.Values(s), nil
}

func withToken() staticSettings {
	return staticSettings{settings.KeyPaymentAccessToken: "APP_USR-test"}
}

type recordingRechecker struct {
	mu    sync.Mutex
	calls []Notification
	err   error
}

func (r *recordingRechecker) Schedule(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, n)
	return r.err
}

func (r *recordingRechecker) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type capturedTask struct {
	task *asynq.Task
	opts []asynq.Option
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []capturedTask
	seen  map[string]bool
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	for _, o := range opts {
		if o.Type() == asynq.TaskIDOpt {
			id := o.Value().(string)
			if f.seen[id] {
				return nil, asynq.ErrTaskIDConflict
			}
			f.seen[id] = true
		}
	}
	f.tasks = append(f.tasks, capturedTask{task: task, opts: opts})
	return &asynq.TaskInfo{}, nil
}

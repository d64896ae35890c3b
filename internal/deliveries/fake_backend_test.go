package deliveries

import (
	"context"
	"sync"
)

type fakeBackend struct {
	mu        sync.Mutex
	active    *Delivery
	activeErr error
	history   []Delivery
	err       error
	calls     []string
	partial   []PartialDeliverInput
	failed    []FailInput
	// after runs on a successful mutation so the next fetch sees the change.
	after func(b *fakeBackend, op string)
}

func (f *fakeBackend) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if f.err != nil {
		return f.err
	}
	if f.after != nil {
		f.after(f, op)
	}
	return nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) ActiveDelivery(context.Context) (*Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "active")
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	return f.active.Clone(), nil
}

func (f *fakeBackend) Deliveries(context.Context) ([]Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "history")
	return f.history, f.err
}

func (f *fakeBackend) StartDelivery(context.Context, string) error { return f.record("start") }

func (f *fakeBackend) CompleteDelivery(context.Context, string) error { return f.record("complete") }

func (f *fakeBackend) DeliverOrder(context.Context, DeliverInput) error { return f.record("deliver") }

func (f *fakeBackend) PartialDeliverOrder(_ context.Context, input PartialDeliverInput) error {
	f.mu.Lock()
	f.partial = append(f.partial, input)
	f.mu.Unlock()
	return f.record("partial")
}

func (f *fakeBackend) FailOrder(_ context.Context, input FailInput) error {
	f.mu.Lock()
	f.failed = append(f.failed, input)
	f.mu.Unlock()
	return f.record("fail")
}

func (f *fakeBackend) PostponeOrder(context.Context, PostponeInput) error { return f.record("postpone") }

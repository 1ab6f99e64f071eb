package controller

import (
	"context"
	"sync"

	"github.com/hitoshi/trainboard/internal/model"
)

type fakeTrainAPI struct {
	mu    sync.Mutex
	calls []string

	searchFn func(ctx context.Context, from, to string) ([]model.TrainSummary, error)
	pnrFn    func(ctx context.Context, pnr string) (*model.PNRStatus, error)
	liveFn   func(ctx context.Context, trainNumber string) (*model.LiveStatus, error)
}

func (f *fakeTrainAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeTrainAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTrainAPI) SearchTrains(ctx context.Context, from, to string) ([]model.TrainSummary, error) {
	f.record("search:" + from + ":" + to)
	return f.searchFn(ctx, from, to)
}

func (f *fakeTrainAPI) GetPNRStatus(ctx context.Context, pnr string) (*model.PNRStatus, error) {
	f.record("pnr:" + pnr)
	return f.pnrFn(ctx, pnr)
}

func (f *fakeTrainAPI) GetLiveStatus(ctx context.Context, trainNumber string) (*model.LiveStatus, error) {
	f.record("live:" + trainNumber)
	return f.liveFn(ctx, trainNumber)
}

// fakeSession はサインイン状態を手動で切り替えられるIdentityObservable。
type fakeSession struct {
	mu       sync.Mutex
	identity *model.Identity
	subs     observers[*model.Identity]
}

func (s *fakeSession) Current() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *fakeSession) Subscribe(fn func(*model.Identity)) func() {
	return s.subs.subscribe(fn)
}

func (s *fakeSession) set(id *model.Identity) {
	s.mu.Lock()
	s.identity = id
	s.mu.Unlock()
	s.subs.notify(id)
}

var rajdhani = model.TrainSummary{
	Number:    "12345",
	Name:      "Rajdhani",
	From:      "Delhi",
	To:        "Mumbai",
	Departure: "16:00",
	Arrival:   "08:00",
	Duration:  "16h",
}

package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/tradein-backend/pkg/logger"
)

type fakeLock struct {
	acquired  bool
	extends   int
	loseAfter int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Extend(context.Context) (bool, error) {
	f.extends++
	if f.loseAfter > 0 && f.extends >= f.loseAfter {
		return false, nil
	}
	return f.acquired, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	registry := mustRegistry(t, &testJob{name: "tracking-refresh"}, &testJob{name: "expired-label-void", err: errors.New("carrier down")})
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     &fakeLock{},
		Interval: 0,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx := context.Background()
	if err := service.runCycle(ctx, registry.Jobs()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if success, ok := jobs[0].(*testJob); ok {
		if success.runs != 1 {
			t.Fatalf("expected success job to run once, ran %d", success.runs)
		}
	} else {
		t.Fatalf("first job type mismatch")
	}
	if failure, ok := jobs[1].(*testJob); ok {
		if failure.runs != 1 {
			t.Fatalf("expected failure job to run once, ran %d", failure.runs)
		}
	} else {
		t.Fatalf("second job type mismatch")
	}
}

type busyLock struct{}

func (busyLock) Acquire(context.Context) (bool, error) { return false, nil }
func (busyLock) Extend(context.Context) (bool, error)  { return false, nil }
func (busyLock) Release(context.Context) error         { return nil }

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	job := &testJob{name: "tracking-refresh"}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: mustRegistry(t, job),
		Lock:     busyLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job to be skipped, ran %d", job.runs)
	}
}

func TestServiceRunOnceSelectsJobs(t *testing.T) {
	a := &testJob{name: "tracking-refresh"}
	b := &testJob{name: "wholesale-order-expiry"}
	lock := &fakeLock{}
	service, _ := NewService(ServiceParams{Logger: testLogger(), Registry: mustRegistry(t, a, b), Lock: lock})

	if err := service.RunOnce(context.Background(), "wholesale-order-expiry"); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if a.runs != 0 || b.runs != 1 {
		t.Fatalf("unexpected runs a=%d b=%d", a.runs, b.runs)
	}
	if lock.acquired {
		t.Fatalf("expected lock to be released")
	}
	if err := service.RunOnce(context.Background(), "nope"); err == nil {
		t.Fatalf("expected unknown job error")
	}
}

func TestServiceStopsCycleWhenLockLost(t *testing.T) {
	a := &testJob{name: "tracking-refresh"}
	b := &testJob{name: "dormant-order-cancel"}
	c := &testJob{name: "expired-label-void"}
	lock := &fakeLock{loseAfter: 2}
	service, _ := NewService(ServiceParams{Logger: testLogger(), Registry: mustRegistry(t, a, b, c), Lock: lock})

	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if a.runs != 1 || b.runs != 1 || c.runs != 0 {
		t.Fatalf("expected the sweep to stop after the lock was lost, runs a=%d b=%d c=%d", a.runs, b.runs, c.runs)
	}
}

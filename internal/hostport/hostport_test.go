package hostport

import (
	"errors"
	"testing"

	"rucos/internal/kernel"
	"rucos/internal/trace"
)

func setup(t *testing.T) *Runtime {
	t.Helper()
	rt := New(kernel.Load(""))
	if err := rt.Init(make([]byte, 256), nil); err != nil {
		t.Fatalf("Init() error = %v, want nil", err)
	}
	return rt
}

func create(t *testing.T, rt *Runtime, id kernel.TaskID, prio kernel.Priority) {
	t.Helper()
	if err := rt.Create(id, prio, make([]byte, 512), func(uint32) {}, 0); err != nil {
		t.Fatalf("Create(%d) error = %v, want nil", id, err)
	}
}

func TestRuntimeLifecycle(t *testing.T) {
	rt := setup(t)
	create(t, rt, 1, 10)

	if err := rt.Start(); err != nil {
		t.Fatalf("Start() error = %v, want nil", err)
	}
	if got := rt.CurrentTask(); got != 1 {
		t.Fatalf("CurrentTask() = %d, want 1", got)
	}
	if got := len(rt.Launches()); got != 1 {
		t.Fatalf("Launches() = %d, want 1", got)
	}
}

func TestRuntimeServicesPreemption(t *testing.T) {
	rt := setup(t)
	create(t, rt, 1, 10)

	if err := rt.Start(); err != nil {
		t.Fatalf("Start() error = %v, want nil", err)
	}

	// The wrapper services the pended switch on the way out, so the more
	// urgent task is already running when Create returns.
	create(t, rt, 2, 5)
	if got := rt.CurrentTask(); got != 2 {
		t.Fatalf("CurrentTask() = %d, want 2", got)
	}
	if got := rt.Switches(); got != 1 {
		t.Fatalf("Switches() = %d, want 1", got)
	}
}

func TestRuntimeSleepAndTick(t *testing.T) {
	rt := setup(t)
	create(t, rt, 1, 10)

	if err := rt.Start(); err != nil {
		t.Fatalf("Start() error = %v, want nil", err)
	}

	rt.Sleep(3)
	if got := rt.CurrentTask(); got != kernel.IdleTaskID {
		t.Fatalf("CurrentTask() = %d, want idle while task 1 sleeps", got)
	}

	for i := 0; i < 2; i++ {
		rt.OnTick()
		if got := rt.CurrentTask(); got != kernel.IdleTaskID {
			t.Fatalf("CurrentTask() = %d at tick %d, want idle", got, rt.CurrentTick())
		}
	}
	rt.OnTick()
	if got := rt.CurrentTask(); got != 1 {
		t.Fatalf("CurrentTask() = %d after wake tick, want 1", got)
	}
}

func TestRuntimeSuspendResume(t *testing.T) {
	rt := setup(t)
	create(t, rt, 1, 10)

	if err := rt.Start(); err != nil {
		t.Fatalf("Start() error = %v, want nil", err)
	}

	if err := rt.Suspend(1); err != nil {
		t.Fatalf("Suspend(1) error = %v, want nil", err)
	}
	if got := rt.CurrentTask(); got != kernel.IdleTaskID {
		t.Fatalf("CurrentTask() = %d, want idle", got)
	}
	if err := rt.Resume(1); err != nil {
		t.Fatalf("Resume(1) error = %v, want nil", err)
	}
	if got := rt.CurrentTask(); got != 1 {
		t.Fatalf("CurrentTask() = %d, want 1", got)
	}
}

func TestRuntimeCreateErrorsPassThrough(t *testing.T) {
	rt := setup(t)
	create(t, rt, 1, 10)

	err := rt.Create(1, 11, make([]byte, 512), func(uint32) {}, 0)
	if !errors.Is(err, kernel.ErrDuplicateTask) {
		t.Fatalf("Create() error = %v, want ErrDuplicateTask", err)
	}
	if got := rt.Switches(); got != 0 {
		t.Fatalf("Switches() = %d after rejected create, want 0", got)
	}
}

func TestRuntimeCoalescesRequests(t *testing.T) {
	rt := setup(t)
	create(t, rt, 1, 10)

	// Multiple requests before service collapse into one pending flag.
	rt.RequestSwitch()
	rt.RequestSwitch()
	if !rt.pending.Load() {
		t.Fatalf("pending = false after RequestSwitch, want true")
	}
	rt.service()
	if rt.pending.Load() {
		t.Fatalf("pending = true after service, want false")
	}
	// Nothing was actually selected, so no switch happened.
	if got := rt.Switches(); got != 0 {
		t.Fatalf("Switches() = %d, want 0", got)
	}
}

func TestRuntimeTrace(t *testing.T) {
	rt := setup(t)
	rec := trace.NewRecorder()
	rt.SetRecorder(rec)
	create(t, rt, 1, 10)

	if err := rt.Start(); err != nil {
		t.Fatalf("Start() error = %v, want nil", err)
	}
	rt.Sleep(1)
	rt.OnTick()

	kinds := make(map[trace.Kind]int)
	for _, ev := range rec.Events() {
		kinds[ev.Kind]++
	}
	for _, want := range []trace.Kind{trace.KindCreate, trace.KindLaunch, trace.KindSleep, trace.KindTick, trace.KindSwitch} {
		if kinds[want] == 0 {
			t.Fatalf("no %v event recorded, got %v", want, kinds)
		}
	}
}

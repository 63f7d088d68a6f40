package hostport

import (
	"sync"
	"sync/atomic"

	"rucos/internal/kernel"
	"rucos/internal/trace"
)

// frame is the record a hardware port would lay down on the task's stack.
// The host keeps it aside instead and hands the kernel an opaque handle.
type frame struct {
	entry kernel.EntryFunc
	arg   uint32
	size  int
}

// Runtime binds the portable kernel to a host process. A mutex stands in
// for interrupt masking, an atomic flag for the pended switch interrupt,
// and plain method calls for the interrupt handlers: OnTick is the timer
// interrupt, service the context-switch interrupt. Task entry functions
// are recorded but never executed; the simulator enacts task behavior
// itself through the public wrappers.
type Runtime struct {
	mu  sync.Mutex
	k   *kernel.Kernel
	cfg kernel.Config

	pending atomic.Bool
	clock   *TickClock
	rec     *trace.Recorder

	// port bookkeeping, mutated only inside the critical section
	spSeq    uintptr
	lastSP   kernel.StackPtr
	frames   map[kernel.StackPtr]frame
	spByTask map[kernel.TaskID]kernel.StackPtr
	launches []kernel.StackPtr
	switches int
}

// New builds a runtime and the kernel it hosts.
func New(cfg kernel.Config) *Runtime {
	rt := &Runtime{
		cfg:      cfg,
		frames:   make(map[kernel.StackPtr]frame),
		spByTask: make(map[kernel.TaskID]kernel.StackPtr),
	}
	rt.k = kernel.New(cfg, rt)
	return rt
}

// SetRecorder attaches a trace recorder. Pass nil to detach.
func (rt *Runtime) SetRecorder(rec *trace.Recorder) {
	rt.rec = rec
}

// UseClock attaches the tick source started by the kernel on Start. The
// caller consumes the clock's channel and drives OnTick per tick.
func (rt *Runtime) UseClock(c *TickClock) {
	rt.clock = c
}

// Kernel exposes the hosted kernel for inspection. Callers must not
// mutate it directly; every mutation goes through the wrappers.
func (rt *Runtime) Kernel() *kernel.Kernel {
	return rt.k
}

// Port implementation. The kernel calls all of these from inside the
// critical section, the tick path included. The pending flag set by
// RequestSwitch stays atomic because service reads and clears it before
// taking the lock.

// InitStack records the would-be initial frame and hands back an opaque
// handle in place of a hardware stack pointer. A hardware port would
// synthesize an exception frame at the aligned top of the region and
// return its address; the handle plays that role here and stays stable
// for the task's lifetime.
func (rt *Runtime) InitStack(stack []byte, entry kernel.EntryFunc, arg uint32) kernel.StackPtr {
	rt.spSeq++
	sp := kernel.StackPtr(rt.spSeq)
	rt.frames[sp] = frame{entry: entry, arg: arg, size: len(stack)}
	rt.lastSP = sp
	return sp
}

// RequestSwitch pends the context-switch interrupt. Repeated requests
// coalesce into a single flag.
func (rt *Runtime) RequestSwitch() {
	rt.pending.Store(true)
}

// LaunchFirstTask records the handoff. On hardware this restores the
// first task's context and never returns.
func (rt *Runtime) LaunchFirstTask(sp kernel.StackPtr) {
	if _, ok := rt.frames[sp]; !ok {
		panic("hostport: launching a task with no synthesized frame")
	}
	rt.launches = append(rt.launches, sp)
}

// StartTicks starts the attached clock, if any. Tests that drive OnTick
// by hand run without a clock.
func (rt *Runtime) StartTicks() {
	if rt.clock != nil {
		rt.clock.Start(rt.cfg.TickRateHz)
	}
}

// Application wrappers. Each one masks (locks), calls the kernel, unmasks,
// and then services any switch the call pended, which is exactly when a
// pended PendSV would fire on hardware.

func (rt *Runtime) Init(idleStack []byte, idleHook func()) error {
	rt.mu.Lock()
	err := rt.k.Init(idleStack, idleHook)
	if err == nil {
		rt.spByTask[kernel.IdleTaskID] = rt.lastSP
	}
	rt.mu.Unlock()
	return err
}

func (rt *Runtime) Create(id kernel.TaskID, prio kernel.Priority, stack []byte, entry kernel.EntryFunc, arg uint32) error {
	rt.mu.Lock()
	err := rt.k.Create(id, prio, stack, entry, arg)
	if err == nil {
		rt.spByTask[id] = rt.lastSP
	}
	tick := rt.k.CurrentTick()
	rt.mu.Unlock()
	if err != nil {
		return err
	}
	rt.record(trace.Event{Kind: trace.KindCreate, Tick: tick, Task: id})
	rt.service()
	return nil
}

func (rt *Runtime) Start() error {
	rt.mu.Lock()
	err := rt.k.Start()
	var first kernel.TaskID
	if err == nil {
		first = rt.k.CurrentTask()
	}
	rt.mu.Unlock()
	if err != nil {
		return err
	}
	rt.record(trace.Event{Kind: trace.KindLaunch, Task: first})
	rt.service()
	return nil
}

func (rt *Runtime) Sleep(ticks uint64) {
	rt.mu.Lock()
	task := rt.k.CurrentTask()
	rt.k.Sleep(ticks)
	tick := rt.k.CurrentTick()
	rt.mu.Unlock()
	kind := trace.KindSleep
	if ticks == 0 {
		kind = trace.KindYield
	}
	rt.record(trace.Event{Kind: kind, Tick: tick, Task: task})
	rt.service()
}

func (rt *Runtime) Suspend(id kernel.TaskID) error {
	rt.mu.Lock()
	err := rt.k.Suspend(id)
	tick := rt.k.CurrentTick()
	rt.mu.Unlock()
	if err != nil {
		return err
	}
	rt.record(trace.Event{Kind: trace.KindSuspend, Tick: tick, Task: id})
	rt.service()
	return nil
}

func (rt *Runtime) Resume(id kernel.TaskID) error {
	rt.mu.Lock()
	err := rt.k.Resume(id)
	tick := rt.k.CurrentTick()
	rt.mu.Unlock()
	if err != nil {
		return err
	}
	rt.record(trace.Event{Kind: trace.KindResume, Tick: tick, Task: id})
	rt.service()
	return nil
}

func (rt *Runtime) CurrentTask() kernel.TaskID {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.k.CurrentTask()
}

func (rt *Runtime) CurrentTick() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.k.CurrentTick()
}

// OnTick is the timer interrupt analog: it advances the kernel tick
// inside the critical section, then services any switch the tick exposed.
func (rt *Runtime) OnTick() {
	rt.mu.Lock()
	rt.k.Tick()
	tick := rt.k.CurrentTick()
	rt.mu.Unlock()
	rt.record(trace.Event{Kind: trace.KindTick, Tick: tick})
	rt.service()
}

// service is the context-switch interrupt analog. It runs the pended
// switch once the critical section has been released. The switch may have
// been made moot by a later scheduler pass, so the pending decision is
// re-checked under the lock.
func (rt *Runtime) service() {
	if !rt.pending.Swap(false) {
		return
	}
	rt.mu.Lock()
	if !rt.k.SwitchPending() {
		rt.mu.Unlock()
		return
	}
	from := rt.k.CurrentTask()
	sp := rt.k.SwitchContext(rt.spByTask[from])
	to := rt.k.CurrentTask()
	if sp != rt.spByTask[to] {
		panic("hostport: restored stack pointer does not match the incoming task")
	}
	tick := rt.k.CurrentTick()
	rt.switches++
	rt.mu.Unlock()
	rt.record(trace.Event{Kind: trace.KindSwitch, Tick: tick, Task: to, From: from})
}

// Launches returns the stack pointers handed to LaunchFirstTask.
func (rt *Runtime) Launches() []kernel.StackPtr {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]kernel.StackPtr, len(rt.launches))
	copy(out, rt.launches)
	return out
}

// Switches returns how many context switches have been serviced.
func (rt *Runtime) Switches() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.switches
}

func (rt *Runtime) record(ev trace.Event) {
	if rt.rec != nil {
		rt.rec.Record(ev)
	}
}

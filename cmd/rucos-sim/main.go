package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"rucos/internal/hostport"
	"rucos/internal/kernel"
	"rucos/internal/trace"
	"rucos/internal/workload"
)

// The simulator runs a small fixed scenario: two equal-priority workers
// trading bursts and a more urgent task that preempts them when it wakes.
var scenario = []struct {
	id     kernel.TaskID
	prio   kernel.Priority
	script workload.Script
}{
	{id: 1, prio: 10, script: workload.Script{RunTicks: 3, SleepTicks: 5}},
	{id: 2, prio: 10, script: workload.Script{RunTicks: 2, SleepTicks: 0}},
	{id: 3, prio: 5, script: workload.Script{RunTicks: 1, SleepTicks: 10}},
}

func main() {
	// .env is optional; the variables below override nothing when unset.
	_ = godotenv.Load()

	cfg := kernel.Load(os.Getenv("RUCOS_CONFIG"))
	fmt.Printf("Loaded config: %+v\n", cfg)

	rec := trace.NewRecorder()
	if path := os.Getenv("RUCOS_TRACE"); path != "" {
		if err := rec.EnableCSVLogging(path); err != nil {
			fmt.Fprintf(os.Stderr, "trace log: %v\n", err)
			os.Exit(1)
		}
	}
	defer rec.Close()
	fmt.Printf("Run %s\n", rec.RunID())

	rt := hostport.New(cfg)
	rt.SetRecorder(rec)
	clock := hostport.NewTickClock(256)
	rt.UseClock(clock)

	if err := rt.Init(make([]byte, 512), nil); err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}

	runners := make(map[kernel.TaskID]*workload.Runner)
	for _, s := range scenario {
		if err := rt.Create(s.id, s.prio, make([]byte, 1024), workload.Body, 0); err != nil {
			fmt.Fprintf(os.Stderr, "create task %d: %v\n", s.id, err)
			os.Exit(1)
		}
		runners[s.id] = workload.NewRunner(s.script)
	}

	if err := rt.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}

	total := envInt("RUCOS_TICKS", 50)
	for range clock.Ch {
		rt.OnTick()

		// Enact one tick of the running task's script on its behalf.
		if r, ok := runners[rt.CurrentTask()]; ok && r.Tick() {
			rt.Sleep(r.Delay())
		}

		if clock.Count() >= int64(total) {
			clock.Stop()
			break
		}
	}

	for _, ev := range rec.Events() {
		if ev.Kind == trace.KindTick {
			continue
		}
		fmt.Println(ev.Line())
	}
	fmt.Printf("Simulated %d ticks, %d context switches\n", rt.CurrentTick(), rt.Switches())
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// internal/trace/trace.go

package trace

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rucos/internal/kernel"
)

// Kind labels a scheduler event.
type Kind int

const (
	KindLaunch Kind = iota
	KindCreate
	KindSwitch
	KindSleep
	KindYield
	KindSuspend
	KindResume
	KindTick
)

func (k Kind) String() string {
	switch k {
	case KindLaunch:
		return "Launch"
	case KindCreate:
		return "Create"
	case KindSwitch:
		return "Switch"
	case KindSleep:
		return "Sleep"
	case KindYield:
		return "Yield"
	case KindSuspend:
		return "Suspend"
	case KindResume:
		return "Resume"
	case KindTick:
		return "Tick"
	default:
		return "Unknown"
	}
}

// Event is one scheduler occurrence. From is meaningful only for
// KindSwitch, where it names the task that was switched out.
type Event struct {
	Time time.Time
	Kind Kind
	Tick uint64
	Task kernel.TaskID
	From kernel.TaskID
}

// Line renders the event the way the simulator prints it.
func (ev Event) Line() string {
	msg := fmt.Sprintf("%s = Tick: %07d [%s] => Task: %04d",
		ev.Time.Format("Jan 02 15:04:05.000"),
		ev.Tick,
		center(ev.Kind.String(), 12),
		ev.Task,
	)
	if ev.Kind == KindSwitch {
		msg += fmt.Sprintf(" (from %04d)", ev.From)
	}
	return msg
}

// center pads str to width with spaces on both sides.
func center(str string, width int) string {
	if len(str) >= width {
		return str
	}
	spaces := (width - len(str)) / 2
	return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
}

// Recorder collects the events of one simulation run and optionally
// appends them to a CSV trace file. Each run carries its own id so traces
// from repeated runs can be told apart after the fact.
type Recorder struct {
	mu     sync.Mutex
	runID  uuid.UUID
	events []Event

	csvFile   *os.File
	csvWriter *csv.Writer
}

// NewRecorder creates a recorder with a fresh run id.
func NewRecorder() *Recorder {
	return &Recorder{runID: uuid.New()}
}

// RunID returns the id stamped on every CSV record of this run.
func (r *Recorder) RunID() uuid.UUID {
	return r.runID
}

// EnableCSVLogging opens the given file path for CSV logging of events.
// Must be called before recording starts.
func (r *Recorder) EnableCSVLogging(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	// write header
	w.Write([]string{"run_id", "timestamp", "tick", "event", "task", "from"})
	w.Flush()

	r.mu.Lock()
	r.csvFile = f
	r.csvWriter = w
	r.mu.Unlock()
	return nil
}

// Record stores the event, stamping its time when unset. Tick events are
// kept in memory but skipped in the CSV for the brevity of the trace.
func (r *Recorder) Record(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)

	if r.csvWriter == nil || ev.Kind == KindTick {
		return
	}
	rec := []string{
		r.runID.String(),
		ev.Time.Format(time.RFC3339Nano),
		strconv.FormatUint(ev.Tick, 10),
		ev.Kind.String(),
		strconv.FormatInt(int64(ev.Task), 10),
		strconv.FormatInt(int64(ev.From), 10),
	}
	r.csvWriter.Write(rec)
	r.csvWriter.Flush()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Close flushes and closes the CSV file, if one was opened.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.csvFile == nil {
		return nil
	}
	r.csvWriter.Flush()
	err := r.csvFile.Close()
	r.csvFile = nil
	r.csvWriter = nil
	return err
}

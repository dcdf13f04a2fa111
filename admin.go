package homesched

import (
	"context"
	"log/slog"
	"time"

	"github.com/halvorsen/homesched/types"
)

// AdminEntity mirrors one live schedule entry for external observability
// (spec §4.7): identified by "scheduler_callback.<handle>" in the admin
// namespace.
type AdminEntity struct {
	App           string
	ExecutionTime time.Time
	Repeat        time.Duration
	Function      string
	PinnedApp     bool
	PinnedThread  int
	Fired         int
	Executed      int
	Kwargs        map[string]any
}

// AdminProjector is the external state-store collaborator (spec §6
// state.add_entity/set_state/remove_entity) the admin bridge drives.
// Every call is fire-and-forget from the scheduler's perspective — it
// never awaits these operations and they are not part of the scheduler's
// correctness guarantees.
type AdminProjector interface {
	AddEntity(id string, entity AdminEntity)
	SetState(id string, executionTime time.Time)
	RemoveEntity(id string)
}

// AsyncBridge implements EntryHook by forwarding entry lifecycle events to
// an AdminProjector over a buffered channel consumed by a background
// goroutine, mirroring the Python scheduler's
// thread_async.call_async_no_wait and the teacher's buffered-channel
// pattern for its websocket listener (app.go: elChan).
type AsyncBridge struct {
	projector AdminProjector
	log       *slog.Logger
	work      chan func()
	done      chan struct{}
}

// NewAsyncBridge starts the background consumer goroutine and returns a
// bridge ready to use as an EntryHook. Call Close to stop the consumer.
func NewAsyncBridge(ctx context.Context, projector AdminProjector, log *slog.Logger) *AsyncBridge {
	b := &AsyncBridge{
		projector: projector,
		log:       log,
		work:      make(chan func(), 256),
		done:      make(chan struct{}),
	}
	go b.run(ctx)
	return b
}

func (b *AsyncBridge) run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case fn, ok := <-b.work:
			if !ok {
				return
			}
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// Close stops accepting new work and waits for the consumer to drain.
func (b *AsyncBridge) Close() {
	close(b.work)
	<-b.done
}

func (b *AsyncBridge) enqueue(fn func()) {
	select {
	case b.work <- fn:
	default:
		b.log.Warn("admin bridge queue full, dropping update")
	}
}

func adminID(handle types.Handle) string { return "scheduler_callback." + string(handle) }

// OnInsert registers a new admin entity for e.
func (b *AsyncBridge) OnInsert(e *ScheduleEntry) {
	entity := AdminEntity{
		App:           e.Owner,
		ExecutionTime: e.Timestamp,
		Repeat:        time.Duration(e.Interval) * time.Second,
		Function:      FunctionName(e.Callback),
		PinnedApp:     e.PinApp,
		PinnedThread:  e.PinThread,
		Kwargs:        SanitizeKwargs(e.Kwargs),
	}
	id := adminID(e.Handle)
	b.enqueue(func() { b.projector.AddEntity(id, entity) })
}

// OnUpdate refreshes the admin entity's execution_time attribute after a
// repeat rewrite.
func (b *AsyncBridge) OnUpdate(e *ScheduleEntry) {
	id := adminID(e.Handle)
	ts := e.Timestamp
	b.enqueue(func() { b.projector.SetState(id, ts) })
}

// OnRemove deregisters the admin entity for a cancelled/fired/terminated
// entry.
func (b *AsyncBridge) OnRemove(owner string, handle types.Handle) {
	id := adminID(handle)
	b.enqueue(func() { b.projector.RemoveEntity(id) })
}

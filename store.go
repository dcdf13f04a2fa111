package homesched

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halvorsen/homesched/internal/solar"
	"github.com/halvorsen/homesched/types"
)

// Store is the two-level owner -> handle -> entry mapping (spec §4.4),
// protected by a single mutex. The teacher drives its equivalent
// structures (schedule.go/interval.go) with a
// github.com/Workiva/go-datastructures/queue.PriorityQueue; here that
// queue drives the tick loop's per-owner dispatch pass (tick.go, via
// withLock), while OrderedEntries sorts each owner's entries with
// sort.Slice.
type Store struct {
	mu      sync.Mutex
	owners  map[string]map[types.Handle]*ScheduleEntry
	onEntry EntryHook
}

// EntryHook is notified of Store mutations so the admin projection can
// mirror live entries without the Store depending on it directly (spec
// §4.7: "the scheduler registers, updates... and removes this entity via
// fire-and-forget calls").
type EntryHook interface {
	OnInsert(e *ScheduleEntry)
	OnUpdate(e *ScheduleEntry)
	OnRemove(owner string, handle types.Handle)
}

// NewStore constructs an empty Store reporting entry lifecycle events to
// hook.
func NewStore(hook EntryHook) *Store {
	return &Store{owners: make(map[string]map[types.Handle]*ScheduleEntry), onEntry: hook}
}

// InsertParams collects insert_schedule's arguments (spec §4.4).
type InsertParams struct {
	Owner    string
	AppInfo  types.AppInfo
	AwareDt  time.Time
	Callback Callback
	Repeat   bool
	Type     types.EntryType
	Kwargs   Kwargs
	Tick     time.Duration
	// Trigger is set only for types.Triggered entries; see
	// ScheduleEntry.trigger.
	Trigger nextTimer
}

// Insert converts awareDt to UTC, rounds it to the tick grid, resolves the
// fire offset and dispatch-affinity pins, allocates a fresh handle, and
// stores the entry (spec §4.4 insert_schedule). It then notifies the
// EntryHook, if any, whose implementation performs the admin entity
// registration (kept fire-and-forget per spec §4.7).
func (s *Store) Insert(p InsertParams, roundFn func(time.Time, time.Duration) time.Time) (types.Handle, error) {
	utc := roundFn(p.AwareDt.UTC(), p.Tick)

	offset, err := solar.Offset(p.Kwargs.Offset, p.Kwargs.RandomStart, p.Kwargs.RandomEnd)
	if err != nil {
		return "", &ConfigError{Reason: err.Error()}
	}

	pinApp := p.AppInfo.PinApp
	if p.Kwargs.Pin != nil {
		pinApp = *p.Kwargs.Pin
	}
	pinThread := p.AppInfo.PinThread
	if p.Kwargs.PinThread != nil {
		pinThread = *p.Kwargs.PinThread
		pinApp = true
	}

	handle := types.Handle(uuid.New().String())

	entry := &ScheduleEntry{
		Owner:     p.Owner,
		ID:        p.AppInfo.ID,
		Handle:    handle,
		Callback:  p.Callback,
		Kwargs:    p.Kwargs,
		Type:      p.Type,
		Repeat:    p.Repeat,
		Interval:  p.Kwargs.Interval,
		Basetime:  utc,
		Timestamp: utc.Add(time.Duration(offset) * time.Second),
		Offset:    offset,
		PinApp:    pinApp,
		PinThread: pinThread,
		trigger:   p.Trigger,
	}

	s.mu.Lock()
	bucket, ok := s.owners[p.Owner]
	if !ok {
		bucket = make(map[types.Handle]*ScheduleEntry)
		s.owners[p.Owner] = bucket
	}
	bucket[handle] = entry
	s.mu.Unlock()

	if s.onEntry != nil {
		s.onEntry.OnInsert(entry)
	}
	return handle, nil
}

// Cancel removes the entry for owner/handle if present, sweeping the
// owner bucket if it becomes empty (spec invariant 5).
func (s *Store) Cancel(owner string, handle types.Handle) {
	s.mu.Lock()
	bucket, ok := s.owners[owner]
	var removed bool
	if ok {
		if _, present := bucket[handle]; present {
			delete(bucket, handle)
			removed = true
		}
		if len(bucket) == 0 {
			delete(s.owners, owner)
		}
	}
	s.mu.Unlock()

	if removed && s.onEntry != nil {
		s.onEntry.OnRemove(owner, handle)
	}
}

// Terminate removes every entry belonging to owner (app shutdown/reload).
func (s *Store) Terminate(owner string) {
	s.mu.Lock()
	bucket, ok := s.owners[owner]
	var handles []types.Handle
	if ok {
		for h := range bucket {
			handles = append(handles, h)
		}
		delete(s.owners, owner)
	}
	s.mu.Unlock()

	if s.onEntry != nil {
		for _, h := range handles {
			s.onEntry.OnRemove(owner, h)
		}
	}
}

// Info returns (naive next timestamp, interval, kwargs) for handle, or
// UnknownHandleError if it isn't registered for owner. makeNaive converts
// the stored UTC timestamp to the caller's preferred naive form.
func (s *Store) Info(owner string, handle types.Handle, makeNaive func(time.Time) time.Time) (time.Time, int, Kwargs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.owners[owner]
	if !ok {
		return time.Time{}, 0, Kwargs{}, &UnknownHandleError{Owner: owner, Handle: handle}
	}
	entry, ok := bucket[handle]
	if !ok {
		return time.Time{}, 0, Kwargs{}, &UnknownHandleError{Owner: owner, Handle: handle}
	}
	return makeNaive(entry.Timestamp), entry.Interval, entry.Kwargs, nil
}

// OrderedEntries returns a snapshot ordered by owner name, with each
// owner's entries ordered by Timestamp ascending (spec §4.4
// get_scheduler_entries). The per-owner sort uses the same "soonest
// first" ordering the teacher drives via a go-datastructures
// PriorityQueue in schedule.go/interval.go.
func (s *Store) OrderedEntries() []OwnerEntries {
	s.mu.Lock()
	defer s.mu.Unlock()

	owners := make([]string, 0, len(s.owners))
	for owner := range s.owners {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	result := make([]OwnerEntries, 0, len(owners))
	for _, owner := range owners {
		bucket := s.owners[owner]
		entries := make([]*ScheduleEntry, 0, len(bucket))
		for _, e := range bucket {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		})
		result = append(result, OwnerEntries{Owner: owner, Entries: entries})
	}
	return result
}

// OwnerEntries is one owner's entries, ordered by Timestamp ascending.
type OwnerEntries struct {
	Owner   string
	Entries []*ScheduleEntry
}

// withLock exposes the owner map to the tick loop's dispatch pass under
// the Store's mutex, so it can build a per-owner
// github.com/Workiva/go-datastructures/queue.PriorityQueue (see tick.go's
// Item/doEveryTick) and remove fired entries in place, mirroring the
// teacher's popSchedule/popInterval pattern (schedule.go, interval.go).
func (s *Store) withLock(fn func(owners map[string]map[types.Handle]*ScheduleEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.owners)
}

// removeLocked deletes entry for owner, to be called only from within a
// withLock callback.
func removeLocked(owners map[string]map[types.Handle]*ScheduleEntry, owner string, handle types.Handle) {
	if bucket, ok := owners[owner]; ok {
		delete(bucket, handle)
		if len(bucket) == 0 {
			delete(owners, owner)
		}
	}
}

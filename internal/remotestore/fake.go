package remotestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonahr4/taskapp-sync/internal/model"
)

// Fake is an in-memory Store used by tests across packages.
//
// It mimics the server contract: ids and timestamps are assigned on
// create, updates merge fields and bump the updated timestamp, deletes
// are idempotent, and BatchReorder is all-or-nothing. Every method
// increments a call counter so tests can assert that no remote call
// happened (or exactly how many did).
//
// Setting Unavailable makes every call fail with *UnavailableError,
// simulating an offline or unauthenticated device.
type Fake struct {
	mu sync.Mutex

	tasks  map[string]*model.Task
	groups map[string]*model.TaskGroup

	nextID int
	clock  time.Time

	// Unavailable makes all calls fail softly when true.
	Unavailable bool

	// FailAfterWrites, when positive, lets that many mutating calls
	// succeed and then fails every later one with *UnavailableError.
	// Setting it back to zero lifts the fault.
	FailAfterWrites int

	// Calls counts invocations per method name.
	Calls map[string]int

	writes int

	subs []chan Event
}

// NewFake creates an empty fake remote store.
func NewFake() *Fake {
	return &Fake{
		tasks:  make(map[string]*model.Task),
		groups: make(map[string]*model.TaskGroup),
		clock:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Calls:  make(map[string]int),
	}
}

// record counts the call and applies the fault switches.
func (f *Fake) record(method string) error {
	f.Calls[method]++
	if f.Unavailable {
		return &UnavailableError{Op: method, Err: fmt.Errorf("fake remote offline")}
	}
	if isWriteMethod(method) {
		if f.FailAfterWrites > 0 && f.writes >= f.FailAfterWrites {
			return &UnavailableError{Op: method, Err: fmt.Errorf("fake remote dropped mid-batch")}
		}
		f.writes++
	}
	return nil
}

// isWriteMethod reports whether a recorded method name mutates state.
func isWriteMethod(method string) bool {
	switch method {
	case "create task", "update task", "delete task",
		"create group", "update group", "delete group", "batch reorder":
		return true
	}
	return false
}

// tick advances the fake server clock; each write gets a later timestamp.
func (f *Fake) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// TotalCalls returns the sum of all method invocations.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.Calls {
		total += n
	}
	return total
}

// WriteCalls returns the number of mutating invocations.
func (f *Fake) WriteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for method, n := range f.Calls {
		if isWriteMethod(method) {
			total += n
		}
	}
	return total
}

// SeedTask inserts a task directly, bypassing counters. Test setup only.
func (f *Fake) SeedTask(task *model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = task.Clone()
}

// SeedGroup inserts a group directly, bypassing counters. Test setup only.
func (f *Fake) SeedGroup(group *model.TaskGroup) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[group.ID] = group.Clone()
}

// CreateTask implements Store.CreateTask.
func (f *Fake) CreateTask(ctx context.Context, session *model.AuthSession, task *model.Task) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create task"); err != nil {
		return nil, err
	}

	f.nextID++
	created := task.Clone()
	created.ID = fmt.Sprintf("srv-%d", f.nextID)
	created.Pending = false
	now := f.tick()
	created.CreatedAt = now
	created.UpdatedAt = now

	f.tasks[created.ID] = created
	f.publish(Event{Kind: KindTasks, Action: "created", ID: created.ID})
	return created.Clone(), nil
}

// UpdateTask implements Store.UpdateTask.
func (f *Fake) UpdateTask(ctx context.Context, session *model.AuthSession, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update task"); err != nil {
		return err
	}

	task, ok := f.tasks[id]
	if !ok {
		return ErrNotFound
	}
	applyTaskFields(task, fields)
	task.UpdatedAt = f.tick()
	f.publish(Event{Kind: KindTasks, Action: "updated", ID: id})
	return nil
}

// DeleteTask implements Store.DeleteTask.
func (f *Fake) DeleteTask(ctx context.Context, session *model.AuthSession, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete task"); err != nil {
		return err
	}

	// Idempotent: missing id is not an error.
	if _, ok := f.tasks[id]; ok {
		delete(f.tasks, id)
		f.publish(Event{Kind: KindTasks, Action: "deleted", ID: id})
	}
	return nil
}

// ListTasks implements Store.ListTasks.
func (f *Fake) ListTasks(ctx context.Context, session *model.AuthSession) ([]*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list tasks"); err != nil {
		return nil, err
	}

	out := make([]*model.Task, 0, len(f.tasks))
	for _, task := range f.tasks {
		out = append(out, task.Clone())
	}
	return out, nil
}

// CreateGroup implements Store.CreateGroup.
func (f *Fake) CreateGroup(ctx context.Context, session *model.AuthSession, group *model.TaskGroup) (*model.TaskGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create group"); err != nil {
		return nil, err
	}

	f.nextID++
	created := group.Clone()
	created.ID = fmt.Sprintf("srv-%d", f.nextID)
	created.Pending = false
	created.CreatedAt = f.tick()

	f.groups[created.ID] = created
	f.publish(Event{Kind: KindGroups, Action: "created", ID: created.ID})
	return created.Clone(), nil
}

// UpdateGroup implements Store.UpdateGroup.
func (f *Fake) UpdateGroup(ctx context.Context, session *model.AuthSession, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update group"); err != nil {
		return err
	}

	group, ok := f.groups[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := fields["name"].(string); ok {
		group.Name = v
	}
	if v, ok := fields["color"].(string); ok {
		group.Color = v
	}
	if v, ok := fields["order"].(int); ok {
		group.Order = v
	}
	f.publish(Event{Kind: KindGroups, Action: "updated", ID: id})
	return nil
}

// DeleteGroup implements Store.DeleteGroup.
func (f *Fake) DeleteGroup(ctx context.Context, session *model.AuthSession, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete group"); err != nil {
		return err
	}

	if _, ok := f.groups[id]; ok {
		delete(f.groups, id)
		f.publish(Event{Kind: KindGroups, Action: "deleted", ID: id})
	}
	return nil
}

// ListGroups implements Store.ListGroups.
func (f *Fake) ListGroups(ctx context.Context, session *model.AuthSession) ([]*model.TaskGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list groups"); err != nil {
		return nil, err
	}

	out := make([]*model.TaskGroup, 0, len(f.groups))
	for _, group := range f.groups {
		out = append(out, group.Clone())
	}
	return out, nil
}

// BatchReorder implements Store.BatchReorder. All-or-nothing: if any id is
// unknown, nothing changes.
func (f *Fake) BatchReorder(ctx context.Context, session *model.AuthSession, kind EntityKind, orderedIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("batch reorder"); err != nil {
		return err
	}

	switch kind {
	case KindTasks:
		for _, id := range orderedIDs {
			if _, ok := f.tasks[id]; !ok {
				return ErrNotFound
			}
		}
		for i, id := range orderedIDs {
			f.tasks[id].Order = i
			f.tasks[id].UpdatedAt = f.tick()
		}
	case KindGroups:
		for _, id := range orderedIDs {
			if _, ok := f.groups[id]; !ok {
				return ErrNotFound
			}
		}
		for i, id := range orderedIDs {
			f.groups[id].Order = i
		}
	default:
		return fmt.Errorf("unknown entity kind %q", kind)
	}

	f.publish(Event{Kind: kind, Action: "reordered"})
	return nil
}

// Subscribe implements Store.Subscribe with an in-memory feed.
func (f *Fake) Subscribe(ctx context.Context, session *model.AuthSession) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("subscribe"); err != nil {
		return nil, err
	}

	ch := make(chan Event, 64)
	f.subs = append(f.subs, ch)

	sub := &Subscription{
		events: ch,
		cancel: func() {},
	}
	// Detach on context cancellation so the publisher doesn't block.
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		f.dropSub(ch)
	}()
	return sub, nil
}

// publish fans an event out to live subscribers. Callers hold f.mu.
func (f *Fake) publish(event Event) {
	for _, ch := range f.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// dropSub removes and closes a subscriber channel. Callers hold f.mu.
func (f *Fake) dropSub(ch chan Event) {
	for i, s := range f.subs {
		if s == ch {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// applyTaskFields merges a partial-field update into a stored task,
// mirroring the server's document merge.
func applyTaskFields(task *model.Task, fields map[string]any) {
	for key, value := range fields {
		switch key {
		case "title":
			if v, ok := value.(string); ok {
				task.Title = v
			}
		case "notes":
			if v, ok := value.(string); ok {
				task.Notes = v
			}
		case "location":
			if v, ok := value.(string); ok {
				task.Location = v
			}
		case "urgent":
			task.Urgent = asBoolPtr(value)
		case "important":
			task.Important = asBoolPtr(value)
		case "due_date":
			if v, ok := value.(string); ok {
				task.DueDate = v
			}
		case "due_time":
			if v, ok := value.(string); ok {
				task.DueTime = v
			}
		case "auto_escalate_days":
			if value == nil {
				task.AutoEscalateDays = nil
			} else if v, ok := value.(int); ok {
				task.AutoEscalateDays = &v
			}
		case "group_id":
			if v, ok := value.(string); ok {
				task.GroupID = v
			}
		case "done":
			if v, ok := value.(bool); ok {
				task.Done = v
			}
		case "order":
			if v, ok := value.(int); ok {
				task.Order = v
			}
		}
	}
}

// asBoolPtr coerces a field value into the nullable bool representation.
func asBoolPtr(value any) *bool {
	if value == nil {
		return nil
	}
	if v, ok := value.(bool); ok {
		return &v
	}
	if v, ok := value.(*bool); ok {
		return v
	}
	return nil
}

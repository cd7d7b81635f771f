package export

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonahr4/taskapp-sync/internal/localstore"
	"github.com/jonahr4/taskapp-sync/internal/model"
)

func setupStore(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "export.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store *localstore.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

	groups := []*model.TaskGroup{
		{ID: "g1", Name: "errands", Color: "#ff0000", CreatedAt: now},
	}
	urgent := true
	tasks := []*model.Task{
		{ID: "t1", Title: "buy milk", GroupID: "g1", Urgent: &urgent, Important: &urgent, CreatedAt: now, UpdatedAt: now},
		{ID: "t2", Title: "call bank", Order: 1, CreatedAt: now, UpdatedAt: now.Add(time.Minute)},
	}
	if err := store.WriteAllGroups(ctx, groups); err != nil {
		t.Fatalf("seed groups: %v", err)
	}
	if err := store.WriteAllTasks(ctx, tasks); err != nil {
		t.Fatalf("seed tasks: %v", err)
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	source := setupStore(t)
	seed(t, source)
	ctx := context.Background()

	archive := filepath.Join(t.TempDir(), "backup.jsonl")
	result, err := ExportJSONL(ctx, source, archive)
	if err != nil {
		t.Fatalf("ExportJSONL: %v", err)
	}
	if result.Tasks != 2 || result.Groups != 1 {
		t.Fatalf("exported %d tasks / %d groups, want 2 / 1", result.Tasks, result.Groups)
	}

	dest := setupStore(t)
	restored, err := ImportJSONL(ctx, dest, archive)
	if err != nil {
		t.Fatalf("ImportJSONL: %v", err)
	}
	if restored.Tasks != 2 || restored.Groups != 1 || restored.Skipped != 0 {
		t.Fatalf("restored %+v, want 2 tasks, 1 group, 0 skipped", restored)
	}

	tasks, _ := dest.ReadAllTasks(ctx)
	if len(tasks) != 2 {
		t.Fatalf("destination has %d tasks, want 2", len(tasks))
	}
	if tasks[0].ID != "t1" || tasks[0].Title != "buy milk" || tasks[0].GroupID != "g1" {
		t.Errorf("restored task lost fields: %+v", tasks[0])
	}
	if tasks[0].Urgent == nil || !*tasks[0].Urgent {
		t.Error("restored task lost its urgency flag")
	}
	if !tasks[1].UpdatedAt.Equal(time.Date(2026, 8, 15, 10, 1, 0, 0, time.UTC)) {
		t.Errorf("restored task lost its timestamp: %v", tasks[1].UpdatedAt)
	}
}

func TestImportSkipsExistingIDs(t *testing.T) {
	store := setupStore(t)
	seed(t, store)
	ctx := context.Background()

	archive := filepath.Join(t.TempDir(), "backup.jsonl")
	if _, err := ExportJSONL(ctx, store, archive); err != nil {
		t.Fatalf("ExportJSONL: %v", err)
	}

	// Importing a backup into the store it came from is a no-op.
	result, err := ImportJSONL(ctx, store, archive)
	if err != nil {
		t.Fatalf("ImportJSONL: %v", err)
	}
	if result.Tasks != 0 || result.Groups != 0 || result.Skipped != 3 {
		t.Errorf("result = %+v, want everything skipped", result)
	}

	tasks, _ := store.ReadAllTasks(ctx)
	if len(tasks) != 2 {
		t.Errorf("import duplicated tasks: %d", len(tasks))
	}
}

func TestReadJSONLRejectsGarbage(t *testing.T) {
	if _, _, err := ReadJSONL(strings.NewReader("{\"kind\":\"mystery\"}\n")); err == nil {
		t.Error("unknown record kind accepted")
	}
	if _, _, err := ReadJSONL(strings.NewReader("not json\n")); err == nil {
		t.Error("malformed line accepted")
	}
	if _, _, err := ReadJSONL(strings.NewReader("{\"kind\":\"task\"}\n")); err == nil {
		t.Error("task record without body accepted")
	}
}

func TestWriteJSONLOrdersGroupsFirst(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	var buf bytes.Buffer
	if _, err := WriteJSONL(context.Background(), store, &buf); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("archive has %d lines, want 3", len(lines))
	}
	if !strings.Contains(lines[0], "\"kind\":\"group\"") {
		t.Errorf("first line is not a group record: %s", lines[0])
	}
}

func TestWriteYAML(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	var buf bytes.Buffer
	result, err := WriteYAML(context.Background(), store, &buf)
	if err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	if result.Tasks != 2 || result.Groups != 1 {
		t.Errorf("result = %+v, want 2 tasks and 1 group", result)
	}
	out := buf.String()
	for _, want := range []string{"groups:", "tasks:", "buy milk", "errands"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q", want)
		}
	}
}

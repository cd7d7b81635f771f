// Package export implements backup and restore of the local collections.
//
// The archive format is JSONL: one record per line, each self-describing
// via a "kind" field so tasks and groups share a single file. A YAML
// export is also offered for human inspection.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jonahr4/taskapp-sync/internal/localstore"
	"github.com/jonahr4/taskapp-sync/internal/model"
)

// record is one JSONL line in an archive.
type record struct {
	Kind  string           `json:"kind"`
	Task  *model.Task      `json:"task,omitempty"`
	Group *model.TaskGroup `json:"group,omitempty"`
}

const (
	kindTask  = "task"
	kindGroup = "group"
)

// Result reports what an export or import touched.
type Result struct {
	Tasks   int
	Groups  int
	Skipped int
}

// WriteJSONL streams the full local collections to w, groups first so a
// later import can restore group references before the tasks that use
// them.
func WriteJSONL(ctx context.Context, store *localstore.Store, w io.Writer) (*Result, error) {
	groups, err := store.ReadAllGroups(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := store.ReadAllTasks(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	encoder := json.NewEncoder(w)
	for _, group := range groups {
		if err := encoder.Encode(record{Kind: kindGroup, Group: group}); err != nil {
			return result, fmt.Errorf("failed to encode group %s: %w", group.ID, err)
		}
		result.Groups++
	}
	for _, task := range tasks {
		if err := encoder.Encode(record{Kind: kindTask, Task: task}); err != nil {
			return result, fmt.Errorf("failed to encode task %s: %w", task.ID, err)
		}
		result.Tasks++
	}
	return result, nil
}

// ExportJSONL writes the archive to path atomically via a temp file.
func ExportJSONL(ctx context.Context, store *localstore.Store, path string) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	tmpPath := path + ".tmp"
	// #nosec G304 - controlled path from CLI
	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	result, err := WriteJSONL(ctx, store, file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return result, err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return result, fmt.Errorf("failed to rename temp file: %w", err)
	}
	return result, nil
}

// ReadJSONL parses an archive from r.
func ReadJSONL(r io.Reader) ([]*model.Task, []*model.TaskGroup, error) {
	var tasks []*model.Task
	var groups []*model.TaskGroup

	decoder := json.NewDecoder(r)
	line := 0
	for {
		var rec record
		if err := decoder.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("invalid JSON at line %d: %w", line+1, err)
		}
		line++

		switch rec.Kind {
		case kindTask:
			if rec.Task == nil {
				return nil, nil, fmt.Errorf("task record at line %d has no task body", line)
			}
			tasks = append(tasks, rec.Task)
		case kindGroup:
			if rec.Group == nil {
				return nil, nil, fmt.Errorf("group record at line %d has no group body", line)
			}
			groups = append(groups, rec.Group)
		default:
			return nil, nil, fmt.Errorf("unknown record kind %q at line %d", rec.Kind, line)
		}
	}
	return tasks, groups, nil
}

// ImportJSONL merges an archive into the local store.
//
// Records whose id already exists locally are skipped rather than
// overwritten; a restore never destroys newer local work. Identity and
// timestamps are preserved from the archive since this is the same
// device's own backup coming home.
func ImportJSONL(ctx context.Context, store *localstore.Store, path string) (*Result, error) {
	// #nosec G304 - controlled path from CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	tasks, groups, err := ReadJSONL(file)
	if err != nil {
		return nil, err
	}

	existingTasks, err := store.ReadAllTasks(ctx)
	if err != nil {
		return nil, err
	}
	existingGroups, err := store.ReadAllGroups(ctx)
	if err != nil {
		return nil, err
	}

	haveTask := make(map[string]bool, len(existingTasks))
	for _, task := range existingTasks {
		haveTask[task.ID] = true
	}
	haveGroup := make(map[string]bool, len(existingGroups))
	for _, group := range existingGroups {
		haveGroup[group.ID] = true
	}

	result := &Result{}
	mergedGroups := existingGroups
	for _, group := range groups {
		if haveGroup[group.ID] {
			result.Skipped++
			continue
		}
		if err := group.Validate(); err != nil {
			return result, fmt.Errorf("invalid group %s in archive: %w", group.ID, err)
		}
		mergedGroups = append(mergedGroups, group)
		result.Groups++
	}

	mergedTasks := existingTasks
	for _, task := range tasks {
		if haveTask[task.ID] {
			result.Skipped++
			continue
		}
		if err := task.Validate(); err != nil {
			return result, fmt.Errorf("invalid task %s in archive: %w", task.ID, err)
		}
		mergedTasks = append(mergedTasks, task)
		result.Tasks++
	}

	sort.SliceStable(mergedGroups, func(i, j int) bool { return mergedGroups[i].Order < mergedGroups[j].Order })
	sort.SliceStable(mergedTasks, func(i, j int) bool { return mergedTasks[i].Order < mergedTasks[j].Order })

	if err := store.WriteAllGroups(ctx, mergedGroups); err != nil {
		return result, err
	}
	if err := store.WriteAllTasks(ctx, mergedTasks); err != nil {
		return result, err
	}
	return result, nil
}

// yamlDoc is the top-level document for the YAML export.
type yamlDoc struct {
	Groups []*model.TaskGroup `yaml:"groups"`
	Tasks  []*model.Task      `yaml:"tasks"`
}

// WriteYAML renders the full local collections as a single YAML document.
func WriteYAML(ctx context.Context, store *localstore.Store, w io.Writer) (*Result, error) {
	groups, err := store.ReadAllGroups(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := store.ReadAllTasks(ctx)
	if err != nil {
		return nil, err
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(yamlDoc{Groups: groups, Tasks: tasks}); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush YAML: %w", err)
	}
	return &Result{Tasks: len(tasks), Groups: len(groups)}, nil
}

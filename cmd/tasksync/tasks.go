package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jonahr4/taskapp-sync/internal/crud"
)

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()

		done := true
		task, err := a.service.UpdateTask(context.Background(), a.session, args[0], crud.TaskPatch{Done: &done})
		if err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("Completed: %s\n", task.Title)
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()

		if err := a.service.DeleteTask(context.Background(), a.session, args[0]); err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <id> <position>",
	Short: "Move a task to a new position in the list",
	Long: `Move a task to a new zero-based position. The remaining tasks keep
their relative order.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()
		ctx := context.Background()

		position, err := strconv.Atoi(args[1])
		if err != nil {
			a.fail("position must be a number: %v", err)
		}

		tasks, err := a.store.ReadAllTasks(ctx)
		if err != nil {
			a.fail("%v", err)
		}

		ids := make([]string, 0, len(tasks))
		for _, task := range tasks {
			if task.ID != args[0] {
				ids = append(ids, task.ID)
			}
		}
		if len(ids) == len(tasks) {
			a.fail("no task with id %s", args[0])
		}
		if position < 0 || position > len(ids) {
			a.fail("position %d out of range 0..%d", position, len(ids))
		}
		ids = append(ids[:position], append([]string{args[0]}, ids[position:]...)...)

		if err := a.service.ReorderTasks(ctx, a.session, ids); err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("Moved %s to position %d\n", args[0], position)
	},
}

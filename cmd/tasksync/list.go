package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonahr4/taskapp-sync/internal/model"
)

var (
	listAll   bool
	listGroup string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()
		ctx := context.Background()

		tasks, err := a.store.ReadAllTasks(ctx)
		if err != nil {
			a.fail("%v", err)
		}
		groups, err := a.store.ReadAllGroups(ctx)
		if err != nil {
			a.fail("%v", err)
		}

		groupNames := make(map[string]string, len(groups))
		for _, group := range groups {
			groupNames[group.ID] = group.Name
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tQUADRANT\tDUE\tGROUP\tFLAGS")
		shown := 0
		for _, task := range tasks {
			if task.Done && !listAll {
				continue
			}
			if listGroup != "" && task.GroupID != listGroup {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				task.ID, task.Title, task.Quadrant(), formatDue(task),
				groupNames[task.GroupID], taskFlags(task))
			shown++
		}
		w.Flush()
		if shown == 0 {
			fmt.Println("No tasks. Add one with 'tasksync add'.")
		}
	},
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "include completed tasks")
	listCmd.Flags().StringVar(&listGroup, "group", "", "only tasks in this group id")
}

func formatDue(task *model.Task) string {
	if task.DueDate == "" {
		return ""
	}
	if task.DueTime == "" {
		return task.DueDate
	}
	return task.DueDate + " " + task.DueTime
}

func taskFlags(task *model.Task) string {
	flags := ""
	if task.Done {
		flags += "done "
	}
	if task.Pending {
		flags += "pending"
	}
	return flags
}

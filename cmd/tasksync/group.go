package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonahr4/taskapp-sync/internal/crud"
)

var groupColor string

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage task groups",
}

var groupAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a task group",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()

		group, err := a.service.CreateGroup(context.Background(), a.session, crud.GroupInput{
			Name:  args[0],
			Color: groupColor,
		})
		if err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("Created group %s: %s\n", group.ID, group.Name)
	},
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List task groups",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()
		ctx := context.Background()

		groups, err := a.store.ReadAllGroups(ctx)
		if err != nil {
			a.fail("%v", err)
		}
		tasks, err := a.store.ReadAllTasks(ctx)
		if err != nil {
			a.fail("%v", err)
		}

		counts := make(map[string]int)
		for _, task := range tasks {
			counts[task.GroupID]++
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCOLOR\tTASKS")
		for _, group := range groups {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", group.ID, group.Name, group.Color, counts[group.ID])
		}
		w.Flush()
	},
}

var groupRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a task group",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()

		name := args[1]
		group, err := a.service.UpdateGroup(context.Background(), a.session, args[0], crud.GroupPatch{Name: &name})
		if err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("Renamed group %s to %s\n", group.ID, group.Name)
	},
}

var groupRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task group",
	Long: `Delete a task group. Tasks that referenced the group are kept; they
simply become ungrouped on next edit.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()

		if err := a.service.DeleteGroup(context.Background(), a.session, args[0]); err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("Deleted group %s\n", args[0])
	},
}

func init() {
	groupAddCmd.Flags().StringVar(&groupColor, "color", "", "display color, e.g. #ff8800")
	groupCmd.AddCommand(groupAddCmd)
	groupCmd.AddCommand(groupListCmd)
	groupCmd.AddCommand(groupRenameCmd)
	groupCmd.AddCommand(groupRmCmd)
}

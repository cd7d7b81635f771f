package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonahr4/taskapp-sync/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync and collection status",
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
		pending, err := a.service.PendingCount(ctx)
		if err != nil {
			a.fail("%v", err)
		}

		open := 0
		for _, task := range tasks {
			if !task.Done {
				open++
			}
		}

		if a.session.Valid() {
			fmt.Printf("Account:   signed in as %s\n", a.session.UserID)
		} else {
			fmt.Println("Account:   signed out (local-only mode)")
		}
		fmt.Printf("Database:  %s\n", a.cfg.DatabasePath)
		fmt.Printf("Tasks:     %d (%d open)\n", len(tasks), open)
		fmt.Printf("Groups:    %d\n", len(groups))
		fmt.Printf("Pending:   %d awaiting upload\n", pending)

		if scenario, ok, err := a.store.GetSetting(ctx, model.SettingLastScenario); err == nil && ok {
			fmt.Printf("Last sync: %s\n", scenario)
		}
	},
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonahr4/taskapp-sync/internal/model"
	"github.com/jonahr4/taskapp-sync/internal/syncengine"
)

var (
	signinUser    string
	signinToken   string
	signinKeep    bool
	signinDiscard bool
	signinTasks   []string
)

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in and synchronize with the cloud",
	Long: `Sign in to your account and reconcile this device with the cloud.

Most situations resolve automatically: an empty device adopts the cloud
data, a fresh account receives the device data, and a device that is
already in sync is left alone.

When both sides hold different data, nothing is changed until you choose:

  tasksync signin ... --keep-local              upload local tasks too
  tasksync signin ... --keep-local --tasks a,b  upload only those tasks
  tasksync signin ... --discard-local           keep only the cloud data`,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()
		ctx := context.Background()

		if signinKeep && signinDiscard {
			a.fail("--keep-local and --discard-local are mutually exclusive")
		}

		session := &model.AuthSession{UserID: signinUser, Token: signinToken}
		scenario, err := a.engine.OnSignIn(ctx, session)
		if err != nil {
			a.fail("sign-in sync failed: %v", err)
		}

		if scenario == syncengine.ScenarioBothPopulated {
			switch {
			case signinKeep:
				if err := a.engine.ConfirmMerge(ctx, session, signinTasks...); err != nil {
					a.fail("merge failed: %v", err)
				}
				fmt.Println("Merged local tasks into your account.")
			case signinDiscard:
				if err := a.engine.DiscardLocal(ctx); err != nil {
					a.fail("discard failed: %v", err)
				}
				fmt.Println("Local data replaced with your account's data.")
			default:
				fmt.Println("This device and your account both contain tasks.")
				fmt.Println("Nothing was changed. Local tasks on this device:")
				for _, task := range a.engine.LocalTasks() {
					fmt.Printf("  %s  %s\n", task.ID, task.Title)
				}
				fmt.Println("\nRe-run signin with --keep-local or --discard-local to resolve.")
				return
			}
		} else {
			fmt.Printf("Signed in (%s).\n", scenario)
		}

		if err := a.service.SaveSession(ctx, session); err != nil {
			a.fail("failed to persist session: %v", err)
		}
	},
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out of the cloud account",
	Long:  `Sign out. Local data stays on the device; only the credentials go.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()

		if err := a.service.ClearSession(context.Background()); err != nil {
			a.fail("%v", err)
		}
		fmt.Println("Signed out.")
	},
}

func init() {
	signinCmd.Flags().StringVar(&signinUser, "user", "", "account user id")
	signinCmd.Flags().StringVar(&signinToken, "token", "", "access token")
	signinCmd.Flags().BoolVar(&signinKeep, "keep-local", false, "on divergence, upload local tasks additively")
	signinCmd.Flags().BoolVar(&signinDiscard, "discard-local", false, "on divergence, keep only the cloud data")
	signinCmd.Flags().StringSliceVar(&signinTasks, "tasks", nil, "with --keep-local, only upload these task ids")
	_ = signinCmd.MarkFlagRequired("user")
	_ = signinCmd.MarkFlagRequired("token")
}

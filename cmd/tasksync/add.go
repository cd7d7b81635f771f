package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/jonahr4/taskapp-sync/internal/crud"
	"github.com/jonahr4/taskapp-sync/internal/model"
)

var (
	addNotes    string
	addLocation string
	addGroup    string
	addQuadrant string
	addDue      string
	addEscalate int
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Long: `Add a task to the local collection (and to the cloud when signed in).

The --due flag accepts natural language as well as YYYY-MM-DD:

  tasksync add "pay rent" --due "first of next month"
  tasksync add "standup notes" --due "tomorrow at 9am" --quadrant do`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()
		ctx := context.Background()

		quadrant, err := parseQuadrant(addQuadrant)
		if err != nil {
			a.fail("%v", err)
		}

		input := crud.TaskInput{
			Title:    args[0],
			Notes:    addNotes,
			Location: addLocation,
			GroupID:  addGroup,
			Quadrant: quadrant,
		}
		if addDue != "" {
			date, clock, err := parseDue(addDue)
			if err != nil {
				a.fail("%v", err)
			}
			input.DueDate = date
			input.DueTime = clock
		}
		if cmd.Flags().Changed("escalate") {
			days := addEscalate
			input.AutoEscalateDays = &days
		}

		task, err := a.service.CreateTask(ctx, a.session, input)
		if err != nil {
			a.fail("%v", err)
		}

		fmt.Printf("Added %s: %s\n", task.ID, task.Title)
		if task.Pending {
			fmt.Println("  (remote unreachable; will sync when connectivity returns)")
		}
	},
}

func init() {
	addCmd.Flags().StringVar(&addNotes, "notes", "", "free-form notes")
	addCmd.Flags().StringVar(&addLocation, "location", "", "location hint")
	addCmd.Flags().StringVar(&addGroup, "group", "", "group id")
	addCmd.Flags().StringVar(&addQuadrant, "quadrant", "", "do, schedule, delegate or eliminate")
	addCmd.Flags().StringVar(&addDue, "due", "", "due date (natural language or YYYY-MM-DD)")
	addCmd.Flags().IntVar(&addEscalate, "escalate", 0, "days before the due date to auto-promote urgency")
}

// parseQuadrant maps a flag value to a quadrant. Empty means
// uncategorized.
func parseQuadrant(s string) (model.Quadrant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return model.Uncategorized, nil
	case "do":
		return model.Do, nil
	case "schedule":
		return model.Schedule, nil
	case "delegate":
		return model.Delegate, nil
	case "eliminate":
		return model.Eliminate, nil
	default:
		return model.Uncategorized, fmt.Errorf("unknown quadrant %q (want do, schedule, delegate or eliminate)", s)
	}
}

// parseDue turns a due expression into the stored date and optional
// clock strings. Exact YYYY-MM-DD input is taken literally; anything
// else goes through the natural language parser.
func parseDue(input string) (date, clock string, err error) {
	if t, perr := time.Parse("2006-01-02", input); perr == nil {
		return t.Format("2006-01-02"), "", nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(input, time.Now())
	if err != nil {
		return "", "", fmt.Errorf("failed to parse due date %q: %w", input, err)
	}
	if result == nil {
		return "", "", fmt.Errorf("could not understand due date %q", input)
	}

	date = result.Time.Format("2006-01-02")
	// Only keep a clock component if the expression actually named one.
	if result.Time.Hour() != 0 || result.Time.Minute() != 0 {
		clock = result.Time.Format("15:04")
	}
	return date, clock, nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jonahr4/taskapp-sync/internal/daemon"
)

var daemonForeground bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync daemon",
	Long: `Run the sync daemon in the foreground.

The daemon periodically replays pending offline changes to the cloud and
promotes the urgency of tasks approaching their due date. Intervals and
the log file come from the config file.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()

		logger := log.New(os.Stderr, "[daemon] ", log.LstdFlags)
		if a.cfg.Log.File != "" && !daemonForeground {
			logger.SetOutput(&lumberjack.Logger{
				Filename:   a.cfg.Log.File,
				MaxSize:    a.cfg.Log.MaxSizeMB,
				MaxBackups: a.cfg.Log.MaxBackups,
			})
		}

		d, err := daemon.New(a.service, &daemon.Config{
			FlushInterval:    a.cfg.Daemon.FlushInterval,
			EscalateInterval: a.cfg.Daemon.EscalateInterval,
			Logger:           logger,
		})
		if err != nil {
			a.fail("%v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("Daemon running. Press Ctrl-C to stop.")
		if err := d.Start(ctx); err != nil {
			a.fail("daemon exited: %v", err)
		}
	},
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonForeground, "stderr", false, "log to stderr instead of the log file")
}

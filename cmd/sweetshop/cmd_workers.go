package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/mithai/pkg/app"
)

var scheduleOnce bool

// sweetshop schedule:run
var scheduleRunCmd = &cobra.Command{
	Use:   "schedule:run",
	Short: "Run the maintenance jobs (once with --once, otherwise until interrupted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		if scheduleOnce {
			return a.Scheduler.RunAll(ctx)
		}

		fmt.Println("🕐 Scheduler started. Press Ctrl+C to stop.")
		a.Scheduler.Loop(ctx, time.Minute)
		fmt.Println("\n⚡ Scheduler stopped.")
		return nil
	},
}

// sweetshop schedule:list
var scheduleListCmd = &cobra.Command{
	Use:   "schedule:list",
	Short: "List the registered maintenance jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Boot(context.Background())
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		for _, job := range a.Scheduler.List() {
			fmt.Println("  •", job)
		}
		return nil
	},
}

func init() {
	scheduleRunCmd.Flags().BoolVar(&scheduleOnce, "once", false, "Run every job once and exit")
}

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// schedulerCmd triggers the nightly maintenance jobs on demand — the
// same three jobs a cron entry would invoke once per night (spec.md
// §4.10): preference-pair export, LoRA retrain, backup rotation.
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the nightly maintenance jobs",
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the preference export, retrain and backup-rotation jobs once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), svcTimeout)
		defer cancel()
		result := svc.Scheduler.RunNightly(ctx)
		body, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	},
}

func init() {
	schedulerCmd.AddCommand(schedulerRunCmd)
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gdrive-files/internal/ledger"
)

var (
	flagTasksLimit int
	flagTasksJSON  bool
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Show recent background tasks from the task ledger",
		Long: `List the most recent uploads, updates, moves and deletes the server
queued, newest first, with their outcome. Requires tasks.ledger_enabled.`,
		Args: cobra.NoArgs,
		RunE: runTasks,
	}

	cmd.Flags().IntVar(&flagTasksLimit, "limit", 20, "maximum number of tasks to show")
	cmd.Flags().BoolVar(&flagTasksJSON, "json", false, "output in JSON format")

	return cmd
}

func runTasks(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if !cc.Cfg.Tasks.LedgerEnabled {
		return errors.New("task ledger is disabled; set tasks.ledger_enabled = true and restart the server")
	}

	if flagTasksLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", flagTasksLimit)
	}

	led, err := ledger.Open(cmd.Context(), cc.Cfg.Tasks.DBPath(), cc.Logger)
	if err != nil {
		return err
	}
	defer led.Close()

	entries, err := led.List(cmd.Context(), flagTasksLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if flagTasksJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		cc.Statusf("No tasks recorded.\n")
		return nil
	}

	now := time.Now()
	rows := make([][]string, 0, len(entries))

	for _, e := range entries {
		finished := "-"
		if e.FinishedAt != nil {
			finished = formatTime(*e.FinishedAt, now)
		}

		rows = append(rows, []string{e.ID, e.Op, e.Target, e.Status, formatTime(e.ScheduledAt, now), finished, e.Error})
	}

	printTable(out, []string{"ID", "OP", "TARGET", "STATUS", "SCHEDULED", "FINISHED", "ERROR"}, rows)

	return nil
}

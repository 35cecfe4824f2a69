package main

import (
	"github.com/spf13/cobra"

	"github.com/origami/repo-data/entity"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the ingestion queue",
}

func listQueue(list func(a *app) ([]*entity.Ingestion, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(false)
		if err != nil {
			return err
		}
		ingestions, err := list(a)
		if err != nil {
			return err
		}
		return printJSON(cmd, ingestions)
	}
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every queued ingestion",
	Args:  cobra.NoArgs,
	RunE: listQueue(func(a *app) ([]*entity.Ingestion, error) {
		return a.ingestions.ListIngestions()
	}),
}

var queueDeadCmd = &cobra.Command{
	Use:   "dead",
	Short: "List ingestions that reached the maximum number of attempts",
	Args:  cobra.NoArgs,
	RunE: listQueue(func(a *app) ([]*entity.Ingestion, error) {
		return a.ingestions.ListDeadIngestions()
	}),
}

var queueStuckCmd = &cobra.Command{
	Use:   "stuck",
	Short: "List ingestions running longer than the over-running threshold",
	Args:  cobra.NoArgs,
	RunE: listQueue(func(a *app) ([]*entity.Ingestion, error) {
		return a.ingestions.ListStuckIngestions()
	}),
}

var queueRequeueCmd = &cobra.Command{
	Use:   "requeue <ingestion id>",
	Short: "Release an in-progress ingestion so a worker can claim it again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(false)
		if err != nil {
			return err
		}
		ingestion, err := a.ingestions.Requeue(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, ingestion)
	},
}

func init() {
	queueCmd.AddCommand(queueListCmd, queueDeadCmd, queueStuckCmd, queueRequeueCmd)
	rootCmd.AddCommand(queueCmd)
}

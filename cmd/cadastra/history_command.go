package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cadastra/internal/history"
	"cadastra/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Browse the audit trail",
	}

	historyCmd.AddCommand(newHistoryUnitCommand(ctx))
	historyCmd.AddCommand(newHistoryActorCommand(ctx))

	return historyCmd
}

func newHistoryUnitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unit REGION BATCH BLOCK",
		Short: "Show a work unit's events in transition order",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args)
			if err != nil {
				return err
			}
			return ctx.withEnv(func(e *env) error {
				events, err := e.audit.QueryByWorkUnit(cmd.Context(), key)
				if err != nil {
					return err
				}
				return printEvents(cmd, events)
			})
		},
	}
}

func newHistoryActorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "actor ID",
		Short: "Show an actor's events, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(e *env) error {
				events, err := e.audit.QueryByActor(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printEvents(cmd, events)
			})
		},
	}
}

func printEvents(cmd *cobra.Command, events []history.Event) error {
	if len(events) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No history")
		return nil
	}
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		rows = append(rows, []string{
			event.CreatedAt.Format("2006-01-02 15:04:05"),
			event.Unit.Region,
			event.Unit.Batch,
			strconv.Itoa(event.Unit.Block),
			textutil.DisplayName(event.Actor),
			string(event.ActorRole),
			string(event.Stage),
			event.State,
			event.Note,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Time", "Region", "Batch", "Block", "Actor", "Role", "Stage", "State", "Note"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	return nil
}

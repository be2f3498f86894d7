package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"cadastra/internal/textutil"
	"cadastra/internal/workunit"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var region string
	var operator string
	var reviewer string
	var stateFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(e *env) error {
				var units []*workunit.WorkUnit
				var err error

				switch {
				case operator != "":
					units, err = e.store.ListByOperator(cmd.Context(), operator)
				case reviewer != "":
					units, err = e.store.ListByReviewer(cmd.Context(), reviewer)
				case region != "":
					var states []workunit.State
					for _, value := range stateFlags {
						state, ok := workunit.ParseState(value)
						if !ok {
							return fmt.Errorf("unknown state %q", value)
						}
						states = append(states, state)
					}
					units, err = e.store.ListByRegion(cmd.Context(), textutil.NormalizeCode(region), states...)
				default:
					return fmt.Errorf("one of --region, --operator, or --reviewer is required")
				}
				if err != nil {
					return err
				}
				if len(units) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No work units")
					return nil
				}

				rows := make([][]string, 0, len(units))
				for _, unit := range units {
					rows = append(rows, unitRow(unit))
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(unitHeaders, rows, unitAligns))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "List units in a region")
	cmd.Flags().StringVar(&operator, "operator", "", "List units held by an operator")
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "List units held by a reviewer")
	cmd.Flags().StringSliceVar(&stateFlags, "state", nil, "Filter by state (repeatable; with --region)")
	return cmd
}

func newBatchesCommand(ctx *commandContext) *cobra.Command {
	var region string
	var pending bool
	var finished bool

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List batches in a region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(e *env) error {
				normalized := textutil.NormalizeCode(region)
				switch {
				case pending:
					batches, err := e.store.ListPendingBatches(cmd.Context(), normalized)
					if err != nil {
						return err
					}
					return printBatchCodes(cmd, batches)
				case finished:
					batches, err := e.store.ListFinishedBatches(cmd.Context(), normalized)
					if err != nil {
						return err
					}
					return printBatchCodes(cmd, batches)
				default:
					summaries, err := e.store.BatchSummaries(cmd.Context(), normalized)
					if err != nil {
						return err
					}
					if len(summaries) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No batches")
						return nil
					}
					rows := make([][]string, 0, len(summaries))
					for _, summary := range summaries {
						rows = append(rows, []string{
							summary.Batch,
							strconv.Itoa(summary.Blocks),
							formatStateCounts(summary.States),
						})
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderTable(
						[]string{"Batch", "Blocks", "States"},
						rows,
						[]columnAlignment{alignLeft, alignRight, alignLeft},
					))
					return nil
				}
			})
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "Region to list")
	cmd.Flags().BoolVar(&pending, "pending", false, "Only batches that are fully pending")
	cmd.Flags().BoolVar(&finished, "finished", false, "Only batches that are fully done")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show REGION BATCH BLOCK",
		Short: "Show one work unit",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args)
			if err != nil {
				return err
			}
			return ctx.withEnv(func(e *env) error {
				unit, err := e.store.Get(cmd.Context(), key)
				if err != nil {
					return err
				}
				if unit == nil {
					return fmt.Errorf("work unit %s not found", key)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Work unit:  %s\n", unit.Key)
				fmt.Fprintf(out, "Stage:      %s\n", unit.Stage)
				fmt.Fprintf(out, "State:      %s\n", unit.StateLabel())
				if unit.Complexity != "" {
					fmt.Fprintf(out, "Complexity: %s\n", unit.Complexity)
				}
				if unit.Operator != "" {
					fmt.Fprintf(out, "Operator:   %s\n", unit.Operator)
				}
				if unit.Reviewer != "" {
					fmt.Fprintf(out, "Reviewer:   %s\n", unit.Reviewer)
				}
				fmt.Fprintf(out, "Approvals:  %d\n", unit.ApproveCount)
				fmt.Fprintf(out, "Rejections: %d\n", unit.RejectCount)
				fmt.Fprintf(out, "Created:    %s\n", unit.CreatedAt.Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-state counts for a region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(e *env) error {
				stats, err := e.store.Stats(cmd.Context(), textutil.NormalizeCode(region))
				if err != nil {
					return err
				}
				if len(stats) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No work units")
					return nil
				}
				rows := make([][]string, 0, len(stats))
				for _, state := range workunit.AllStates() {
					if count, ok := stats[state]; ok {
						rows = append(rows, []string{string(state), strconv.Itoa(count)})
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"State", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "Region to summarize")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}

func printBatchCodes(cmd *cobra.Command, batches []string) error {
	if len(batches) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No batches")
		return nil
	}
	for _, batch := range batches {
		fmt.Fprintln(cmd.OutOrStdout(), batch)
	}
	return nil
}

func formatStateCounts(states map[workunit.State]int) string {
	keys := make([]string, 0, len(states))
	for state := range states {
		keys = append(keys, string(state))
	}
	sort.Strings(keys)
	out := ""
	for i, key := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%d", key, states[workunit.State(key)])
	}
	return out
}

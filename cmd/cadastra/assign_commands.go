package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cadastra/internal/identity"
	"cadastra/internal/textutil"
)

func newClaimCommand(ctx *commandContext) *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim the next pending production batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(e *env) error {
				claimed, err := e.assignment.SelfAssign(cmd.Context(), ctx.actor(identity.RoleOperator), textutil.NormalizeCode(region))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Claimed batch %s/%s (blocks %s)\n",
					claimed.Region, claimed.Batch, formatBlocks(claimed.Blocks))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "Region to claim in")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}

func newAssignCommand(ctx *commandContext) *cobra.Command {
	var region string
	var batch string
	var worker string

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a pending batch to a worker (supervisors only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(e *env) error {
				claimed, err := e.assignment.ManualAssign(cmd.Context(), ctx.actor(identity.RoleSupervisor),
					worker, textutil.NormalizeCode(region), textutil.NormalizeCode(batch))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Assigned batch %s/%s to %s (blocks %s)\n",
					claimed.Region, claimed.Batch, worker, formatBlocks(claimed.Blocks))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "Region of the batch")
	cmd.Flags().StringVarP(&batch, "batch", "b", "", "Batch code to assign")
	cmd.Flags().StringVarP(&worker, "worker", "w", "", "Worker to assign the batch to")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("batch")
	_ = cmd.MarkFlagRequired("worker")
	return cmd
}

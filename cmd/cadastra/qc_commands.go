package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cadastra/internal/identity"
	"cadastra/internal/textutil"
)

func newQCCommand(ctx *commandContext) *cobra.Command {
	qcCmd := &cobra.Command{
		Use:   "qc",
		Short: "Quality control: claim, approve, and reject reviewed work",
	}

	qcCmd.AddCommand(newQCClaimCommand(ctx))
	qcCmd.AddCommand(newQCApproveCommand(ctx))
	qcCmd.AddCommand(newQCRejectCommand(ctx))

	return qcCmd
}

func newQCClaimCommand(ctx *commandContext) *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim the next reviewable batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(e *env) error {
				claimed, err := e.qc.ClaimForReview(cmd.Context(), ctx.actor(identity.RoleReviewer), textutil.NormalizeCode(region))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Claimed batch %s/%s for review (blocks %s)\n",
					claimed.Region, claimed.Batch, formatBlocks(claimed.Blocks))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "Region to claim in")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}

func newQCApproveCommand(ctx *commandContext) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "approve REGION BATCH BLOCK",
		Short: "Approve a reviewed block",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args)
			if err != nil {
				return err
			}
			return ctx.withEnv(func(e *env) error {
				if err := e.qc.Approve(cmd.Context(), ctx.actor(identity.RoleReviewer), key, note); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s approved\n", key)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Optional approval note")
	return cmd
}

func newQCRejectCommand(ctx *commandContext) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "reject REGION BATCH BLOCK",
		Short: "Reject a reviewed block back to its operator",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args)
			if err != nil {
				return err
			}
			return ctx.withEnv(func(e *env) error {
				if err := e.qc.Reject(cmd.Context(), ctx.actor(identity.RoleReviewer), key, note); err != nil {
					return err
				}
				unit, err := e.store.Get(cmd.Context(), key)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s rejected (%s)\n", key, unit.StateLabel())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Rejection note (required)")
	_ = cmd.MarkFlagRequired("note")
	return cmd
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cadastra/internal/identity"
	"cadastra/internal/workunit"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	return newProgressCommand(ctx, "start", "Start work on an assigned block",
		func(e *env, cmdCtx context.Context, actor identity.Actor, key workunit.Key) error {
			return e.progress.Start(cmdCtx, actor, key)
		})
}

func newFinishCommand(ctx *commandContext) *cobra.Command {
	return newProgressCommand(ctx, "finish", "Mark an in-progress block as done",
		func(e *env, cmdCtx context.Context, actor identity.Actor, key workunit.Key) error {
			return e.progress.Finish(cmdCtx, actor, key)
		})
}

func newCorrectCommand(ctx *commandContext) *cobra.Command {
	return newProgressCommand(ctx, "correct", "Mark a rejected block as corrected",
		func(e *env, cmdCtx context.Context, actor identity.Actor, key workunit.Key) error {
			return e.progress.MarkCorrected(cmdCtx, actor, key)
		})
}

func newProgressCommand(ctx *commandContext, use, short string, run func(*env, context.Context, identity.Actor, workunit.Key) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " REGION BATCH BLOCK",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args)
			if err != nil {
				return err
			}
			return ctx.withEnv(func(e *env) error {
				if err := run(e, cmd.Context(), ctx.actor(identity.RoleOperator), key); err != nil {
					return err
				}
				unit, err := e.store.Get(cmd.Context(), key)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", key, unit.StateLabel())
				return nil
			})
		},
	}
}

package main

import (
	"fmt"
	"strconv"

	"cadastra/internal/textutil"
	"cadastra/internal/workunit"
)

// parseKey turns "REGION BATCH BLOCK" positional args into a work-unit key.
func parseKey(args []string) (workunit.Key, error) {
	if len(args) != 3 {
		return workunit.Key{}, fmt.Errorf("expected REGION BATCH BLOCK, got %d arguments", len(args))
	}
	block, err := strconv.Atoi(args[2])
	if err != nil {
		return workunit.Key{}, fmt.Errorf("block number %q: %w", args[2], err)
	}
	return workunit.Key{
		Region: textutil.NormalizeCode(args[0]),
		Batch:  textutil.NormalizeCode(args[1]),
		Block:  block,
	}, nil
}

func formatBlocks(blocks []int) string {
	out := ""
	for i, block := range blocks {
		if i > 0 {
			out += ", "
		}
		out += strconv.Itoa(block)
	}
	return out
}

func unitRow(unit *workunit.WorkUnit) []string {
	return []string{
		unit.Key.Region,
		unit.Key.Batch,
		strconv.Itoa(unit.Key.Block),
		string(unit.Stage),
		unit.StateLabel(),
		unit.Operator,
		unit.Reviewer,
	}
}

var unitHeaders = []string{"Region", "Batch", "Block", "Stage", "State", "Operator", "Reviewer"}

var unitAligns = []columnAlignment{
	alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft,
}

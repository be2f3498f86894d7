// Package importer loads work-unit definitions from CSV files.
//
// The file supplies one row per block with the columns "batch" and "block"
// (the legacy column names "asignacion" and "bloque" are also accepted), and
// optionally "complexity". One region, chosen by the caller, applies to the
// whole file. Imports are idempotent: rows that already exist are counted as
// skipped, never duplicated and never failed.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"cadastra/internal/logging"
	"cadastra/internal/textutil"
	"cadastra/internal/workunit"
)

// Result summarizes one import run.
type Result struct {
	Region   string
	Inserted int
	Skipped  int
}

// Importer feeds CSV rows into the work-unit store.
type Importer struct {
	store  *workunit.Store
	logger *slog.Logger
}

// New constructs an importer.
func New(store *workunit.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Importer{store: store, logger: logging.WithComponent(logger, "importer")}
}

// ImportCSV reads the full CSV stream and creates one pending work unit per
// row under the given region.
func (i *Importer) ImportCSV(ctx context.Context, region string, r io.Reader) (*Result, error) {
	region = textutil.NormalizeCode(region)
	if region == "" {
		return nil, errors.New("region is required")
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("file is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	batchCol, blockCol, complexityCol, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	result := &Result{Region: region}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line+1, err)
		}
		line++

		batch := textutil.NormalizeCode(record[batchCol])
		if batch == "" {
			return nil, fmt.Errorf("row %d: batch code is empty", line)
		}
		block, err := strconv.Atoi(strings.TrimSpace(record[blockCol]))
		if err != nil {
			return nil, fmt.Errorf("row %d: block number %q: %w", line, record[blockCol], err)
		}
		complexity := ""
		if complexityCol >= 0 && complexityCol < len(record) {
			complexity = strings.TrimSpace(record[complexityCol])
		}

		created, err := i.store.CreatePending(ctx, workunit.Key{
			Region: region,
			Batch:  batch,
			Block:  block,
		}, complexity)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if created {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}

	i.logger.Info("import finished",
		logging.String(logging.FieldRegion, region),
		logging.Int("inserted", result.Inserted),
		logging.Int("skipped", result.Skipped),
	)
	return result, nil
}

// resolveColumns maps header names onto column indexes. Header matching is
// case-insensitive and accepts the legacy Spanish names.
func resolveColumns(header []string) (batch, block, complexity int, err error) {
	batch, block, complexity = -1, -1, -1
	for idx, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "batch", "asignacion":
			batch = idx
		case "block", "bloque":
			block = idx
		case "complexity", "complejidad":
			complexity = idx
		}
	}
	if batch < 0 || block < 0 {
		return 0, 0, 0, errors.New("file must have batch and block columns")
	}
	return batch, block, complexity, nil
}

// Command screen screens entities from a JSON file without a server or
// database. Reports are written to stdout as JSON; logs go to stderr.
//
//	screen -in entities.json [-workers 10] [-rulesets dir] [-log-level info]
//
// The input is either an array of entities or {"entities": [...]}.
//
// Exit status:
//
//	0  every entity passed
//	1  at least one entity failed or could not be screened
//	2  the input or rulesets could not be read
//	3  no failures, but at least one verdict is indeterminate
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/screener/internal/domain"
	"github.com/aristath/screener/internal/modules/metrics"
	"github.com/aristath/screener/internal/modules/screening"
	"github.com/aristath/screener/internal/modules/screening/workers"
	"github.com/aristath/screener/pkg/logger"
	"github.com/rs/zerolog"
)

const (
	exitPass          = 0
	exitFail          = 1
	exitError         = 2
	exitIndeterminate = 3
)

func main() {
	in := flag.String("in", "-", "entities JSON file, - for stdin")
	numWorkers := flag.Int("workers", workers.DefaultWorkers, "parallel screening workers")
	rulesetDir := flag.String("rulesets", "", "directory of ruleset overrides (<sector>.yaml)")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log := logger.New(logger.Config{Level: *logLevel, Pretty: true, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := run(ctx, *in, *numWorkers, *rulesetDir, os.Stdout, log)
	if err != nil {
		log.Error().Err(err).Msg("Screening failed")
	}
	os.Exit(code)
}

func run(ctx context.Context, in string, numWorkers int, rulesetDir string, out io.Writer, log zerolog.Logger) (int, error) {
	data, err := readInput(in)
	if err != nil {
		return exitError, err
	}
	entities, err := decodeEntities(data)
	if err != nil {
		return exitError, err
	}

	calc := metrics.NewCalculator()
	pipeline := screening.NewPipeline(calc, screening.NewScreener(), log)
	registry, err := screening.LoadRegistry(rulesetDir, pipeline.Knows, log)
	if err != nil {
		return exitError, fmt.Errorf("failed to load rulesets: %w", err)
	}

	pool := workers.NewPool(numWorkers, pipeline, log).WithProgress(func(current, total int, message string) {
		log.Debug().Int("current", current).Int("total", total).Msg(message)
	})
	reports := pool.ScreenBatch(ctx, entities, registry.ForEntity)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return exitError, fmt.Errorf("failed to write reports: %w", err)
	}
	return exitCode(reports), nil
}

// exitCode ranks failures above indeterminate verdicts.
func exitCode(reports []screening.Report) int {
	code := exitPass
	for _, r := range reports {
		if r.Failed() {
			return exitFail
		}
		if r.Verdict != nil && r.Verdict.Outcome == screening.StatusIndeterminate {
			code = exitIndeterminate
		}
	}
	return code
}

func readInput(in string) ([]byte, error) {
	if in == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", in, err)
	}
	return data, nil
}

// decodeEntities accepts an array or an object with an "entities" field.
// Sector names are normalised; unknown sectors are left for the pipeline
// to report per entity.
func decodeEntities(data []byte) ([]domain.Entity, error) {
	data = bytes.TrimSpace(data)
	var entities []domain.Entity
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &entities); err != nil {
			return nil, fmt.Errorf("invalid entities: %w", err)
		}
	} else {
		var wrapped struct {
			Entities []domain.Entity `json:"entities"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("invalid entities: %w", err)
		}
		entities = wrapped.Entities
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("no entities in input")
	}

	for i := range entities {
		if sector, err := domain.ParseSector(string(entities[i].Sector)); err == nil {
			entities[i].Sector = sector
		}
	}
	return entities, nil
}

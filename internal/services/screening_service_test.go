package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/screener/internal/domain"
	"github.com/aristath/screener/internal/events"
	"github.com/aristath/screener/internal/modules/filings"
	"github.com/aristath/screener/internal/modules/metrics"
	"github.com/aristath/screener/internal/modules/screening"
	"github.com/aristath/screener/internal/modules/screening/workers"
	"github.com/aristath/screener/internal/modules/verdicts"
	testingpkg "github.com/aristath/screener/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service  *ScreeningService
	filings  *filings.Repository
	verdicts *verdicts.Repository
	bus      *events.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "services")
	t.Cleanup(cleanup)

	log := zerolog.Nop()
	pipeline := screening.NewPipeline(metrics.NewCalculator(), screening.NewScreener(), log)
	registry, err := screening.LoadRegistry("", pipeline.Knows, log)
	require.NoError(t, err)

	bus := events.NewBus(log)
	f := &fixture{
		filings:  filings.NewRepository(db.Conn(), log),
		verdicts: verdicts.NewRepository(db.Conn(), log),
		bus:      bus,
	}
	f.service = NewScreeningService(
		f.filings,
		f.verdicts,
		workers.NewPool(2, pipeline, log),
		registry.ForEntity,
		events.NewManager(bus, log),
		log,
	)
	return f
}

func TestScreeningService_ScreenStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.filings.Save(ctx, testingpkg.SemiconductorEntity("NVDA")))
	require.NoError(t, f.filings.Save(ctx, testingpkg.REITEntity("O")))

	stream, cancel := f.bus.Subscribe(16)
	defer cancel()

	result, err := f.service.ScreenStored(ctx, "test")
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, Summary{Entities: 2, Passed: 2}, result.Summary)

	stored, err := f.verdicts.ListByRun(ctx, result.RunID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "NVDA", stored[0].EntityID)
	assert.Equal(t, "O", stored[1].EntityID)

	var types []events.EventType
	for len(stream) > 0 {
		types = append(types, (<-stream).Type)
	}
	assert.Equal(t, []events.EventType{events.VerdictRecorded, events.VerdictRecorded, events.BatchCompleted}, types)
}

func TestScreeningService_ScreenEntitiesIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := screening.WithRunID(context.Background(), "run-fixed")

	unknown := testingpkg.SemiconductorEntity("ODD")
	unknown.Sector = domain.Sector("biotech")

	result, err := f.service.ScreenEntities(ctx, []domain.Entity{
		testingpkg.SemiconductorEntity("NVDA"),
		unknown,
		testingpkg.BrokenEntity("BRK"),
	}, "api")
	require.NoError(t, err)

	assert.Equal(t, "run-fixed", result.RunID)
	require.Len(t, result.Reports, 3)
	assert.Equal(t, "NVDA", result.Reports[0].EntityID)
	assert.Error(t, result.Reports[1].Err)
	assert.Equal(t, 1, result.Summary.Passed)
	assert.Equal(t, 1, result.Summary.Errors)

	stored, err := f.verdicts.ListByRun(ctx, "run-fixed")
	require.NoError(t, err)
	assert.Len(t, stored, 2, "every entity with a verdict is recorded")
}

func TestScreeningService_ScreenOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.filings.Save(ctx, testingpkg.SemiconductorEntity("NVDA")))

	report, err := f.service.ScreenOne(ctx, "NVDA", "api")
	require.NoError(t, err)
	require.NotNil(t, report)
	require.NotNil(t, report.Verdict)
	assert.Equal(t, screening.StatusPass, report.Verdict.Outcome)

	latest, err := f.verdicts.Latest(ctx, "NVDA")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, report.Verdict.ID, latest.ID)

	missing, err := f.service.ScreenOne(ctx, "NOPE", "api")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

type failingVerdicts struct{}

func (failingVerdicts) SaveAll(ctx context.Context, v []screening.Verdict) error {
	return errors.New("disk full")
}

func TestScreeningService_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.service.verdicts = failingVerdicts{}

	_, err := f.service.ScreenEntities(context.Background(), []domain.Entity{testingpkg.SemiconductorEntity("NVDA")}, "api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSummarize(t *testing.T) {
	pass := &screening.Verdict{Outcome: screening.StatusPass}
	fail := &screening.Verdict{Outcome: screening.StatusFail}
	ind := &screening.Verdict{Outcome: screening.StatusIndeterminate}

	s := Summarize([]screening.Report{
		{Verdict: pass}, {Verdict: fail}, {Verdict: ind}, {Err: errors.New("x")}, {Verdict: pass},
	})
	assert.Equal(t, Summary{Entities: 5, Passed: 2, Failed: 1, Indeterminate: 1, Errors: 1}, s)
}

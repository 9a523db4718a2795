package filings

import (
	"context"
	"testing"

	"github.com/aristath/screener/internal/domain"
	testingpkg "github.com/aristath/screener/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_SaveAndGet(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "filings")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()
	entity := testingpkg.SemiconductorEntity("NVDA")

	require.NoError(t, repo.Save(ctx, entity))

	loaded, err := repo.Get(ctx, "NVDA")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, entity.ID, loaded.ID)
	assert.Equal(t, entity.Name, loaded.Name)
	assert.Equal(t, entity.Sector, loaded.Sector)
	require.Len(t, loaded.Periods, len(entity.Periods))

	for i, p := range entity.Periods {
		got := loaded.Periods[i]
		assert.Equal(t, p.Key(), got.Key())
		assert.Equal(t, p.Items(), got.Items())
		assert.Equal(t, p.Form(), got.Form())
		assert.True(t, p.EndDate().Equal(got.EndDate()))
		assert.True(t, p.FiledAt().Equal(got.FiledAt()))
	}
}

func TestRepository_GetMissing(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "filings")
	defer cleanup()

	loaded, err := NewRepository(db.Conn(), zerolog.Nop()).Get(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRepository_SaveReplacesPeriods(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "filings")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()
	entity := testingpkg.SemiconductorEntity("AMD")
	require.NoError(t, repo.Save(ctx, entity))

	entity.Name = "Renamed"
	entity.Periods = entity.Periods[1:]
	require.NoError(t, repo.Save(ctx, entity))

	loaded, err := repo.Get(ctx, "AMD")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)
	assert.Len(t, loaded.Periods, 2)
	assert.Equal(t, domain.Annual(2022), loaded.Periods[0].Key())
}

func TestRepository_LoadsInChronologicalOrder(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "filings")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, testingpkg.BrokenEntity("MU")))

	loaded, err := repo.Get(ctx, "MU")
	require.NoError(t, err)
	for i := 1; i < len(loaded.Periods); i++ {
		assert.True(t, loaded.Periods[i-1].Key().Before(loaded.Periods[i].Key()))
	}
}

func TestRepository_SaveRejectsInvalidEntity(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "filings")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	assert.Error(t, repo.Save(context.Background(), domain.Entity{ID: "X", Sector: "biotech"}))

	dup := testingpkg.SemiconductorEntity("DUP")
	dup.Periods = append(dup.Periods, dup.Periods[0])
	assert.Error(t, repo.Save(context.Background(), dup))

	loaded, err := repo.Get(context.Background(), "DUP")
	require.NoError(t, err)
	assert.Nil(t, loaded, "failed save must roll back")
}

func TestRepository_ListAllDelete(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "filings")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, testingpkg.SemiconductorEntity("B")))
	require.NoError(t, repo.Save(ctx, testingpkg.REITEntity("A")))

	summaries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "A", summaries[0].ID)
	assert.Equal(t, domain.SectorREIT, summaries[0].Sector)
	assert.Equal(t, 3, summaries[0].PeriodCount)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	deleted, err := repo.Delete(ctx, "A")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "A")
	require.NoError(t, err)
	assert.False(t, deleted)

	var periods int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM periods WHERE entity_id = 'A'").Scan(&periods))
	assert.Zero(t, periods)
}

func TestRepository_SaveRejectsMixedPeriodTypes(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "filings")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	entity := testingpkg.REITEntity("O")
	quarter, err := domain.NewFinancialPeriod(domain.Quarter(2024, 1), domain.PeriodMeta{}, map[string]float64{"revenue": 1})
	require.NoError(t, err)
	entity.Periods = append(entity.Periods, quarter)

	err = repo.Save(context.Background(), entity)
	var mixed *domain.MixedPeriodTypeError
	require.ErrorAs(t, err, &mixed)

	dup := testingpkg.REITEntity("DUP")
	dup.Periods = append(dup.Periods, dup.Periods[1])
	err = repo.Save(context.Background(), dup)
	var outOfOrder *domain.OutOfOrderPeriodError
	assert.ErrorAs(t, err, &outOfOrder)
}

func TestRepository_SaveNormalisesSector(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "filings")
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()
	entity := testingpkg.REITEntity("O")
	entity.Sector = "REIT"
	require.NoError(t, repo.Save(ctx, entity))

	loaded, err := repo.Get(ctx, "O")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, domain.SectorREIT, loaded.Sector)
}

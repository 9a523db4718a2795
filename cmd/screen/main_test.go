package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/screener/internal/domain"
	"github.com/aristath/screener/internal/modules/screening"
	testingpkg "github.com/aristath/screener/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEntities(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "entities.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestRun_AllPass(t *testing.T) {
	path := writeEntities(t, []domain.Entity{
		testingpkg.SemiconductorEntity("nvda"),
		testingpkg.REITEntity("o"),
	})

	var out bytes.Buffer
	code, err := run(context.Background(), path, 2, "", &out, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, exitPass, code)

	var reports []struct {
		EntityID string `json:"entity_id"`
		Verdict  *struct {
			Outcome string `json:"outcome"`
		} `json:"verdict"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "nvda", reports[0].EntityID)
	assert.Equal(t, "o", reports[1].EntityID)
	require.NotNil(t, reports[0].Verdict)
	assert.Equal(t, "pass", reports[0].Verdict.Outcome)
}

func TestRun_OutOfOrderEntityIsIndeterminate(t *testing.T) {
	path := writeEntities(t, map[string]any{
		"entities": []domain.Entity{
			testingpkg.SemiconductorEntity("amd"),
			testingpkg.BrokenEntity("broken"),
		},
	})

	var out bytes.Buffer
	code, err := run(context.Background(), path, 1, "", &out, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, exitIndeterminate, code)
	assert.Contains(t, out.String(), `"indeterminate"`)
	assert.Contains(t, out.String(), "out of order")
}

func TestRun_UnscreenableEntityFails(t *testing.T) {
	unknown := testingpkg.SemiconductorEntity("odd")
	unknown.Sector = "biotech"
	path := writeEntities(t, []domain.Entity{testingpkg.BrokenEntity("broken"), unknown})

	var out bytes.Buffer
	code, err := run(context.Background(), path, 1, "", &out, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, exitFail, code, "failure outranks indeterminate")
	assert.Contains(t, out.String(), `"error"`)
}

func TestExitCode(t *testing.T) {
	pass := screening.Report{Verdict: &screening.Verdict{Outcome: screening.StatusPass}}
	fail := screening.Report{Verdict: &screening.Verdict{Outcome: screening.StatusFail}}
	unknown := screening.Report{Verdict: &screening.Verdict{Outcome: screening.StatusIndeterminate}}

	assert.Equal(t, exitPass, exitCode([]screening.Report{pass, pass}))
	assert.Equal(t, exitIndeterminate, exitCode([]screening.Report{pass, unknown}))
	assert.Equal(t, exitFail, exitCode([]screening.Report{unknown, fail, pass}))
	assert.Equal(t, exitPass, exitCode(nil))
}

func TestDecodeEntities(t *testing.T) {
	entities, err := decodeEntities([]byte(` [{"id":"x","sector":"Penny-Stock","periods":[]}]`))
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, domain.SectorPennyStock, entities[0].Sector)

	_, err = decodeEntities([]byte(`{"entities":[]}`))
	assert.Error(t, err)

	_, err = decodeEntities([]byte(`not json`))
	assert.Error(t, err)
}

func TestRun_MissingFile(t *testing.T) {
	code, err := run(context.Background(), filepath.Join(t.TempDir(), "nope.json"), 1, "", &bytes.Buffer{}, zerolog.Nop())
	assert.Error(t, err)
	assert.Equal(t, exitError, code)
}

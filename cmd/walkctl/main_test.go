package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"walk-ca/internal/driver"
	"walk-ca/internal/logging"
	"walk-ca/internal/stream"
	"walk-ca/internal/walk"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunWritesSummaryAndCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "series.csv")

	out, err := execute(t, "run", "--size", "5", "--steps", "10", "--seed", "3", "--csv", csvPath, "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, out, "size=5 steps=10")
	require.Contains(t, out, "seed=3")

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, "step,percentage", lines[0])
	require.Len(t, lines, 12, "header, seed point and one row per step")
	require.Equal(t, "0,0", lines[1])
}

func TestRunIsReproducibleForASeed(t *testing.T) {
	first, err := execute(t, "run", "--size", "12", "--steps", "300", "--seed", "42")
	require.NoError(t, err)
	second, err := execute(t, "run", "--size", "12", "--steps", "300", "--seed", "42")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRunClampsSize(t *testing.T) {
	out, err := execute(t, "run", "--size", "1000", "--steps", "0", "--seed", "1")
	require.NoError(t, err)
	require.Contains(t, out, "size=200 steps=0 visited=0/40000")
}

func TestRunWritesPNG(t *testing.T) {
	pngPath := filepath.Join(t.TempDir(), "grid.png")
	_, err := execute(t, "run", "--size", "4", "--steps", "5", "--seed", "2", "--png", pngPath, "--png-scale", "2")
	require.NoError(t, err)
	info, err := os.Stat(pngPath)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestRunRejectsNegativeSteps(t *testing.T) {
	_, err := execute(t, "run", "--steps", "-1")
	require.Error(t, err)
}

func TestRunConfigFileDefersToFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("size: 8\nseed: 9\n"), 0o644))

	out, err := execute(t, "--config", path, "run", "--steps", "1")
	require.NoError(t, err)
	require.Contains(t, out, "size=8 steps=1")
	require.Contains(t, out, "seed=9")

	out, err = execute(t, "--config", path, "run", "--size", "6", "--steps", "1")
	require.NoError(t, err)
	require.Contains(t, out, "size=6 steps=1")
}

func TestRunSweepAggregatesPerSize(t *testing.T) {
	rows, err := runSweep(context.Background(), sweepOptions{
		sizes:    []int{3, 20, 3, 1},
		steps:    500,
		runs:     4,
		workers:  2,
		baseSeed: 1,
	}, logging.Nop())
	require.NoError(t, err)
	require.Len(t, rows, 3, "duplicates collapse and 1 normalizes to 2")

	require.Equal(t, 2, rows[0].Size)
	require.Equal(t, 3, rows[1].Size)
	require.Equal(t, 20, rows[2].Size)
	for _, r := range rows {
		require.Equal(t, 4, r.Runs)
		require.LessOrEqual(t, r.MinCoverage, r.MeanCoverage)
		require.LessOrEqual(t, r.MeanCoverage, r.MaxCoverage)
		require.LessOrEqual(t, r.MaxCoverage, 100.0)
	}
	// 500 steps cannot cover 400 cells in every run but always cover 4.
	require.Equal(t, 4, rows[0].Covered)
	require.Equal(t, 100.0, rows[0].MeanCoverage)
	require.Less(t, rows[2].MeanCoverage, 100.0)
}

func TestRunSweepMatchesSingleEngine(t *testing.T) {
	rows, err := runSweep(context.Background(), sweepOptions{
		sizes: []int{10}, steps: 200, runs: 1, workers: 1, baseSeed: 7,
	}, logging.Nop())
	require.NoError(t, err)

	e := walk.New(10, walk.WithSeed(7))
	for i := 0; i < 200; i++ {
		e.Step()
	}
	require.InDelta(t, 100*float64(e.Visited())/100, rows[0].MeanCoverage, 1e-9)
}

func TestRunSweepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runSweep(ctx, sweepOptions{sizes: []int{50}, steps: 10000, runs: 2, workers: 1, baseSeed: 1}, logging.Nop())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunSweepRejectsBadRuns(t *testing.T) {
	_, err := runSweep(context.Background(), sweepOptions{sizes: []int{10}, runs: 0}, logging.Nop())
	require.Error(t, err)
}

func TestSweepCommandPrintsTable(t *testing.T) {
	out, err := execute(t, "sweep", "--sizes", "4,6", "--steps", "100", "--runs", "2", "--workers", "2")
	require.NoError(t, err)
	require.Contains(t, out, "Sweeping 2 sizes x 2 runs")
	require.Contains(t, out, "mean cover step")
}

func newTestRouter(t *testing.T) (*driver.Driver, http.Handler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := stream.NewHub(nil)
	go hub.Run(ctx)

	drv := driver.New(driver.Config{Size: 6, Seed: 5, Interval: 5 * time.Millisecond})
	drv.Subscribe(hub)
	t.Cleanup(drv.Pause)
	return drv, newRouter(drv, hub)
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRouterStateAndStep(t *testing.T) {
	_, h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/state")
	require.Equal(t, http.StatusOK, rec.Code)
	var st stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, "idle", st.Mode)
	require.Equal(t, 6, st.State.Size)
	require.Equal(t, 36, st.State.Total)
	require.Len(t, st.Points, 1)

	rec = do(t, h, http.MethodPost, "/api/step")
	require.Equal(t, http.StatusOK, rec.Code)
	var res walk.StepResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, 1, res.Steps)
	require.Equal(t, 1, res.Visited)

	rec = do(t, h, http.MethodGet, "/api/step")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouterPlayExcludesStep(t *testing.T) {
	drv, h := newTestRouter(t)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/play").Code)
	require.Equal(t, driver.Running, drv.Mode())
	require.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/play").Code)
	require.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/step").Code)

	require.Eventually(t, func() bool { return drv.Steps() > 0 }, 2*time.Second, 5*time.Millisecond)

	rec := do(t, h, http.MethodPost, "/api/pause")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, driver.Idle, drv.Mode())
}

func TestRouterReset(t *testing.T) {
	drv, h := newTestRouter(t)
	_, err := drv.Advance(20)
	require.NoError(t, err)

	rec := do(t, h, http.MethodPost, "/api/reset")
	require.Equal(t, http.StatusOK, rec.Code)
	var st stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, 6, st.State.Size, "reset without size keeps the current size")
	require.Zero(t, st.State.Steps)
	require.Zero(t, st.State.Visited)

	rec = do(t, h, http.MethodPost, "/api/reset?size=abc")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, walk.DefaultSize, st.State.Size)

	rec = do(t, h, http.MethodPost, "/api/reset?size=500")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, walk.MaxSize, st.State.Size)
}

func TestRouterResetWithSeedReplaysRun(t *testing.T) {
	drv, h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/reset?size=9&seed=77")
	require.Equal(t, http.StatusOK, rec.Code)
	var st stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, int64(77), st.Seed)
	require.Equal(t, 9, st.State.Size)
	_, err := drv.Advance(50)
	require.NoError(t, err)
	first := drv.State()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/reset?seed=77").Code)
	_, err = drv.Advance(50)
	require.NoError(t, err)
	require.Equal(t, first, drv.State())
	require.Equal(t, int64(77), drv.Seed())

	e := walk.New(9, walk.WithSeed(77))
	for i := 0; i < 50; i++ {
		e.Step()
	}
	require.Equal(t, e.State(), first)
}

package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmcrate/farmcrate-backend/internal/billing"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

type fakeLock struct {
	held   bool
	busy   bool
	frees  int
	denied int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.busy {
		f.denied++
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.frees++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	failing := &testJob{name: "fail", err: errors.New("boom")}
	trailing := &testJob{name: "after-fail"}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(failing, trailing),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, service.runCycle(context.Background()))
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, trailing.runs, "a failed job must not stop later jobs")
	assert.Equal(t, 1, lock.frees, "lock must be released after the cycle")
}

func TestRunCycleSkipsWhenLockBusy(t *testing.T) {
	job := &testJob{name: "noop"}
	lock := &fakeLock{busy: true}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, service.runCycle(context.Background()))
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.frees)
	assert.Equal(t, 1, lock.denied)
}

type fakeSeasonRunner struct {
	result *billing.RunResult
	err    error
	calls  int
}

func (f *fakeSeasonRunner) RunCurrentSeason(ctx context.Context) (*billing.RunResult, error) {
	f.calls++
	return f.result, f.err
}

func TestSeasonalBillingJobDelegatesToService(t *testing.T) {
	runner := &fakeSeasonRunner{result: &billing.RunResult{Invoiced: 3}}
	job, err := NewSeasonalBillingJob(SeasonalBillingJobParams{
		Logger:  testLogger(),
		Billing: runner,
	})
	require.NoError(t, err)

	assert.Equal(t, "seasonal-billing", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, runner.calls)
}

func TestSeasonalBillingJobPropagatesErrors(t *testing.T) {
	runner := &fakeSeasonRunner{err: errors.New("gateway down")}
	job, err := NewSeasonalBillingJob(SeasonalBillingJobParams{
		Logger:  testLogger(),
		Billing: runner,
	})
	require.NoError(t, err)

	require.Error(t, job.Run(context.Background()))
}

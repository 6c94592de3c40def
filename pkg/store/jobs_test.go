package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mondrian-project/mondrian/pkg/models"
)

func TestCreateJobAndGetJob_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.CreateJob(ctx, CreateJobSpec{
		ImageRef:      "s3://bucket/img.jpg",
		AdvisorID:     "ansel",
		RequestedMode: models.ModeBaseline,
		TotalAdvisors: 1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	job, err := st.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, "s3://bucket/img.jpg", job.ImageRef)
	assert.Equal(t, "ansel", job.AdvisorID)
	assert.Equal(t, models.StatusQueued, job.Status)
	assert.Equal(t, 0, job.Percentage)
	assert.Len(t, job.StatusHistory, 1)
}

func TestGetJob_UnknownIDReturnsNotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetJob(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClaimNextJob_SkipsLockedAndReturnsErrWhenEmpty(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.ClaimNextJob(ctx)
	assert.ErrorIs(t, err, ErrNoJobsAvailable)

	id, err := st.CreateJob(ctx, CreateJobSpec{ImageRef: "a.jpg", AdvisorID: "ansel", RequestedMode: models.ModeBaseline, TotalAdvisors: 1})
	require.NoError(t, err)

	claimed, err := st.ClaimNextJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, claimed.ID)
	assert.Equal(t, models.StatusProcessing, claimed.Status)
	assert.Equal(t, models.PhaseImageProcessing, claimed.Phase)

	// The job is no longer queued, so a second claim against the now-empty
	// queue returns ErrNoJobsAvailable rather than re-claiming it.
	_, err = st.ClaimNextJob(ctx)
	assert.ErrorIs(t, err, ErrNoJobsAvailable)
}

func TestMutateJob_RejectsPercentageRegression(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.CreateJob(ctx, CreateJobSpec{ImageRef: "a.jpg", AdvisorID: "ansel", RequestedMode: models.ModeBaseline, TotalAdvisors: 2})
	require.NoError(t, err)

	advancedPhase := models.PhaseAdvisorPreparation
	advanced, err := st.MutateJob(ctx, id, JobPatch{
		Status:         statusPtr(models.StatusAnalyzing),
		Phase:          &advancedPhase,
		CurrentAdvisor: intPtr(1),
	})
	require.NoError(t, err)
	highWaterMark := advanced.Percentage
	require.Greater(t, highWaterMark, 0)

	// Patching back to the image-processing phase must not lower the
	// percentage the job already reported.
	regressedPhase := models.PhaseImageProcessing
	regressed, err := st.MutateJob(ctx, id, JobPatch{
		Status:         statusPtr(models.StatusProcessing),
		Phase:          &regressedPhase,
		CurrentAdvisor: intPtr(0),
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, regressed.Percentage, highWaterMark)
}

func TestMutateJob_TerminalJobIsNoOp(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.CreateJob(ctx, CreateJobSpec{ImageRef: "a.jpg", AdvisorID: "ansel", RequestedMode: models.ModeBaseline, TotalAdvisors: 1})
	require.NoError(t, err)

	done := models.StatusDone
	_, err = st.MutateJob(ctx, id, JobPatch{Status: &done})
	require.NoError(t, err)

	errStatus := models.StatusError
	jobErr := models.NewJobError(models.ErrorKindInternal, "should not apply")
	after, err := st.MutateJob(ctx, id, JobPatch{Status: &errStatus, Error: jobErr})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, after.Status, "a terminal job must reject further status transitions")
	assert.Nil(t, after.Error)
}

func TestMutateJob_ThinkingUpdateDoesNotTouchPercentage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.CreateJob(ctx, CreateJobSpec{ImageRef: "a.jpg", AdvisorID: "ansel", RequestedMode: models.ModeBaseline, TotalAdvisors: 1})
	require.NoError(t, err)

	before, err := st.GetJob(ctx, id)
	require.NoError(t, err)

	thinking := "considering the rule of thirds"
	after, err := st.MutateJob(ctx, id, JobPatch{LastThinking: &thinking})
	require.NoError(t, err)
	assert.Equal(t, thinking, after.LastThinking)
	assert.Equal(t, before.Percentage, after.Percentage)
	assert.Equal(t, before.Status, after.Status)
}

func TestRecoverInterruptedJobs_MarksNonTerminalJobsErrored(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.CreateJob(ctx, CreateJobSpec{ImageRef: "a.jpg", AdvisorID: "ansel", RequestedMode: models.ModeBaseline, TotalAdvisors: 1})
	require.NoError(t, err)
	_, err = st.ClaimNextJob(ctx)
	require.NoError(t, err)

	n, err := st.RecoverInterruptedJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := st.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, models.ErrorKindInternal, job.Error.Kind)
}

func TestReapTimedOutJobs_ReturnsReapedIDsAndSkipsFreshJobs(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	stale, err := st.CreateJob(ctx, CreateJobSpec{ImageRef: "stale.jpg", AdvisorID: "ansel", RequestedMode: models.ModeBaseline, TotalAdvisors: 1})
	require.NoError(t, err)
	_, err = st.ClaimNextJob(ctx)
	require.NoError(t, err)

	fresh, err := st.CreateJob(ctx, CreateJobSpec{ImageRef: "fresh.jpg", AdvisorID: "ansel", RequestedMode: models.ModeBaseline, TotalAdvisors: 1})
	require.NoError(t, err)

	// Backdate the stale job's activity timestamp directly; production
	// code only ever moves it forward via MutateJob/ClaimNextJob.
	_, err = st.pool.Exec(ctx, `UPDATE jobs SET last_activity_at = $1 WHERE id = $2`, time.Now().Add(-time.Hour), stale)
	require.NoError(t, err)

	ids, err := st.ReapTimedOutJobs(ctx, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []string{stale}, ids)

	reaped, err := st.GetJob(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, reaped.Status)
	require.NotNil(t, reaped.Error)
	assert.Equal(t, models.ErrorKindTimeout, reaped.Error.Kind)

	untouched, err := st.GetJob(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, untouched.Status)

	// Reaping is idempotent: a job already errored is excluded next time.
	ids, err = st.ReapTimedOutJobs(ctx, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func statusPtr(s models.Status) *models.Status { return &s }
func intPtr(n int) *int                        { return &n }

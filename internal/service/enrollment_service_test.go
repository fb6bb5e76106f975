package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-course-api/internal/actor"
	"github.com/noah-isme/sma-course-api/internal/models"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

func TestEnrollTwiceRecordsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	st := env.student(t, "Ada")
	c := env.class(t, "Algebra", 10)

	for i := 0; i < 2; i++ {
		res, err := env.enrollments.Enroll(ctx, st.ID.String(), c.ID.String())
		require.NoError(t, err)
		assert.Equal(t, models.EnrollmentOutcomeEnrolled, res.Outcome)
		assert.Equal(t, 1, res.CurrentEnrollment)
		assert.Equal(t, 10, res.MaxCapacity)
	}

	gotStudent, err := env.rt.Student(st.ID).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID}, gotStudent.EnrolledClassIDs)
	gotClass, err := env.rt.Class(c.ID).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{st.ID}, gotClass.EnrolledStudentIDs)
	assert.Equal(t, 1, gotClass.CurrentEnrollment)
}

func TestEnrollRejectsFullClassWithoutMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.student(t, "Ada")
	second := env.student(t, "Grace")
	c := env.class(t, "Seminar", 1)
	env.enroll(t, first.ID, c.ID)

	writes := env.store.writes.Load()
	_, err := env.enrollments.Enroll(ctx, second.ID.String(), c.ID.String())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCapacityExceeded))
	assert.Equal(t, writes, env.store.writes.Load())

	gotStudent, err := env.rt.Student(second.ID).Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, gotStudent.EnrolledClassIDs)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.enrollments.WithLabelValues(string(models.EnrollmentOutcomeRejected))))
}

func TestEnrollRetryConvergesOnFullClass(t *testing.T) {
	env := newTestEnv(t)
	st := env.student(t, "Ada")
	c := env.class(t, "Seminar", 1)
	env.enroll(t, st.ID, c.ID)

	res, err := env.enrollments.Enroll(context.Background(), st.ID.String(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, res.CurrentEnrollment)
}

func TestEnrollMissingEntities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	st := env.student(t, "Ada")
	c := env.class(t, "Algebra", 5)

	_, err := env.enrollments.Enroll(ctx, uuid.NewString(), c.ID.String())
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	_, err = env.enrollments.Enroll(ctx, st.ID.String(), uuid.NewString())
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	_, err = env.enrollments.Enroll(ctx, "not-a-uuid", c.ID.String())
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	gotClass, err := env.rt.Class(c.ID).Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, gotClass.EnrolledStudentIDs)
}

func TestUnenrollNeverEnrolledIsNoop(t *testing.T) {
	env := newTestEnv(t)
	st := env.student(t, "Ada")
	c := env.class(t, "Algebra", 5)

	writes := env.store.writes.Load()
	res, err := env.enrollments.Unenroll(context.Background(), st.ID.String(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentOutcomeUnenrolled, res.Outcome)
	assert.Equal(t, 0, res.CurrentEnrollment)
	assert.Equal(t, writes, env.store.writes.Load())
}

func TestUnenrollRemovesBothSides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	st := env.student(t, "Ada")
	c := env.class(t, "Algebra", 5)
	env.enroll(t, st.ID, c.ID)

	res, err := env.enrollments.Unenroll(ctx, st.ID.String(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 0, res.CurrentEnrollment)

	ids, err := env.rt.Student(st.ID).EnrolledClassIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestEnrollRetriesTransientClassFailure(t *testing.T) {
	env := newTestEnv(t)
	st := env.student(t, "Ada")
	c := env.class(t, "Algebra", 5)

	env.store.failNext(actor.KindClass, 2)
	res, err := env.enrollments.Enroll(context.Background(), st.ID.String(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, res.CurrentEnrollment)
	assert.Zero(t, env.enrollments.PendingRepairs())
}

func TestEnrollDefersClassStepToRepairQueue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	st := env.student(t, "Ada")
	c := env.class(t, "Algebra", 5)

	// three in-place attempts fail, then the first repair attempt fails too
	env.store.failNext(actor.KindClass, 4)
	_, err := env.enrollments.Enroll(ctx, st.ID.String(), c.ID.String())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPersistence))

	ids, err := env.rt.Student(st.ID).EnrolledClassIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID}, ids)

	require.Eventually(t, func() bool {
		got, err := env.rt.Class(c.ID).Get(ctx)
		return err == nil && models.ContainsID(got.EnrolledStudentIDs, st.ID)
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return env.enrollments.PendingRepairs() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.enrollments.WithLabelValues(string(models.EnrollmentOutcomeDeferred))))
}

func TestRepairSkipsWhenStudentSideWasReverted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	st := env.student(t, "Ada")
	c := env.class(t, "Algebra", 5)

	require.NoError(t, env.enrollments.handleRepair(ctx, jobsJob(repairJobEnroll, st.ID, c.ID)))
	got, err := env.rt.Class(c.ID).Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.EnrolledStudentIDs)
}

func TestConcurrentEnrollmentsRespectCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const capacity, applicants = 25, 40
	c := env.class(t, "Popular", capacity)
	students := make([]models.Student, applicants)
	for i := range students {
		students[i] = env.student(t, "Student")
	}

	var wg sync.WaitGroup
	errs := make([]error, applicants)
	for i, st := range students {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.enrollments.Enroll(ctx, st.ID.String(), c.ID.String())
		}()
	}
	wg.Wait()

	enrolled := 0
	for i, err := range errs {
		ids, getErr := env.rt.Student(students[i].ID).EnrolledClassIDs(ctx)
		require.NoError(t, getErr)
		if err == nil {
			enrolled++
			assert.Equal(t, []uuid.UUID{c.ID}, ids)
			continue
		}
		assert.True(t, appErrors.Is(err, appErrors.ErrCapacityExceeded), err)
		assert.Empty(t, ids)
	}
	assert.Equal(t, capacity, enrolled)

	got, err := env.rt.Class(c.ID).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, capacity, got.CurrentEnrollment)
	assert.Len(t, got.EnrolledStudentIDs, capacity)
}

func TestEnrollRejectsRemovedClass(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	st := env.student(t, "Ada")
	c := env.class(t, "Algebra", 5)
	require.NoError(t, env.classes.Delete(ctx, c.ID.String(), ""))

	_, err := env.enrollments.Enroll(ctx, st.ID.String(), c.ID.String())
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	ids, err := env.rt.Student(st.ID).EnrolledClassIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	got, err := env.rt.Class(c.ID).Get(ctx)
	require.NoError(t, err)
	assert.Zero(t, got.CurrentEnrollment)
}

func TestEnrollCallerGivesUpAfterStudentStep(t *testing.T) {
	env := newTestEnv(t)
	st := env.student(t, "Ada")
	c := env.class(t, "Algebra", 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.store.onWrite(func(partition string) {
		if partition == actor.KindStudent {
			cancel()
		}
	})
	_, err := env.enrollments.Enroll(ctx, st.ID.String(), c.ID.String())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	env.store.onWrite(func(string) {})

	bg := context.Background()
	require.Eventually(t, func() bool {
		got, err := env.rt.Class(c.ID).Get(bg)
		return err == nil && models.ContainsID(got.EnrolledStudentIDs, st.ID) && got.CurrentEnrollment == 1
	}, 2*time.Second, 5*time.Millisecond)
	ids, err := env.rt.Student(st.ID).EnrolledClassIDs(bg)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID}, ids)
}

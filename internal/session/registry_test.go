package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/store"
	"github.com/stretchr/testify/require"
)

type fakeQuizSource struct {
	calls atomic.Int32
	err   error
}

func (f *fakeQuizSource) GetQuiz(ctx context.Context, token string, quizID int64) (*model.Quiz, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	q := testQuiz(45)
	q.ID = quizID
	return q, nil
}

func newTestRegistry(src *fakeQuizSource) *Registry {
	return NewRegistry(RegistryOptions{
		Quizzes:   src,
		Store:     store.NewMemory(),
		Submitter: &fakeSubmitter{},
		Clock:     newFakeClock(),
		Log:       zerolog.Nop(),
	})
}

func TestRegistryReusesLiveSession(t *testing.T) {
	src := &fakeQuizSource{}
	reg := newTestRegistry(src)
	defer reg.CloseAll()
	id := Identity{StudentID: "s-1", Token: "tok"}

	var wg sync.WaitGroup
	got := make([]*Controller, 6)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := reg.Open(context.Background(), id, 12)
			require.NoError(t, err)
			got[i] = c
		}(i)
	}
	wg.Wait()

	for _, c := range got[1:] {
		require.Same(t, got[0], c)
	}
	require.Equal(t, StateActive, got[0].State())
	require.Equal(t, 1, reg.Len())
	require.LessOrEqual(t, src.calls.Load(), int32(len(got)))

	other, err := reg.Open(context.Background(), Identity{StudentID: "s-2", Token: "tok"}, 12)
	require.NoError(t, err)
	require.NotSame(t, got[0], other)
	require.Equal(t, 2, reg.Len())
}

func TestRegistryReplacesSubmittedSession(t *testing.T) {
	reg := newTestRegistry(&fakeQuizSource{})
	defer reg.CloseAll()
	id := Identity{StudentID: "s-1", Token: "tok"}
	ctx := context.Background()

	c, err := reg.Open(ctx, id, 12)
	require.NoError(t, err)
	_, err = c.SubmitWith(ctx, confirmYes)
	require.NoError(t, err)

	// The submitted attempt stays visible with its result.
	got, ok := reg.Get("s-1", 12)
	require.True(t, ok)
	require.Same(t, c, got)
	require.NotNil(t, got.Result())

	next, err := reg.Open(ctx, id, 12)
	require.NoError(t, err)
	require.NotSame(t, c, next)
	require.Equal(t, StateActive, next.State())
	require.Equal(t, 45*60, next.TimeLeft())
	require.Equal(t, 1, reg.Len())
}

func TestRegistrySweepDropsSubmitted(t *testing.T) {
	reg := newTestRegistry(&fakeQuizSource{})
	defer reg.CloseAll()
	ctx := context.Background()

	done, err := reg.Open(ctx, Identity{StudentID: "s-1"}, 12)
	require.NoError(t, err)
	_, err = reg.Open(ctx, Identity{StudentID: "s-2"}, 12)
	require.NoError(t, err)
	_, err = done.SubmitWith(ctx, confirmYes)
	require.NoError(t, err)

	require.Equal(t, 1, reg.Sweep())
	require.Equal(t, 1, reg.Len())
	_, ok := reg.Get("s-1", 12)
	require.False(t, ok)
	require.Zero(t, reg.Sweep())
}

func TestRegistryPropagatesFetchError(t *testing.T) {
	boom := errors.New("backend down")
	reg := newTestRegistry(&fakeQuizSource{err: boom})

	_, err := reg.Open(context.Background(), Identity{StudentID: "s-1"}, 12)
	require.ErrorIs(t, err, boom)
	require.Zero(t, reg.Len())
}

func TestRegistryOpenOutlivesCallerCancellation(t *testing.T) {
	src := &fakeQuizSource{}
	reg := newTestRegistry(src)
	defer reg.CloseAll()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := reg.Open(ctx, Identity{StudentID: "s-1", Token: "tok"}, 12)
	require.NoError(t, err)
	require.Equal(t, StateActive, c.State())
	require.Equal(t, int32(1), src.calls.Load())
}

func TestRegistrySweepDropsAbandonedExpiredSession(t *testing.T) {
	clock := newFakeClock()
	sub := &fakeSubmitter{}
	sub.setErr(errors.New("backend down"))
	mem := store.NewMemory()
	reg := NewRegistry(RegistryOptions{
		Quizzes:   &fakeQuizSource{},
		Store:     mem,
		Submitter: sub,
		Clock:     clock,
		Log:       zerolog.Nop(),
	})
	defer reg.CloseAll()

	c, err := reg.Open(context.Background(), Identity{StudentID: "s-1"}, 12)
	require.NoError(t, err)

	// The deadline passes and the automatic submission fails.
	clock.Advance(46 * time.Minute)
	clock.tick(t)
	require.Eventually(t, func() bool {
		return sub.calls.Load() == 1 && c.State() == StateActive
	}, 2*time.Second, 5*time.Millisecond)
	require.Zero(t, c.TimeLeft())

	require.Zero(t, reg.Sweep(), "kept within the grace period")

	_, unsubscribe := c.Subscribe()
	clock.Advance(ExpiredGrace)
	require.Zero(t, reg.Sweep(), "kept while someone is watching")
	unsubscribe()

	require.Equal(t, 1, reg.Sweep())
	require.Zero(t, reg.Len())

	// Progress stays for the next Open to restore and submit.
	_, err = mem.Get(context.Background(), "quiz_progress_12_student_s-1")
	require.NoError(t, err)
}

func TestRegistryCloseAllKeepsProgress(t *testing.T) {
	mem := store.NewMemory()
	reg := NewRegistry(RegistryOptions{
		Quizzes:   &fakeQuizSource{},
		Store:     mem,
		Submitter: &fakeSubmitter{},
		Clock:     newFakeClock(),
		Log:       zerolog.Nop(),
	})
	_, err := reg.Open(context.Background(), Identity{StudentID: "s-1"}, 12)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		reg.CloseAll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("CloseAll did not return")
	}

	require.Zero(t, reg.Len())
	_, err = mem.Get(context.Background(), "quiz_progress_12_student_s-1")
	require.NoError(t, err)
}

func TestPager(t *testing.T) {
	p := NewPager(12, 0)
	require.Equal(t, DefaultQuestionsPerPage, p.PerPage())
	require.Equal(t, 3, p.TotalPages())

	start, end := p.Bounds(2)
	require.Equal(t, 10, start)
	require.Equal(t, 12, end)

	start, end = p.Bounds(7)
	require.Equal(t, 12, start)
	require.Equal(t, 12, end)

	require.Equal(t, 1, p.PageOf(9))
	require.Equal(t, 2, p.PageOf(40))
	require.True(t, p.HasNext(1))
	require.False(t, p.HasNext(2))

	require.Zero(t, NewPager(0, 5).TotalPages())
}

func TestControllerPage(t *testing.T) {
	h := newHarness(t, testQuiz(45), nil)
	require.Len(t, h.ctrl.Page(0), 3)
	require.Empty(t, h.ctrl.Page(1))
}

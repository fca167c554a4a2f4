package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	quizzes []model.StudentQuiz
	err     error
	token   string
}

func (s *stubLister) ListStudentQuizzes(_ context.Context, token string) ([]model.StudentQuiz, error) {
	s.token = token
	return s.quizzes, s.err
}

func TestClassify(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	quizzes := []model.StudentQuiz{
		{ID: 1, ClassName: "10A1", StartDate: "2025-03-01T08:00:00", EndDate: "2025-03-01T10:00:00"},
		{ID: 2, ClassName: "10A1", StartDate: "2025-03-01T08:00:00", EndDate: "2025-03-01T04:00:00"},
		{ID: 3, ClassName: "10A1", Submitted: true, EndDate: "2025-02-01T00:00:00"},
		{ID: 4, ClassName: "", StartDate: "2025-03-01T08:00:00"},
		{ID: 5, ClassName: "9B", StartDate: "garbage", EndDate: "2025-03-05T00:00:00Z"},
	}

	cat := Classify(quizzes, now, 7*time.Hour)

	require.Equal(t, map[Tab]int{TabAvailable: 1, TabSubmitted: 1, TabClosed: 3}, cat.Counts)
	require.Len(t, cat.Classes, 3)
	require.Equal(t, "10A1", cat.Classes[0].ClassName)
	require.Equal(t, "9B", cat.Classes[1].ClassName)
	require.Equal(t, OtherClassName, cat.Classes[2].ClassName)

	a1 := cat.Classes[0]
	require.Len(t, a1.Available, 1)
	// 10:00 + 7h = 17:00, still open at noon.
	require.Equal(t, int64(1), a1.Available[0].ID)
	require.Equal(t, "2025-03-01T17:00:00Z", a1.Available[0].EndDate)
	require.Equal(t, time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC), *a1.Available[0].EndAt)

	// 04:00 + 7h = 11:00, already over.
	require.Equal(t, int64(2), a1.Closed[0].ID)
	require.Equal(t, int64(3), a1.Tab(TabSubmitted)[0].ID)

	require.Equal(t, int64(4), cat.Classes[2].Closed[0].ID)
	require.Equal(t, int64(5), cat.Classes[1].Closed[0].ID)
	require.Nil(t, cat.Classes[1].Closed[0].StartAt)
}

func TestClassifyWithoutCorrection(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	quizzes := []model.StudentQuiz{
		{ID: 1, StartDate: "2025-03-01T08:00:00Z", EndDate: "2025-03-01T11:00:00Z"},
	}

	cat := Classify(quizzes, now, 0)
	require.Equal(t, 1, cat.Counts[TabClosed])
	require.Empty(t, cat.Classes[0].Available)
}

func TestCatalogServiceLoad(t *testing.T) {
	lister := &stubLister{quizzes: []model.StudentQuiz{
		{ID: 1, ClassName: "10A1", StartDate: "2025-03-01T08:00:00Z", EndDate: "2025-03-01T20:00:00Z"},
	}}
	svc := NewCatalogService(lister, 0, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	cat, err := svc.Load(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "tok", lister.token)
	require.Equal(t, 1, cat.Counts[TabAvailable])

	boom := errors.New("down")
	lister.err = boom
	_, err = svc.Load(context.Background(), "tok")
	require.ErrorIs(t, err, boom)
}

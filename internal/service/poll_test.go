package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live_poll/internal/models"
)

func TestPollEngine_CreatePoll(t *testing.T) {
	svc, out := newTestServices(PollPolicy{})

	poll, err := svc.Polls.CreatePoll("Capital of France?", []string{"Paris", "Rome"}, 30)
	require.NoError(t, err)

	assert.Equal(t, "Capital of France?", poll.Question)
	assert.Equal(t, 30, poll.DurationSeconds)
	assert.Equal(t, []models.Option{{Text: "Paris"}, {Text: "Rome"}}, poll.Options)
	assert.False(t, poll.CreatedAt.IsZero())

	assert.Equal(t, []string{models.EventPollAnnounced, models.EventResultsUpdated}, out.events())
	announced := out.frames[0].payload.(*models.Poll)
	results := out.frames[1].payload.(*models.Poll)
	assert.Equal(t, announced, results)
	assert.Equal(t, 0, results.TotalVotes())

	require.Len(t, svc.Polls.History(), 1)
	assert.Equal(t, poll.ID, svc.Polls.History()[0].ID)
}

func TestPollEngine_CreatePollDefaultsDuration(t *testing.T) {
	svc, _ := newTestServices(PollPolicy{DefaultDuration: 20})

	poll, err := svc.Polls.CreatePoll("Q", []string{"A"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, poll.DurationSeconds)
}

func TestPollEngine_CreatePollRejectsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		question string
		options  []string
	}{
		{"no options", "Q", []string{}},
		{"nil options", "Q", nil},
		{"empty question", "", []string{"A"}},
		{"blank question", "   ", []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, out := newTestServices(PollPolicy{})
			_, err := svc.Polls.CreatePoll("Existing", []string{"X"}, 10)
			require.NoError(t, err)
			out.reset()

			_, err = svc.Polls.CreatePoll(tt.question, tt.options, 10)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPoll))

			assert.Empty(t, out.frames)
			assert.Equal(t, "Existing", svc.Polls.ActivePoll().Question)
			assert.Len(t, svc.Polls.History(), 1)
		})
	}
}

func TestPollEngine_PollIDsStrictlyIncrease(t *testing.T) {
	svc, _ := newTestServices(PollPolicy{})
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.Polls.now = func() time.Time { return fixed }

	p1, _ := svc.Polls.CreatePoll("Q1", []string{"A"}, 10)
	p2, _ := svc.Polls.CreatePoll("Q2", []string{"A"}, 10)
	assert.Greater(t, p2.ID, p1.ID)
}

func TestPollEngine_SubmitVote(t *testing.T) {
	svc, out := newTestServices(PollPolicy{})
	poll, _ := svc.Polls.CreatePoll("Q", []string{"A", "B"}, 30)
	out.reset()

	require.NoError(t, svc.Polls.SubmitVote("c1", 1))

	assert.Equal(t, []string{models.EventResultsUpdated}, out.events())
	updated := out.frames[0].payload.(*models.Poll)
	assert.Equal(t, poll.ID, updated.ID)
	assert.Equal(t, 1, updated.Options[1].VoteCount)

	// 歷史紀錄同步更新
	assert.Equal(t, 1, svc.Polls.History()[0].Options[1].VoteCount)
}

func TestPollEngine_SubmitVoteNoOps(t *testing.T) {
	svc, out := newTestServices(PollPolicy{})

	err := svc.Polls.SubmitVote("c1", 0)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Empty(t, out.frames)

	_, _ = svc.Polls.CreatePoll("Q", []string{"A", "B"}, 30)
	out.reset()

	for _, idx := range []int{5, 2, -1} {
		err := svc.Polls.SubmitVote("c1", idx)
		assert.True(t, errors.Is(err, ErrOutOfRange), "index %d", idx)
	}
	assert.Empty(t, out.frames)
	assert.Equal(t, 0, svc.Polls.ActivePoll().TotalVotes())
	assert.Equal(t, 0, svc.Polls.History()[0].TotalVotes())
}

func TestPollEngine_RepeatVotesAcceptedByDefault(t *testing.T) {
	svc, _ := newTestServices(PollPolicy{})
	_, _ = svc.Polls.CreatePoll("Q", []string{"A", "B"}, 30)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Polls.SubmitVote("c1", 0))
	}
	assert.Equal(t, 3, svc.Polls.ActivePoll().Options[0].VoteCount)
}

func TestPollEngine_OneVotePerConnection(t *testing.T) {
	svc, out := newTestServices(PollPolicy{OneVotePerConnection: true})
	_, _ = svc.Polls.CreatePoll("Q", []string{"A", "B"}, 30)
	out.reset()

	require.NoError(t, svc.Polls.SubmitVote("c1", 0))
	err := svc.Polls.SubmitVote("c1", 1)
	assert.True(t, errors.Is(err, ErrVoteRejected))
	require.NoError(t, svc.Polls.SubmitVote("c2", 1))

	assert.Len(t, out.frames, 2)
	assert.Equal(t, 2, svc.Polls.ActivePoll().TotalVotes())

	// 新題目重新開放
	_, _ = svc.Polls.CreatePoll("Q2", []string{"A"}, 30)
	require.NoError(t, svc.Polls.SubmitVote("c1", 0))
}

func TestPollEngine_EnforceDeadline(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("enforced", func(t *testing.T) {
		svc, out := newTestServices(PollPolicy{EnforceDeadline: true})
		svc.Polls.now = func() time.Time { return now }
		_, _ = svc.Polls.CreatePoll("Q", []string{"A"}, 10)
		out.reset()

		svc.Polls.now = func() time.Time { return now.Add(9 * time.Second) }
		require.NoError(t, svc.Polls.SubmitVote("c1", 0))

		svc.Polls.now = func() time.Time { return now.Add(11 * time.Second) }
		err := svc.Polls.SubmitVote("c2", 0)
		assert.True(t, errors.Is(err, ErrVoteRejected))

		assert.Len(t, out.frames, 1)
		assert.Equal(t, 1, svc.Polls.ActivePoll().TotalVotes())
	})

	t.Run("advisory by default", func(t *testing.T) {
		svc, _ := newTestServices(PollPolicy{})
		svc.Polls.now = func() time.Time { return now }
		_, _ = svc.Polls.CreatePoll("Q", []string{"A"}, 10)

		svc.Polls.now = func() time.Time { return now.Add(time.Hour) }
		require.NoError(t, svc.Polls.SubmitVote("c1", 0))
		assert.Equal(t, 1, svc.Polls.ActivePoll().TotalVotes())
	})
}

func TestPollEngine_HistoryKeepsVotesOfSupersededPolls(t *testing.T) {
	svc, out := newTestServices(PollPolicy{})

	_, _ = svc.Polls.CreatePoll("Q1", []string{"A", "B"}, 30)
	_ = svc.Polls.SubmitVote("c1", 0)
	_ = svc.Polls.SubmitVote("c2", 0)

	_, _ = svc.Polls.CreatePoll("Q2", []string{"A", "B"}, 30)
	_ = svc.Polls.SubmitVote("c1", 1)

	_, _ = svc.Polls.CreatePoll("Q3", []string{"A"}, 30)
	out.reset()

	svc.Polls.SendHistory("c9")
	require.Len(t, out.frames, 1)
	f := out.frames[0]
	assert.Equal(t, "send", f.kind)
	assert.Equal(t, "c9", f.connID)
	assert.Equal(t, models.EventHistory, f.event)

	history := f.payload.([]*models.Poll)
	require.Len(t, history, 3)
	assert.Equal(t, "Q1", history[0].Question)
	assert.Equal(t, 2, history[0].Options[0].VoteCount)
	assert.Equal(t, "Q2", history[1].Question)
	assert.Equal(t, 1, history[1].Options[1].VoteCount)
	assert.Equal(t, "Q3", history[2].Question)
	assert.Equal(t, 0, history[2].TotalVotes())
}

func TestPollEngine_HistoryLimitEvictsOldest(t *testing.T) {
	svc, _ := newTestServices(PollPolicy{HistoryLimit: 2})

	for _, q := range []string{"Q1", "Q2", "Q3"} {
		_, err := svc.Polls.CreatePoll(q, []string{"A"}, 10)
		require.NoError(t, err)
	}
	_ = svc.Polls.SubmitVote("c1", 0)

	history := svc.Polls.History()
	require.Len(t, history, 2)
	assert.Equal(t, "Q2", history[0].Question)
	assert.Equal(t, "Q3", history[1].Question)
	assert.Equal(t, 1, history[1].TotalVotes())
}

func TestPollEngine_OnConnectCatchUp(t *testing.T) {
	svc, out := newTestServices(PollPolicy{})

	svc.Polls.OnConnect("early")
	assert.Empty(t, out.frames)

	_, _ = svc.Polls.CreatePoll("Q", []string{"A", "B"}, 30)
	out.reset()

	svc.Polls.OnConnect("late")
	require.Len(t, out.frames, 1)
	f := out.frames[0]
	assert.Equal(t, "send", f.kind)
	assert.Equal(t, "late", f.connID)
	assert.Equal(t, models.EventPollAnnounced, f.event)
	poll := f.payload.(*models.Poll)
	assert.Equal(t, []models.Option{{Text: "A"}, {Text: "B"}}, poll.Options)
}

func TestPollEngine_BroadcastPayloadIsSnapshot(t *testing.T) {
	svc, out := newTestServices(PollPolicy{})
	_, _ = svc.Polls.CreatePoll("Q", []string{"A"}, 30)
	first := out.frames[1].payload.(*models.Poll)

	_ = svc.Polls.SubmitVote("c1", 0)
	assert.Equal(t, 0, first.Options[0].VoteCount)
}

func TestPollEngine_ArchivesSupersededPoll(t *testing.T) {
	archiver := &fakeArchiver{}
	engine := NewPollEngine(NewSession(), &recorder{}, PollPolicy{}, archiver, newNopLogger())

	_, _ = engine.CreatePoll("Q1", []string{"A"}, 10)
	_ = engine.SubmitVote("c1", 0)
	assert.Empty(t, archiver.polls)

	_, _ = engine.CreatePoll("Q2", []string{"A"}, 10)
	require.Len(t, archiver.polls, 1)
	assert.Equal(t, "Q1", archiver.polls[0].Question)
	assert.Equal(t, 1, archiver.polls[0].TotalVotes())

	engine.ArchiveActive()
	require.Len(t, archiver.polls, 2)
	assert.Equal(t, "Q2", archiver.polls[1].Question)
}

// 模擬 Hub：多個 goroutine 同時投票，經由單一迴圈序列化後不應遺失任何一票
func TestPollEngine_ConcurrentVotesThroughSingleLoop(t *testing.T) {
	svc, _ := newTestServices(PollPolicy{})
	_, _ = svc.Polls.CreatePoll("Q", []string{"A", "B", "C"}, 30)

	events := make(chan int)
	done := make(chan struct{})
	accepted := 0
	go func() {
		defer close(done)
		for idx := range events {
			if svc.Polls.SubmitVote("c", idx) == nil {
				accepted++
			}
		}
	}()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				events <- (g + i) % 4 // 索引 3 越界
			}
		}(g)
	}
	wg.Wait()
	close(events)
	<-done

	assert.Equal(t, accepted, svc.Polls.ActivePoll().TotalVotes())
	assert.Equal(t, accepted, svc.Polls.History()[0].TotalVotes())
	assert.Equal(t, 300, accepted)
}

package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"live_poll/internal/models"
	"live_poll/internal/repository"
	repomodels "live_poll/internal/repository/models"
)

// ArchiveWorker 在背景把題目寫入資料庫，不阻塞事件迴圈
type ArchiveWorker struct {
	repo   repository.PollArchiveRepository
	queue  chan *models.Poll
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewArchiveWorker 建立並啟動背景寫入
func NewArchiveWorker(repo repository.PollArchiveRepository, queueSize int, logger *zap.Logger) *ArchiveWorker {
	w := &ArchiveWorker{
		repo:   repo,
		queue:  make(chan *models.Poll, queueSize),
		logger: logger,
		now:    time.Now,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Archive 排入佇列，佇列已滿或已關閉時丟棄
func (w *ArchiveWorker) Archive(poll *models.Poll) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	select {
	case w.queue <- poll:
	default:
		w.logger.Warn("archive queue full, dropping poll", zap.Int64("poll_id", poll.ID))
	}
}

// Close 停止接收並等待佇列寫完
func (w *ArchiveWorker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *ArchiveWorker) run() {
	defer w.wg.Done()
	for poll := range w.queue {
		if err := w.repo.Save(toArchivedPoll(poll, w.now())); err != nil {
			w.logger.Error("archive poll failed", zap.Int64("poll_id", poll.ID), zap.Error(err))
			continue
		}
		w.logger.Debug("poll archived", zap.Int64("poll_id", poll.ID), zap.Int("votes", poll.TotalVotes()))
	}
}

func toArchivedPoll(poll *models.Poll, archivedAt time.Time) *repomodels.ArchivedPoll {
	a := &repomodels.ArchivedPoll{
		PollID:          poll.ID,
		Question:        poll.Question,
		DurationSeconds: poll.DurationSeconds,
		TotalVotes:      poll.TotalVotes(),
		PollCreatedAt:   poll.CreatedAt,
		ArchivedAt:      archivedAt,
		Options:         make([]repomodels.ArchivedOption, len(poll.Options)),
	}
	for i, o := range poll.Options {
		a.Options[i] = repomodels.ArchivedOption{Position: i, Text: o.Text, VoteCount: o.VoteCount}
	}
	return a
}

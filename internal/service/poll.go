package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"live_poll/internal/models"
)

// PollPolicy 投票規則。預設值是最寬鬆的：逾時與重複投票都會被計入。
type PollPolicy struct {
	DefaultDuration      int  // 未指定秒數時使用
	EnforceDeadline      bool // 超過 CreatedAt+DurationSeconds 的票直接丟棄
	OneVotePerConnection bool // 每個連接每題只計一票
	HistoryLimit         int  // 歷史題目上限，0 表示不限制，超過時先淘汰最舊的
}

// PollArchiver 接收已被取代的題目，實作不得阻塞
type PollArchiver interface {
	Archive(poll *models.Poll)
}

// PollEngine 管理目前題目與歷史題目
type PollEngine struct {
	session  *Session
	out      Outbound
	policy   PollPolicy
	archiver PollArchiver
	logger   *zap.Logger
	now      func() time.Time
}

// NewPollEngine 建立 PollEngine，archiver 可以是 nil
func NewPollEngine(session *Session, out Outbound, policy PollPolicy, archiver PollArchiver, logger *zap.Logger) *PollEngine {
	if policy.DefaultDuration <= 0 {
		policy.DefaultDuration = 15
	}
	return &PollEngine{
		session:  session,
		out:      out,
		policy:   policy,
		archiver: archiver,
		logger:   logger,
		now:      time.Now,
	}
}

// CreatePoll 建立新題目並取代目前題目。
// 成功後依序廣播 pollAnnounced（客戶端重設作答狀態）與 resultsUpdated（顯示全零結果）。
func (e *PollEngine) CreatePoll(question string, options []string, durationSeconds int) (*models.Poll, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is blank", ErrInvalidPoll)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: no options", ErrInvalidPoll)
	}
	if durationSeconds <= 0 {
		durationSeconds = e.policy.DefaultDuration
	}

	now := e.now()
	poll := &models.Poll{
		ID:              e.session.nextPollID(now),
		Question:        question,
		Options:         make([]models.Option, len(options)),
		DurationSeconds: durationSeconds,
		CreatedAt:       now,
	}
	for i, text := range options {
		poll.Options[i] = models.Option{Text: text}
	}

	previous := e.session.active
	e.session.active = poll
	e.session.voted = make(map[string]struct{})
	e.appendHistory(poll.Clone())

	if previous != nil && e.archiver != nil {
		e.archiver.Archive(previous.Clone())
	}

	e.logger.Info("poll created",
		zap.Int64("poll_id", poll.ID),
		zap.String("question", question),
		zap.Int("options", len(options)),
		zap.Int("duration", durationSeconds))

	e.out.Broadcast(models.EventPollAnnounced, poll.Clone())
	e.out.Broadcast(models.EventResultsUpdated, poll.Clone())
	return poll.Clone(), nil
}

func (e *PollEngine) appendHistory(snapshot *models.Poll) {
	h := append(e.session.history, snapshot)
	if limit := e.policy.HistoryLimit; limit > 0 && len(h) > limit {
		evicted := len(h) - limit
		trimmed := make([]*models.Poll, limit)
		copy(trimmed, h[evicted:])
		h = trimmed
		e.logger.Debug("history trimmed", zap.Int("evicted", evicted))
	}
	e.session.history = h
}

// SubmitVote 為目前題目的指定選項加一票。
// 沒有題目、索引越界或違反投票規則時不做任何事，回傳的錯誤只供記錄。
func (e *PollEngine) SubmitVote(connID string, optionIndex int) error {
	poll := e.session.active
	if poll == nil {
		return fmt.Errorf("%w: no active poll", ErrOutOfRange)
	}
	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return fmt.Errorf("%w: option %d of %d", ErrOutOfRange, optionIndex, len(poll.Options))
	}
	if e.policy.EnforceDeadline && e.now().After(poll.Deadline()) {
		return fmt.Errorf("%w: poll %d closed at %s", ErrVoteRejected, poll.ID, poll.Deadline().Format(time.RFC3339))
	}
	if e.policy.OneVotePerConnection {
		if _, ok := e.session.voted[connID]; ok {
			return fmt.Errorf("%w: %s already voted on poll %d", ErrVoteRejected, connID, poll.ID)
		}
		e.session.voted[connID] = struct{}{}
	}

	poll.Options[optionIndex].VoteCount++

	// 歷史紀錄與目前題目必須保持一致
	if entry := e.session.historyEntry(poll.ID); entry != nil {
		copy(entry.Options, poll.Options)
	}

	e.out.Broadcast(models.EventResultsUpdated, poll.Clone())
	return nil
}

// SendHistory 只傳給請求者
func (e *PollEngine) SendHistory(connID string) {
	e.out.Send(connID, models.EventHistory, e.History())
}

// OnConnect 新連接若遇到進行中的題目，立即補送
func (e *PollEngine) OnConnect(connID string) {
	if e.session.active == nil {
		return
	}
	e.out.Send(connID, models.EventPollAnnounced, e.session.active.Clone())
}

// ActivePoll 目前題目的副本，沒有時回傳 nil
func (e *PollEngine) ActivePoll() *models.Poll {
	return e.session.active.Clone()
}

// History 歷史題目的副本，最新的在最後
func (e *PollEngine) History() []*models.Poll {
	out := make([]*models.Poll, len(e.session.history))
	for i, p := range e.session.history {
		out[i] = p.Clone()
	}
	return out
}

// ArchiveActive 把目前題目交給 archiver，用於關閉服務前
func (e *PollEngine) ArchiveActive() {
	if e.session.active == nil || e.archiver == nil {
		return
	}
	e.archiver.Archive(e.session.active.Clone())
}

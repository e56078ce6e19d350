package service

import (
	"time"

	"live_poll/internal/models"
)

// Outbound 送出事件的介面，由 Hub 實作。只能在事件迴圈內呼叫。
type Outbound interface {
	Broadcast(event string, payload any)
	Send(connID, event string, payload any)
	Disconnect(connID string)
}

// Session 一個課堂的全部狀態：名單、目前題目與歷史題目。
// 不做任何鎖定，所有存取都必須在同一個事件迴圈中執行。
type Session struct {
	participants []*models.Participant // 依加入順序
	active       *models.Poll
	history      []*models.Poll
	voted        map[string]struct{} // 目前題目已投過票的連接
	lastPollID   int64
}

// NewSession 建立空的 Session
func NewSession() *Session {
	return &Session{
		participants: make([]*models.Participant, 0),
		history:      make([]*models.Poll, 0),
		voted:        make(map[string]struct{}),
	}
}

func (s *Session) findParticipant(connID string) (int, *models.Participant) {
	for i, p := range s.participants {
		if p.ID == connID {
			return i, p
		}
	}
	return -1, nil
}

func (s *Session) removeParticipant(connID string) *models.Participant {
	i, p := s.findParticipant(connID)
	if p == nil {
		return nil
	}
	s.participants = append(s.participants[:i], s.participants[i+1:]...)
	return p
}

// nextPollID 以毫秒時間戳為基礎，保證嚴格遞增
func (s *Session) nextPollID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= s.lastPollID {
		id = s.lastPollID + 1
	}
	s.lastPollID = id
	return id
}

func (s *Session) historyEntry(pollID int64) *models.Poll {
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].ID == pollID {
			return s.history[i]
		}
	}
	return nil
}

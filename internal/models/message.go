package models

import (
	"encoding/json"
	"strings"
	"time"
)

// 客戶端送來的事件
const (
	EventJoin        = "join"
	EventCreatePoll  = "createPoll"
	EventAskQuestion = "askQuestion"
	EventSubmitVote  = "submitVote"
	EventGetHistory  = "getHistory"
	EventChatMessage = "chatMessage"
	EventKick        = "kick"
)

// 伺服器送出的事件
const (
	EventPollAnnounced  = "pollAnnounced"
	EventResultsUpdated = "resultsUpdated"
	EventRoster         = "roster"
	EventHistory        = "history"
	EventRemoved        = "removed"
	// EventChatMessage 雙向共用
)

// Envelope 代表一個 WebSocket 訊框
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundFrame 送往客戶端的訊框
type OutboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ChatMessage 一則聊天訊息，伺服器只轉發不保存
type ChatMessage struct {
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// JoinPayload join 事件內容
type JoinPayload struct {
	DisplayName string `json:"displayName"`
	Name        string `json:"name"` // 舊版客戶端使用
	Role        string `json:"role"`
}

// ResolvedName 取得顯示名稱
func (p JoinPayload) ResolvedName() string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	return strings.TrimSpace(p.Name)
}

// CreatePollPayload createPoll 事件內容
type CreatePollPayload struct {
	Question string `json:"question"`
	Options  []struct {
		Text string `json:"text"`
	} `json:"options"`
	DurationSeconds int `json:"durationSeconds"`
	Duration        int `json:"duration"` // 舊版客戶端使用
}

// OptionTexts 取出選項文字
func (p CreatePollPayload) OptionTexts() []string {
	texts := make([]string, 0, len(p.Options))
	for _, o := range p.Options {
		texts = append(texts, o.Text)
	}
	return texts
}

// ResolvedDuration 取得秒數，未提供時回傳 0
func (p CreatePollPayload) ResolvedDuration() int {
	if p.DurationSeconds > 0 {
		return p.DurationSeconds
	}
	return p.Duration
}

// AskQuestionPayload askQuestion 事件內容，選項為純文字
type AskQuestionPayload struct {
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Duration int      `json:"duration"`
}

// ChatPayload chatMessage 事件內容
type ChatPayload struct {
	Text string `json:"text"`
}

package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"live_poll/internal/models"
)

// EventHandler Hub 事件迴圈的回呼，三個方法都在同一個 goroutine 中依序執行
type EventHandler interface {
	Connect(connID string)
	Disconnect(connID string)
	Dispatch(connID string, env models.Envelope)
}

// Dispatcher 依事件名稱把訊框分派給 Registry、PollEngine 或 ChatRelay
type Dispatcher struct {
	registry *Registry
	polls    *PollEngine
	chat     *ChatRelay
	logger   *zap.Logger
}

// NewDispatcher 建立 Dispatcher
func NewDispatcher(registry *Registry, polls *PollEngine, chat *ChatRelay, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, polls: polls, chat: chat, logger: logger}
}

// Connect 新連接：補送進行中的題目
func (d *Dispatcher) Connect(connID string) {
	d.polls.OnConnect(connID)
}

// Disconnect 連接中斷：從名單移除。
// 未加入或已被踢出的連接不在名單中，不需要再廣播名單。
func (d *Dispatcher) Disconnect(connID string) {
	if d.registry.Resolve(connID) == nil {
		d.logger.Debug("client disconnected", zap.String("conn_id", connID))
		return
	}
	d.registry.Leave(connID)
}

// Dispatch 處理一個事件。所有錯誤都只記錄，不回應發送者。
func (d *Dispatcher) Dispatch(connID string, env models.Envelope) {
	if err := d.dispatch(connID, env); err != nil {
		d.logDropped(connID, env.Event, err)
	}
}

func (d *Dispatcher) dispatch(connID string, env models.Envelope) error {
	switch env.Event {
	case models.EventJoin:
		var p models.JoinPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		d.registry.Join(connID, p.ResolvedName(), models.ParseRole(p.Role))
		return nil

	case models.EventCreatePoll:
		var p models.CreatePollPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		_, err := d.polls.CreatePoll(p.Question, p.OptionTexts(), p.ResolvedDuration())
		return err

	case models.EventAskQuestion:
		var p models.AskQuestionPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		_, err := d.polls.CreatePoll(p.Text, p.Options, p.Duration)
		return err

	case models.EventSubmitVote:
		var index int
		if err := decode(env.Data, &index); err != nil {
			return err
		}
		return d.polls.SubmitVote(connID, index)

	case models.EventGetHistory:
		d.polls.SendHistory(connID)
		return nil

	case models.EventChatMessage:
		var p models.ChatPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		_, err := d.chat.PostMessage(connID, p.Text)
		return err

	case models.EventKick:
		var targetID string
		if err := decode(env.Data, &targetID); err != nil {
			return err
		}
		return d.chat.Kick(connID, targetID)

	default:
		return fmt.Errorf("unknown event %q", env.Event)
	}
}

func (d *Dispatcher) logDropped(connID, event string, err error) {
	fields := []zap.Field{zap.String("conn_id", connID), zap.String("event", event), zap.Error(err)}
	switch {
	case errors.Is(err, ErrInvalidPoll):
		d.logger.Warn("poll rejected", fields...)
	case errors.Is(err, ErrUnresolved):
		d.logger.Info("event from unknown sender dropped", fields...)
	default:
		d.logger.Debug("event dropped", fields...)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}

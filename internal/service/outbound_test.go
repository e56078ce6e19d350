package service

import (
	"go.uber.org/zap"

	"live_poll/internal/models"
)

type sentFrame struct {
	kind    string // broadcast / send / disconnect
	connID  string
	event   string
	payload any
}

// recorder 記錄所有送出的事件
type recorder struct {
	frames []sentFrame
}

func (r *recorder) Broadcast(event string, payload any) {
	r.frames = append(r.frames, sentFrame{kind: "broadcast", event: event, payload: payload})
}

func (r *recorder) Send(connID, event string, payload any) {
	r.frames = append(r.frames, sentFrame{kind: "send", connID: connID, event: event, payload: payload})
}

func (r *recorder) Disconnect(connID string) {
	r.frames = append(r.frames, sentFrame{kind: "disconnect", connID: connID})
}

func (r *recorder) reset() {
	r.frames = nil
}

func (r *recorder) events() []string {
	out := make([]string, 0, len(r.frames))
	for _, f := range r.frames {
		if f.kind == "disconnect" {
			out = append(out, "disconnect:"+f.connID)
			continue
		}
		out = append(out, f.event)
	}
	return out
}

func (r *recorder) last(event string) (sentFrame, bool) {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].event == event {
			return r.frames[i], true
		}
	}
	return sentFrame{}, false
}

func (r *recorder) lastRoster() []models.RosterEntry {
	f, ok := r.last(models.EventRoster)
	if !ok {
		return nil
	}
	return f.payload.([]models.RosterEntry)
}

type fakeArchiver struct {
	polls []*models.Poll
}

func (a *fakeArchiver) Archive(p *models.Poll) {
	a.polls = append(a.polls, p)
}

func newTestServices(policy PollPolicy) (*Services, *recorder) {
	out := &recorder{}
	return NewServices(out, policy, nil, newNopLogger()), out
}

func newNopLogger() *zap.Logger {
	return zap.NewNop()
}

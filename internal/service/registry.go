package service

import (
	"go.uber.org/zap"

	"live_poll/internal/models"
)

// Registry 管理已加入的參與者
type Registry struct {
	session *Session
	out     Outbound
	logger  *zap.Logger
}

// NewRegistry 建立 Registry
func NewRegistry(session *Session, out Outbound, logger *zap.Logger) *Registry {
	return &Registry{session: session, out: out, logger: logger}
}

// Join 加入或重新加入。同一連接 ID 的舊資料會先被移除，然後廣播名單。
func (r *Registry) Join(connID, name string, role models.Role) *models.Participant {
	r.session.removeParticipant(connID)

	p := &models.Participant{ID: connID, Name: name, Role: role}
	r.session.participants = append(r.session.participants, p)

	r.logger.Info("participant joined",
		zap.String("conn_id", connID),
		zap.String("name", name),
		zap.String("role", string(role)),
		zap.Int("total", len(r.session.participants)))

	r.broadcastRoster()
	return p
}

// Leave 移除參與者並廣播名單。未加入的連接回傳 nil，但仍會廣播。
func (r *Registry) Leave(connID string) *models.Participant {
	p := r.session.removeParticipant(connID)
	if p != nil {
		r.logger.Info("participant left",
			zap.String("conn_id", connID),
			zap.String("name", p.Name),
			zap.String("role", string(p.Role)))
	}
	r.broadcastRoster()
	return p
}

// Resolve 查詢連接對應的參與者
func (r *Registry) Resolve(connID string) *models.Participant {
	_, p := r.session.findParticipant(connID)
	return p
}

// RosterView 依加入順序列出所有學生，主持人不會出現在名單上
func (r *Registry) RosterView() []models.RosterEntry {
	roster := make([]models.RosterEntry, 0, len(r.session.participants))
	for _, p := range r.session.participants {
		if p.Role == models.RoleTeacher {
			continue
		}
		roster = append(roster, models.RosterEntry{ID: p.ID, Name: p.Name})
	}
	return roster
}

// Count 目前已加入的人數，含主持人
func (r *Registry) Count() int {
	return len(r.session.participants)
}

func (r *Registry) broadcastRoster() {
	r.out.Broadcast(models.EventRoster, r.RosterView())
}

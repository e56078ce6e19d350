package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"live_poll/internal/models"
)

// ChatRelay 轉發聊天訊息並處理踢人
type ChatRelay struct {
	registry *Registry
	out      Outbound
	logger   *zap.Logger
	now      func() time.Time
}

// NewChatRelay 建立 ChatRelay
func NewChatRelay(registry *Registry, out Outbound, logger *zap.Logger) *ChatRelay {
	return &ChatRelay{registry: registry, out: out, logger: logger, now: time.Now}
}

// PostMessage 廣播訊息給所有連接，包含發送者本人
func (c *ChatRelay) PostMessage(connID, text string) (*models.ChatMessage, error) {
	sender := c.registry.Resolve(connID)
	if sender == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnresolved, connID)
	}

	msg := &models.ChatMessage{
		Name:      sender.Name,
		Role:      sender.Role,
		Text:      strings.TrimSpace(text),
		Timestamp: c.now().UTC(),
	}
	c.out.Broadcast(models.EventChatMessage, msg)
	return msg, nil
}

// Kick 只有主持人可以移除學生。
// 先通知被踢者，再從名單移除，最後關閉連接。
func (c *ChatRelay) Kick(requesterID, targetID string) error {
	requester := c.registry.Resolve(requesterID)
	if requester == nil || requester.Role != models.RoleTeacher {
		return fmt.Errorf("%w: %s may not kick", ErrUnauthorized, requesterID)
	}
	target := c.registry.Resolve(targetID)
	if target == nil || target.Role != models.RoleStudent {
		return fmt.Errorf("%w: %s is not a student", ErrUnauthorized, targetID)
	}

	c.out.Send(targetID, models.EventRemoved, nil)
	c.registry.Leave(targetID)
	c.out.Disconnect(targetID)

	c.logger.Info("participant kicked",
		zap.String("conn_id", targetID),
		zap.String("name", target.Name),
		zap.String("by", requester.Name))
	return nil
}

package service

import "go.uber.org/zap"

// Services 一個 Session 及其三個元件
type Services struct {
	Session    *Session
	Registry   *Registry
	Polls      *PollEngine
	Chat       *ChatRelay
	Dispatcher *Dispatcher
}

// NewServices 組裝元件。archiver 可以是 nil。
func NewServices(out Outbound, policy PollPolicy, archiver PollArchiver, logger *zap.Logger) *Services {
	session := NewSession()
	registry := NewRegistry(session, out, logger.Named("registry"))
	polls := NewPollEngine(session, out, policy, archiver, logger.Named("poll"))
	chat := NewChatRelay(registry, out, logger.Named("chat"))

	return &Services{
		Session:    session,
		Registry:   registry,
		Polls:      polls,
		Chat:       chat,
		Dispatcher: NewDispatcher(registry, polls, chat, logger.Named("dispatch")),
	}
}

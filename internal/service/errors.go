package service

import "errors"

// 被拒絕的操作都不會改動狀態，也不會回報給發送者，只寫入日誌
var (
	ErrInvalidPoll  = errors.New("invalid poll")
	ErrUnresolved   = errors.New("connection has not joined")
	ErrOutOfRange   = errors.New("vote out of range")
	ErrVoteRejected = errors.New("vote rejected by policy")
	ErrUnauthorized = errors.New("unauthorized")
	ErrHubStopped   = errors.New("hub stopped")
)

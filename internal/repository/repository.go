package repository

import "live_poll/internal/storage"

type Repositories struct {
	PollArchive PollArchiveRepository
}

func NewRepositories(db *storage.Database) *Repositories {
	return &Repositories{
		PollArchive: NewPollArchiveRepository(db),
	}
}

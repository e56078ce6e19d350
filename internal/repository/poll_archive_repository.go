package repository

import (
	"errors"

	"gorm.io/gorm"

	"live_poll/internal/repository/models"
	"live_poll/internal/storage"
)

type PollArchiveRepository interface {
	// Save 寫入一筆歸檔；同一 PollID 已存在時以新資料取代
	Save(poll *models.ArchivedPoll) error
	FindByPollID(pollID int64) (*models.ArchivedPoll, error)
	FindRecent(limit int) ([]models.ArchivedPoll, error) // 最新的在前
}

type pollArchiveRepository struct {
	db *storage.Database
}

func NewPollArchiveRepository(db *storage.Database) PollArchiveRepository {
	return &pollArchiveRepository{db: db}
}

func (r *pollArchiveRepository) Save(poll *models.ArchivedPoll) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.ArchivedPoll
		err := tx.Where("poll_id = ?", poll.PollID).First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			if err := tx.Unscoped().Where("archived_poll_id = ?", existing.ID).Delete(&models.ArchivedOption{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Delete(&existing).Error; err != nil {
				return err
			}
		}
		return tx.Create(poll).Error
	})
}

func (r *pollArchiveRepository) FindByPollID(pollID int64) (*models.ArchivedPoll, error) {
	var poll models.ArchivedPoll
	err := r.db.Preload("Options", orderByPosition).Where("poll_id = ?", pollID).First(&poll).Error
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

// FindRecent 依題目 ID 由新到舊列出，limit <= 0 表示全部
func (r *pollArchiveRepository) FindRecent(limit int) ([]models.ArchivedPoll, error) {
	var polls []models.ArchivedPoll
	q := r.db.Preload("Options", orderByPosition).Order("poll_id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&polls).Error
	return polls, err
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

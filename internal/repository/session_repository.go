package repository

import (
	"studyforge_backend/internal/model"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Create(s *model.StudySession) error {
	return r.DB.Create(s).Error
}

func (r *SessionRepository) FindByOwnerAndID(ownerID uint, id string) (*model.StudySession, error) {
	var s model.StudySession
	err := r.DB.Where("owner_id = ? AND id = ?", ownerID, id).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) ListByOwner(ownerID uint, page, limit int) ([]model.StudySession, int64, error) {
	var ss []model.StudySession
	var total int64

	query := r.DB.Model(&model.StudySession{}).Where("owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&ss).Error
	return ss, total, err
}

func (r *SessionRepository) Delete(ownerID uint, id string) error {
	return r.DB.Where("owner_id = ?", ownerID).Delete(&model.StudySession{}, "id = ?", id).Error
}

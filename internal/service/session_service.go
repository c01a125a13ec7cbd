package service

import (
	"encoding/json"
	"studyforge_backend/internal/model"
	"studyforge_backend/internal/repository"
	"studyforge_backend/internal/util"
	"studyforge_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionService 学习会话的持久化与重载
type SessionService struct {
	Repo *repository.SessionRepository
}

func NewSessionService(repo *repository.SessionRepository) *SessionService {
	return &SessionService{Repo: repo}
}

type SessionMeta struct {
	OwnerID        uint
	DocumentName   string
	StoredObject   string
	SourceLanguage string
	TargetLanguage string
}

// Persist 将产物包存为命名会话。调用方视角为 fire-and-forget：
// 失败只记录日志，不回滚已交付的产物包。
func (s *SessionService) Persist(bundle *model.ArtifactBundle, meta SessionMeta) (*model.StudySession, error) {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return nil, err
	}

	rec := &model.StudySession{
		OwnerID:        meta.OwnerID,
		DocumentName:   meta.DocumentName,
		StoredObject:   meta.StoredObject,
		SourceLanguage: meta.SourceLanguage,
		TargetLanguage: meta.TargetLanguage,
		CreditsCharged: bundle.CreditsCharged,
		Payload:        payload,
	}
	rec.ID = bundle.SessionID
	if rec.ID == "" {
		rec.ID = model.GenerateUUID()
	}

	if err := s.Repo.Create(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Reload 从历史记录重载产物包，新旧字段名统一映射到规范形态
func (s *SessionService) Reload(ownerID uint, sessionID string) (*model.ArtifactBundle, error) {
	rec, err := s.Repo.FindByOwnerAndID(ownerID, sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}

	bundle, dropped, err := model.DecodeBundle(rec.Payload)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		logger.Log.Warn("dropped corrupt questions on session reload",
			zap.String("sessionId", sessionID),
			zap.Int("dropped", dropped))
	}

	bundle.SessionID = rec.ID
	if bundle.CreditsCharged == 0 {
		bundle.CreditsCharged = rec.CreditsCharged
	}
	return bundle, nil
}

func (s *SessionService) ListForOwner(ownerID uint, page, limit int) ([]model.StudySession, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Repo.ListByOwner(ownerID, page, limit)
}

// DocumentContext 会话范围的文档上下文，派生内容生成均以此为键
func (s *SessionService) DocumentContext(ownerID uint, sessionID string) (string, error) {
	bundle, err := s.Reload(ownerID, sessionID)
	if err != nil {
		return "", err
	}
	if bundle.ExtendedSummary != "" {
		return bundle.ExtendedSummary, nil
	}
	return bundle.ShortSummary, nil
}

func (s *SessionService) Delete(ownerID uint, sessionID string) error {
	return s.Repo.Delete(ownerID, sessionID)
}

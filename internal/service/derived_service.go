package service

import (
	"context"
	"encoding/json"
	"studyforge_backend/internal/model"
	"studyforge_backend/internal/util"
	"studyforge_backend/pkg/logger"

	"go.uber.org/zap"
)

// 派生内容种类，三种生成器共用同一份"发上下文、收结构化内容"契约
const (
	KindStudyPlan         = "study-plan"
	KindProbableQuestions = "probable-questions"
	KindCustomExam        = "custom-exam"
)

// DerivedContentService 会话范围的追加生成：学习计划 / 高频考题 / 自定义测验。
// 各生成器相互独立，失败只落在自己的错误槽位，不外溢到测验引擎或处理管线。
type DerivedContentService struct {
	Generation *GenerationService
	Sessions   *SessionService
}

func NewDerivedContentService(generation *GenerationService, sessions *SessionService) *DerivedContentService {
	return &DerivedContentService{Generation: generation, Sessions: sessions}
}

type StudyPlanDay struct {
	Day        int      `json:"day"`
	Title      string   `json:"title"`
	Activities []string `json:"activities"`
}

type StudyPlanResult struct {
	Days []StudyPlanDay `json:"days"`
}

type ProbableQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type ProbableQuestionsResult struct {
	Questions []ProbableQuestion `json:"questions"`
}

// CustomExamRequest 自定义测验参数，亦供测验引擎的动态出题复用
type CustomExamRequest struct {
	QuestionCount int    `json:"questionCount" binding:"required,min=1,max=50"`
	Difficulty    string `json:"difficulty"`
	QuestionType  string `json:"questionType"`
}

func (s *DerivedContentService) generate(ctx context.Context, kind string, ownerID uint, sessionID string, options map[string]interface{}) ([]byte, error) {
	docContext, err := s.Sessions.DocumentContext(ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"documentContext": docContext,
	}
	for k, v := range options {
		payload[k] = v
	}

	raw, err := s.Generation.GenerateContent(ctx, kind, payload)
	if err != nil {
		return nil, &util.GenerationError{Kind: kind, Err: err}
	}
	return raw, nil
}

func (s *DerivedContentService) StudyPlan(ctx context.Context, ownerID uint, sessionID string, days int) (*StudyPlanResult, error) {
	if days <= 0 {
		days = 7
	}

	raw, err := s.generate(ctx, KindStudyPlan, ownerID, sessionID, map[string]interface{}{
		"days": days,
	})
	if err != nil {
		return nil, err
	}

	var result StudyPlanResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &util.GenerationError{Kind: KindStudyPlan, Err: err}
	}
	if result.Days == nil {
		result.Days = []StudyPlanDay{}
	}
	return &result, nil
}

func (s *DerivedContentService) ProbableQuestions(ctx context.Context, ownerID uint, sessionID string, count int) (*ProbableQuestionsResult, error) {
	if count <= 0 {
		count = 10
	}

	raw, err := s.generate(ctx, KindProbableQuestions, ownerID, sessionID, map[string]interface{}{
		"count": count,
	})
	if err != nil {
		return nil, err
	}

	var result ProbableQuestionsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &util.GenerationError{Kind: KindProbableQuestions, Err: err}
	}
	if result.Questions == nil {
		result.Questions = []ProbableQuestion{}
	}
	return &result, nil
}

// CustomExam 生成符合题目模型的题集，脏题在解码时丢弃
func (s *DerivedContentService) CustomExam(ctx context.Context, ownerID uint, sessionID string, req CustomExamRequest) ([]model.Question, error) {
	raw, err := s.generate(ctx, KindCustomExam, ownerID, sessionID, map[string]interface{}{
		"questionCount": req.QuestionCount,
		"difficulty":    req.Difficulty,
		"questionType":  req.QuestionType,
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		Questions json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &util.GenerationError{Kind: KindCustomExam, Err: err}
	}

	questions, dropped := model.DecodeQuestions(body.Questions)
	if dropped > 0 {
		logger.Log.Warn("dropped corrupt questions from custom exam",
			zap.String("sessionId", sessionID),
			zap.Int("dropped", dropped))
	}
	return questions, nil
}

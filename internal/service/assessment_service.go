package service

import (
	"context"
	"fmt"
	"sync"

	"studyforge_backend/internal/model"
	"studyforge_backend/internal/util"
	"studyforge_backend/pkg/logger"

	"go.uber.org/zap"
)

type AssessmentStatus string

const (
	AssessmentUnstarted  AssessmentStatus = "unstarted"
	AssessmentInProgress AssessmentStatus = "in_progress"
	AssessmentCompleted  AssessmentStatus = "completed"
)

// Answer 单题作答记录：选择题记选项下标，开放题记自由文本
type Answer struct {
	Answered      bool   `json:"answered"`
	SelectedIndex int    `json:"selectedIndex"`
	FreeText      string `json:"freeText"`
}

// attempt 一次测验/考试的状态机。题目列表在一次作答期间不可变，
// 动态出题只能整体替换题集。
type attempt struct {
	mu         sync.Mutex
	status     AssessmentStatus
	questions  []model.Question
	answers    []Answer
	cursor     int
	revealed   bool
	score      int
	generating bool
}

func newAttempt() *attempt {
	return &attempt{status: AssessmentUnstarted}
}

// revealFor 到达某题时的解析可见性：选择题答过即显示解析，
// 开放题答过且有参考答案才显示
func (a *attempt) revealFor(idx int) bool {
	if !a.answers[idx].Answered {
		return false
	}
	q := a.questions[idx]
	if q.Kind == model.OpenEnded {
		return q.ModelAnswer != ""
	}
	return true
}

func (a *attempt) load(questions []model.Question) error {
	if a.status != AssessmentUnstarted {
		return util.ErrInvalidAssessmentState
	}
	if len(questions) == 0 {
		return util.ErrNoAssessableContent
	}

	a.questions = questions
	a.answers = make([]Answer, len(questions))
	a.cursor = 0
	a.revealed = false
	a.score = 0
	a.status = AssessmentInProgress
	return nil
}

func (a *attempt) selectAnswer(selectedIndex *int, freeText string) error {
	if a.status != AssessmentInProgress {
		return util.ErrInvalidAssessmentState
	}
	if a.generating {
		return util.ErrGenerationInFlight
	}

	q := a.questions[a.cursor]
	switch q.Kind {
	case model.SingleChoice:
		if selectedIndex == nil {
			return fmt.Errorf("selectedIndex is required for single choice questions")
		}
		if *selectedIndex < 0 || *selectedIndex >= len(q.Options) {
			return fmt.Errorf("selectedIndex %d out of range", *selectedIndex)
		}
		a.answers[a.cursor] = Answer{Answered: true, SelectedIndex: *selectedIndex}
		// 选择即揭示解析，没有单独的提交步骤
		a.revealed = true
	case model.OpenEnded:
		a.answers[a.cursor] = Answer{Answered: true, FreeText: freeText}
		a.revealed = q.ModelAnswer != ""
	}
	return nil
}

// next 前进一题；已在末题时改为结算
func (a *attempt) next() error {
	if a.status != AssessmentInProgress {
		return util.ErrInvalidAssessmentState
	}
	if a.generating {
		return util.ErrGenerationInFlight
	}

	if a.cursor >= len(a.questions)-1 {
		return a.finish()
	}
	a.cursor++
	a.revealed = a.revealFor(a.cursor)
	return nil
}

func (a *attempt) previous() error {
	if a.status != AssessmentInProgress {
		return util.ErrInvalidAssessmentState
	}
	if a.generating {
		return util.ErrGenerationInFlight
	}

	if a.cursor > 0 {
		a.cursor--
		a.revealed = a.revealFor(a.cursor)
	}
	return nil
}

// finish 结算：只统计选择题的自动得分，开放题留待人工评阅
func (a *attempt) finish() error {
	if a.status != AssessmentInProgress {
		return util.ErrInvalidAssessmentState
	}

	score := 0
	for i, q := range a.questions {
		if q.Kind != model.SingleChoice {
			continue
		}
		if a.answers[i].Answered && a.answers[i].SelectedIndex == q.CorrectIndex {
			score++
		}
	}
	a.score = score
	a.status = AssessmentCompleted
	return nil
}

// restart 重新开始：可携带新题集（动态出题重新生成时），不带则沿用原题集
func (a *attempt) restart(newQuestions []model.Question) error {
	if a.status == AssessmentUnstarted {
		return util.ErrInvalidAssessmentState
	}
	if a.generating {
		return util.ErrGenerationInFlight
	}

	if newQuestions != nil {
		a.questions = newQuestions
	}
	if len(a.questions) == 0 {
		a.status = AssessmentUnstarted
		a.answers = nil
		a.cursor = 0
		a.revealed = false
		a.score = 0
		return util.ErrNoAssessableContent
	}

	a.answers = make([]Answer, len(a.questions))
	a.cursor = 0
	a.revealed = false
	a.score = 0
	a.status = AssessmentInProgress
	return nil
}

// replaceQuestions 动态出题完成后的整体替换
func (a *attempt) replaceQuestions(questions []model.Question) error {
	if len(questions) == 0 {
		return util.ErrNoAssessableContent
	}
	a.questions = questions
	a.answers = make([]Answer, len(questions))
	a.cursor = 0
	a.revealed = false
	a.score = 0
	a.status = AssessmentInProgress
	return nil
}

// QuestionView 当前题目的对外视图，解析相关字段仅在揭示后携带
type QuestionView struct {
	Kind         model.QuestionKind `json:"kind"`
	Prompt       string             `json:"prompt"`
	Options      []string           `json:"options,omitempty"`
	CorrectIndex *int               `json:"correctIndex,omitempty"`
	Explanation  string             `json:"explanation,omitempty"`
	ModelAnswer  string             `json:"modelAnswer,omitempty"`
}

// AttemptView 测验状态快照
type AttemptView struct {
	Status        AssessmentStatus `json:"status"`
	Total         int              `json:"total"`
	ScorableTotal int              `json:"scorableTotal"`
	Cursor        int              `json:"cursor"`
	Revealed      bool             `json:"revealed"`
	Generating    bool             `json:"generating"`
	Score         *int             `json:"score,omitempty"`
	Question      *QuestionView    `json:"question,omitempty"`
	Answer        *Answer          `json:"answer,omitempty"`
}

func (a *attempt) view() AttemptView {
	v := AttemptView{
		Status:     a.status,
		Total:      len(a.questions),
		Cursor:     a.cursor,
		Revealed:   a.revealed,
		Generating: a.generating,
	}
	for _, q := range a.questions {
		if q.Kind == model.SingleChoice {
			v.ScorableTotal++
		}
	}
	if a.status == AssessmentCompleted {
		score := a.score
		v.Score = &score
	}
	if a.status == AssessmentInProgress && a.cursor < len(a.questions) {
		q := a.questions[a.cursor]
		qv := &QuestionView{
			Kind:    q.Kind,
			Prompt:  q.Prompt,
			Options: q.Options,
		}
		if a.revealed {
			if q.Kind == model.SingleChoice {
				idx := q.CorrectIndex
				qv.CorrectIndex = &idx
				qv.Explanation = q.Explanation
			} else {
				qv.ModelAnswer = q.ModelAnswer
			}
		}
		v.Question = qv
		answer := a.answers[a.cursor]
		v.Answer = &answer
	}
	return v
}

// AssessmentService 测验引擎：按 (owner, session) 维护状态机
type AssessmentService struct {
	mu       sync.Mutex
	attempts map[string]*attempt

	Sessions *SessionService
	Derived  *DerivedContentService
}

func NewAssessmentService(sessions *SessionService, derived *DerivedContentService) *AssessmentService {
	return &AssessmentService{
		attempts: make(map[string]*attempt),
		Sessions: sessions,
		Derived:  derived,
	}
}

func attemptKey(ownerID uint, sessionID string) string {
	return fmt.Sprintf("%d:%s", ownerID, sessionID)
}

func (s *AssessmentService) attempt(ownerID uint, sessionID string) *attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey(ownerID, sessionID)
	a, ok := s.attempts[key]
	if !ok {
		a = newAttempt()
		s.attempts[key] = a
	}
	return a
}

// Load 以会话自带的测验题集启动测验；题集为空报"暂无可测内容"
func (s *AssessmentService) Load(ownerID uint, sessionID string) (AttemptView, error) {
	bundle, err := s.Sessions.Reload(ownerID, sessionID)
	if err != nil {
		return AttemptView{}, err
	}

	a := s.attempt(ownerID, sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.load(bundle.Quiz); err != nil {
		return a.view(), err
	}
	return a.view(), nil
}

type AnswerRequest struct {
	SelectedIndex *int   `json:"selectedIndex"`
	FreeText      string `json:"freeText"`
}

func (s *AssessmentService) SelectAnswer(ownerID uint, sessionID string, req AnswerRequest) (AttemptView, error) {
	a := s.attempt(ownerID, sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.selectAnswer(req.SelectedIndex, req.FreeText); err != nil {
		return a.view(), err
	}
	return a.view(), nil
}

func (s *AssessmentService) Next(ownerID uint, sessionID string) (AttemptView, error) {
	a := s.attempt(ownerID, sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.next(); err != nil {
		return a.view(), err
	}
	return a.view(), nil
}

func (s *AssessmentService) Previous(ownerID uint, sessionID string) (AttemptView, error) {
	a := s.attempt(ownerID, sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.previous(); err != nil {
		return a.view(), err
	}
	return a.view(), nil
}

func (s *AssessmentService) Finish(ownerID uint, sessionID string) (AttemptView, error) {
	a := s.attempt(ownerID, sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.finish(); err != nil {
		return a.view(), err
	}
	return a.view(), nil
}

func (s *AssessmentService) Restart(ownerID uint, sessionID string, newQuestions []model.Question) (AttemptView, error) {
	a := s.attempt(ownerID, sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.restart(newQuestions); err != nil {
		return a.view(), err
	}
	return a.view(), nil
}

func (s *AssessmentService) View(ownerID uint, sessionID string) AttemptView {
	a := s.attempt(ownerID, sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view()
}

// Generate 动态出题：调用派生内容服务生成题集并整体替换。
// 同一会话同时只允许一个生成请求在途，生成期间导航与作答被拒绝。
func (s *AssessmentService) Generate(ctx context.Context, ownerID uint, sessionID string, req CustomExamRequest) (AttemptView, error) {
	a := s.attempt(ownerID, sessionID)

	a.mu.Lock()
	if a.generating {
		// 快照必须在持锁状态下取，在途的替换可能正在改写题集
		v := a.view()
		a.mu.Unlock()
		return v, util.ErrGenerationInFlight
	}
	a.generating = true
	a.mu.Unlock()

	questions, err := s.Derived.CustomExam(ctx, ownerID, sessionID, req)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.generating = false

	if err != nil {
		// 生成失败不触碰现有题集与进度
		logger.Log.Warn("dynamic question generation failed",
			zap.String("sessionId", sessionID),
			zap.Error(err))
		return a.view(), err
	}

	if err := a.replaceQuestions(questions); err != nil {
		return a.view(), err
	}
	return a.view(), nil
}

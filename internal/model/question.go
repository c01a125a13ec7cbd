package model

import (
	"encoding/json"
	"errors"
	"strings"
)

type QuestionKind string

const (
	SingleChoice QuestionKind = "single_choice"
	OpenEnded    QuestionKind = "open_ended"
)

var (
	ErrEmptyPrompt       = errors.New("question prompt is empty")
	ErrTooFewOptions     = errors.New("single choice question needs at least 2 options")
	ErrCorrectIndexRange = errors.New("correctIndex out of option range")
)

// Question 题目，两种题型共用一个结构，由 Kind 区分
// swagger:model Question
type Question struct {
	Kind         QuestionKind `json:"kind"`
	Prompt       string       `json:"prompt"`
	Options      []string     `json:"options,omitempty"`
	CorrectIndex int          `json:"correctIndex"`
	Explanation  string       `json:"explanation,omitempty"`
	ModelAnswer  string       `json:"modelAnswer,omitempty"`
}

// Validate 校验题目不变式；违反视为脏数据而非程序错误
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return ErrEmptyPrompt
	}
	switch q.Kind {
	case SingleChoice:
		if len(q.Options) < 2 {
			return ErrTooFewOptions
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return ErrCorrectIndexRange
		}
	case OpenEnded:
		// 开放题无选项约束
	default:
		return errors.New("unknown question kind: " + string(q.Kind))
	}
	return nil
}

// questionPayload 上游/历史记录中的题目原始形态，字段名存在漂移
type questionPayload struct {
	Kind         string   `json:"kind"`
	Type         string   `json:"type"`
	Prompt       string   `json:"prompt"`
	QuestionText string   `json:"question"`
	Options      []string `json:"options"`
	Choices      []string `json:"choices"`
	CorrectIndex *int     `json:"correctIndex"`
	AnswerIndex  *int     `json:"answerIndex"`
	Explanation  string   `json:"explanation"`
	ModelAnswer  string   `json:"modelAnswer"`
	Answer       string   `json:"answer"`
}

// decodeQuestion 将单条原始题目归一化为 Question；脏数据返回 false 并被丢弃
func decodeQuestion(raw json.RawMessage) (Question, bool) {
	var p questionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Question{}, false
	}

	q := Question{
		Prompt:      p.Prompt,
		Options:     p.Options,
		Explanation: p.Explanation,
		ModelAnswer: p.ModelAnswer,
	}
	if q.Prompt == "" {
		q.Prompt = p.QuestionText
	}
	if len(q.Options) == 0 {
		q.Options = p.Choices
	}
	if q.ModelAnswer == "" {
		q.ModelAnswer = p.Answer
	}

	kind := p.Kind
	if kind == "" {
		kind = p.Type
	}
	switch kind {
	case string(SingleChoice), "multiple_choice", "choice":
		q.Kind = SingleChoice
	case string(OpenEnded), "open", "essay":
		q.Kind = OpenEnded
	default:
		// 未声明题型时按是否带选项推断
		if len(q.Options) > 0 {
			q.Kind = SingleChoice
		} else {
			q.Kind = OpenEnded
		}
	}

	if q.Kind == SingleChoice {
		switch {
		case p.CorrectIndex != nil:
			q.CorrectIndex = *p.CorrectIndex
		case p.AnswerIndex != nil:
			q.CorrectIndex = *p.AnswerIndex
		default:
			return Question{}, false
		}
		q.ModelAnswer = ""
	} else {
		q.Options = nil
		q.CorrectIndex = 0
	}

	if err := q.Validate(); err != nil {
		return Question{}, false
	}
	return q, true
}

// DecodeQuestions 归一化题目列表，丢弃脏题，返回丢弃数量
func DecodeQuestions(raw json.RawMessage) ([]Question, int) {
	if len(raw) == 0 {
		return []Question{}, 0
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []Question{}, 0
	}

	questions := make([]Question, 0, len(items))
	dropped := 0
	for _, item := range items {
		q, ok := decodeQuestion(item)
		if !ok {
			dropped++
			continue
		}
		questions = append(questions, q)
	}
	return questions, dropped
}

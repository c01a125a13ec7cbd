package model

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMissingSummaries 两个摘要均缺失：结构性必填字段，不做降级
var ErrMissingSummaries = errors.New("payload missing both shortSummary and extendedSummary")

// ConceptNode 概念导图节点
type ConceptNode struct {
	Title    string        `json:"title"`
	Children []ConceptNode `json:"children"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type StudyPhase struct {
	Phase       string `json:"phase"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

type StructuredGuide struct {
	TotalTime    string       `json:"totalTime"`
	Introduction string       `json:"introduction"`
	StudyPhases  []StudyPhase `json:"studyPhases"`
	FinalAdvice  string       `json:"finalAdvice"`
}

// ExamGuide 备考指南：自由文本或结构化二选一，解码时一次性判别，之后不再嗅探
type ExamGuide struct {
	Freeform   string           `json:"freeform,omitempty"`
	Structured *StructuredGuide `json:"structured,omitempty"`
}

func (g ExamGuide) IsZero() bool {
	return g.Freeform == "" && g.Structured == nil
}

func (g *ExamGuide) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" || trimmed == "null" {
		*g = ExamGuide{}
		return nil
	}

	// 旧版记录直接存字符串
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*g = ExamGuide{Freeform: s}
		return nil
	}

	// 规范形态 {freeform|structured}
	var canonical struct {
		Freeform   string           `json:"freeform"`
		Structured *StructuredGuide `json:"structured"`
	}
	if err := json.Unmarshal(b, &canonical); err == nil &&
		(canonical.Freeform != "" || canonical.Structured != nil) {
		*g = ExamGuide{Freeform: canonical.Freeform, Structured: canonical.Structured}
		return nil
	}

	// 上游直接返回结构化对象
	var structured StructuredGuide
	if err := json.Unmarshal(b, &structured); err != nil {
		*g = ExamGuide{}
		return nil
	}
	if structured.TotalTime == "" && structured.Introduction == "" &&
		len(structured.StudyPhases) == 0 && structured.FinalAdvice == "" {
		*g = ExamGuide{}
		return nil
	}
	if structured.StudyPhases == nil {
		structured.StudyPhases = []StudyPhase{}
	}
	*g = ExamGuide{Structured: &structured}
	return nil
}

// ArtifactBundle 一次文档处理产出的全部学习产物
// swagger:model ArtifactBundle
type ArtifactBundle struct {
	ShortSummary    string        `json:"shortSummary"`
	ExtendedSummary string        `json:"extendedSummary"`
	ConceptMap      []ConceptNode `json:"conceptMap"`
	Flashcards      []Flashcard   `json:"flashcards"`
	Quiz            []Question    `json:"quiz"`
	ExamGuide       ExamGuide     `json:"examGuide"`
	SessionID       string        `json:"sessionId"`
	CreditsCharged  int           `json:"creditsCharged"`
	NewBalance      int           `json:"newBalance"`
}

// bundlePayload 上游响应/历史记录的原始形态，新旧字段名并存
type bundlePayload struct {
	ShortSummary    string `json:"shortSummary"`
	Summary         string `json:"summary"` // 旧字段名
	ExtendedSummary string `json:"extendedSummary"`
	DetailedSummary string `json:"detailedSummary"` // 旧字段名

	ConceptMap json.RawMessage `json:"conceptMap"`
	MindMap    json.RawMessage `json:"mindMap"` // 旧字段名
	Flashcards json.RawMessage `json:"flashcards"`
	Cards      json.RawMessage `json:"cards"` // 旧字段名
	Quiz       json.RawMessage `json:"quiz"`
	Questions  json.RawMessage `json:"questions"` // 旧字段名
	ExamGuide  json.RawMessage `json:"examGuide"`
	Guide      json.RawMessage `json:"guide"` // 旧字段名

	SessionID        string `json:"sessionId"`
	CreditsCharged   int    `json:"creditsCharged"`
	CreditsUsed      int    `json:"creditsUsed"` // 上游字段名
	NewBalance       int    `json:"newBalance"`
	NewCreditBalance int    `json:"newCreditBalance"` // 上游字段名
}

func firstRaw(candidates ...json.RawMessage) json.RawMessage {
	for _, c := range candidates {
		if len(c) > 0 && string(c) != "null" {
			return c
		}
	}
	return nil
}

// conceptPayload 概念节点的原始形态
type conceptPayload struct {
	Title    string           `json:"title"`
	Name     string           `json:"name"` // 旧字段名
	Children []conceptPayload `json:"children"`
	Nodes    []conceptPayload `json:"nodes"` // 旧字段名
}

func (p conceptPayload) toNode() ConceptNode {
	node := ConceptNode{Title: p.Title, Children: []ConceptNode{}}
	if node.Title == "" {
		node.Title = p.Name
	}
	children := p.Children
	if len(children) == 0 {
		children = p.Nodes
	}
	for _, c := range children {
		node.Children = append(node.Children, c.toNode())
	}
	return node
}

func decodeConceptMap(raw json.RawMessage) []ConceptNode {
	nodes := []ConceptNode{}
	if len(raw) == 0 {
		return nodes
	}

	var list []conceptPayload
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, p := range list {
			nodes = append(nodes, p.toNode())
		}
		return nodes
	}

	// 部分版本将导图记录为单个根节点对象
	var root conceptPayload
	if err := json.Unmarshal(raw, &root); err == nil && (root.Title != "" || root.Name != "") {
		nodes = append(nodes, root.toNode())
	}
	return nodes
}

func decodeFlashcards(raw json.RawMessage) []Flashcard {
	cards := []Flashcard{}
	if len(raw) == 0 {
		return cards
	}
	if err := json.Unmarshal(raw, &cards); err != nil {
		return []Flashcard{}
	}
	return cards
}

func decodeExamGuide(raw json.RawMessage) ExamGuide {
	var g ExamGuide
	if len(raw) == 0 {
		return g
	}
	// UnmarshalJSON 自身对脏数据降级为零值
	_ = json.Unmarshal(raw, &g)
	return g
}

// DecodeBundle 在服务边界做归一化解码：
// 新旧字段名映射到规范形态，缺失/脏的集合字段降级为空序列（绝不暴露null），
// 摘要两者皆缺失则作为硬错误返回。droppedQuestions 为被丢弃的脏题数量。
func DecodeBundle(raw []byte) (*ArtifactBundle, int, error) {
	var p bundlePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, 0, err
	}

	bundle := &ArtifactBundle{
		ShortSummary:    p.ShortSummary,
		ExtendedSummary: p.ExtendedSummary,
		SessionID:       p.SessionID,
		CreditsCharged:  p.CreditsCharged,
		NewBalance:      p.NewBalance,
	}
	if bundle.ShortSummary == "" {
		bundle.ShortSummary = p.Summary
	}
	if bundle.ExtendedSummary == "" {
		bundle.ExtendedSummary = p.DetailedSummary
	}
	if bundle.CreditsCharged == 0 {
		bundle.CreditsCharged = p.CreditsUsed
	}
	if bundle.NewBalance == 0 {
		bundle.NewBalance = p.NewCreditBalance
	}

	if strings.TrimSpace(bundle.ShortSummary) == "" && strings.TrimSpace(bundle.ExtendedSummary) == "" {
		return nil, 0, ErrMissingSummaries
	}

	bundle.ConceptMap = decodeConceptMap(firstRaw(p.ConceptMap, p.MindMap))
	bundle.Flashcards = decodeFlashcards(firstRaw(p.Flashcards, p.Cards))

	quiz, dropped := DecodeQuestions(firstRaw(p.Quiz, p.Questions))
	bundle.Quiz = quiz

	bundle.ExamGuide = decodeExamGuide(firstRaw(p.ExamGuide, p.Guide))

	return bundle, dropped, nil
}

package util

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDocument          = errors.New("文档内容为空")
	ErrDocumentTooLarge       = errors.New("文档超出大小限制")
	ErrUnsupportedLanguage    = errors.New("不支持的文档语言")
	ErrJobInFlight            = errors.New("已有处理任务进行中")
	ErrJobNotFound            = errors.New("processing job not found")
	ErrSessionNotFound        = errors.New("study session not found")
	ErrNoAssessableContent    = errors.New("no assessable content")
	ErrInvalidAssessmentState = errors.New("operation not valid in current assessment state")
	ErrGenerationInFlight     = errors.New("question generation already in flight")
)

// InsufficientCreditsError 上游402：余额不足，required/available 按原样透出，不自动重试
type InsufficientCreditsError struct {
	Required  int `json:"required"`
	Available int `json:"available"`
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

// UpstreamError 上游服务的其它非2xx响应
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream failure (status %d): %s", e.Status, e.Message)
}

// GenerationError 派生内容生成失败，只影响对应生成器自身的错误槽位
type GenerationError struct {
	Kind string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

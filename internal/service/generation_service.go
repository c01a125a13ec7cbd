package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"studyforge_backend/internal/config"
	"studyforge_backend/internal/util"
	"time"
)

// GenerationService 上游AI生成服务客户端。
// 服务本身不透明，这里只实现HTTP契约：
//   - 2xx: 产物包字段 + sessionId + newCreditBalance + creditsUsed
//   - 402: {required, available}
//   - 其它: 人类可读的错误信息
type GenerationService struct {
	config config.GenerationConfig
	client *http.Client
}

func NewGenerationService(cfg config.GenerationConfig) *GenerationService {
	return &GenerationService{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

type creditErrorBody struct {
	Required  int `json:"required"`
	Available int `json:"available"`
}

type upstreamErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func decodeErrorStatus(status int, body []byte) error {
	if status == http.StatusPaymentRequired {
		var ce creditErrorBody
		if err := json.Unmarshal(body, &ce); err == nil {
			return &util.InsufficientCreditsError{Required: ce.Required, Available: ce.Available}
		}
		return &util.InsufficientCreditsError{}
	}

	var ue upstreamErrorBody
	if err := json.Unmarshal(body, &ue); err == nil {
		msg := ue.Message
		if msg == "" {
			msg = ue.Error
		}
		if msg != "" {
			return &util.UpstreamError{Status: status, Message: msg}
		}
	}
	return &util.UpstreamError{Status: status, Message: string(body)}
}

// ProcessDocument 上传文档，返回原始响应体，归一化解码由调用方负责。
// targetLanguage 为空时不传递覆盖值（Auto 语义）。
func (s *GenerationService) ProcessDocument(ctx context.Context, filename string, data []byte, sourceLanguage, targetLanguage string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.WriteField("sourceLanguage", sourceLanguage); err != nil {
		return nil, err
	}
	if targetLanguage != "" {
		if err := writer.WriteField("targetLanguage", targetLanguage); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/v1/study/process", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &util.UpstreamError{Status: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &util.UpstreamError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeErrorStatus(resp.StatusCode, body)
	}

	return body, nil
}

// GenerateContent 派生内容统一契约：发送文档上下文与选项，返回结构化内容原始体
func (s *GenerationService) GenerateContent(ctx context.Context, kind string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/study/generate/%s", s.config.BaseURL, kind)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &util.UpstreamError{Status: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &util.UpstreamError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeErrorStatus(resp.StatusCode, body)
	}

	return body, nil
}

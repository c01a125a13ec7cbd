package model

import "encoding/json"

// StudySession 持久化的学习会话：产物包 + 元数据
// 历史记录中的 Payload 存在新旧字段名漂移，重载时经 DecodeBundle 归一化
// swagger:model StudySession
type StudySession struct {
	UUIDBase
	OwnerID        uint            `gorm:"index;type:bigint unsigned" json:"ownerId"`
	DocumentName   string          `gorm:"size:255" json:"documentName"`
	StoredObject   string          `gorm:"size:255" json:"-"` // 源文档在存储中的对象名
	SourceLanguage string          `gorm:"size:20" json:"sourceLanguage"`
	TargetLanguage string          `gorm:"size:20" json:"targetLanguage"`
	CreditsCharged int             `gorm:"default:0" json:"creditsCharged"`
	Payload        json.RawMessage `gorm:"type:json" json:"-"`
}

func (StudySession) TableName() string {
	return "study_sessions"
}

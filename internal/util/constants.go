package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 文档上传相关常量
const (
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
)

// LanguageAuto 目标语言为 Auto 时沿用源语言，不向上游传递覆盖值
const LanguageAuto = "Auto"

// SupportedLanguages 固定的源语言枚举
var SupportedLanguages = []string{
	"Italiano",
	"English",
	"Español",
	"Français",
	"Deutsch",
}

func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

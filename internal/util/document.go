package util

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// IsPDF 依据扩展名或文件头判断是否为PDF
func IsPDF(filename string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(data, pdfMagic)
}

// CountPDFPages 读取PDF页数，用于积分消耗预估；非PDF或解析失败返回0
func CountPDFPages(data []byte) (pages int) {
	// 解析库对畸形文件会panic，预估失败按0页处理
	defer func() {
		if r := recover(); r != nil {
			pages = 0
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}

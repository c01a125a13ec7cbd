package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("dispensa.pdf", nil))
	assert.True(t, IsPDF("DISPENSA.PDF", nil))
	assert.True(t, IsPDF("senza-estensione", []byte("%PDF-1.7\n...")))
	assert.False(t, IsPDF("appunti.txt", []byte("testo semplice")))
}

func TestCountPDFPagesGarbage(t *testing.T) {
	// 解析失败不报错，按0页计费
	assert.Equal(t, 0, CountPDFPages([]byte("%PDF-1.7 garbage")))
	assert.Equal(t, 0, CountPDFPages(nil))
}

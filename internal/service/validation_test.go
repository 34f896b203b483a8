package service_test

import (
	"testing"

	"swiftshare-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maxSize = int64(100 * 1024 * 1024)

func TestValidateFileAccepted(t *testing.T) {
	cases := []struct {
		name     string
		fileName string
		size     int64
		mimeType string
	}{
		{"普通文档", "report.docx", 50, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"图片", "photo.png", 2 * 1024 * 1024, "image/png"},
		{"压缩包", "bundle.zip", maxSize, "application/zip"},
		{"空 MIME 放行", "notes.unknown", 1024, ""},
		{"无扩展名", "README", 128, "text/plain"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := service.ValidateFile(tc.fileName, tc.size, tc.mimeType, maxSize)
			assert.NoError(t, err)
		})
	}
}

func TestValidateFileBlockedExtension(t *testing.T) {
	cases := []struct {
		fileName string
		want     string
	}{
		{"virus.exe", "File type .exe is not allowed for security reasons"},
		{"shell.php", "File type .php is not allowed for security reasons"},
		{"script.JS", "File type .js is not allowed for security reasons"},
		{"archive.tar.jar", "File type .jar is not allowed for security reasons"},
	}

	for _, tc := range cases {
		t.Run(tc.fileName, func(t *testing.T) {
			err := service.ValidateFile(tc.fileName, 10, "application/pdf", maxSize)
			require.Error(t, err)
			assert.True(t, service.IsValidationError(err))
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestValidateFileOversized(t *testing.T) {
	err := service.ValidateFile("big.pdf", maxSize+1, "application/pdf", maxSize)
	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))
	assert.Equal(t, "File size must be less than 100MB", err.Error())
}

func TestValidateFileUnsupportedMime(t *testing.T) {
	err := service.ValidateFile("payload.bin", 10, "application/octet-stream", maxSize)
	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))
	assert.Equal(t, "This file type is not supported", err.Error())
}

// 黑名单命中的文件即使同时超大，返回的也是扩展名错误。
func TestValidateFileOrderBlockedBeforeSize(t *testing.T) {
	err := service.ValidateFile("huge.exe", maxSize+1, "application/pdf", maxSize)
	require.Error(t, err)
	assert.Equal(t, "File type .exe is not allowed for security reasons", err.Error())
}

// 超大且 MIME 不受支持时，大小检查先于白名单。
func TestValidateFileOrderSizeBeforeAllowlist(t *testing.T) {
	err := service.ValidateFile("huge.bin", maxSize+1, "application/octet-stream", maxSize)
	require.Error(t, err)
	assert.Equal(t, "File size must be less than 100MB", err.Error())
}

func TestValidateSize(t *testing.T) {
	assert.True(t, service.ValidateSize(0, maxSize))
	assert.True(t, service.ValidateSize(maxSize, maxSize))
	assert.False(t, service.ValidateSize(maxSize+1, maxSize))
}

func TestValidateType(t *testing.T) {
	assert.NoError(t, service.ValidateType("a.png", "image/png"))
	assert.Error(t, service.ValidateType("a.exe", "image/png"))
	assert.Error(t, service.ValidateType("a.png", "application/octet-stream"))
	assert.NoError(t, service.ValidateType("a.png", ""))
}

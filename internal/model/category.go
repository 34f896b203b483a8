package model

import "strings"

// 文件类别常量，用于前端图标与描述的映射。
const (
	CategoryImage        = "image"
	CategoryDocument     = "document"
	CategorySpreadsheet  = "spreadsheet"
	CategoryPresentation = "presentation"
	CategoryVideo        = "video"
	CategoryAudio        = "audio"
	CategoryArchive      = "archive"
	CategoryText         = "text"
	CategoryFile         = "file"
)

// FileCategory 根据 MIME 类型和扩展名推断文件类别。
// MIME 类型优先，扩展名作为补充（浏览器对部分文件不上报 MIME）。
func FileCategory(fileName, mimeType string) string {
	mime := strings.ToLower(mimeType)
	ext := fileExtension(fileName)

	switch {
	case strings.HasPrefix(mime, "image/"):
		return CategoryImage
	case mime == "application/pdf":
		return CategoryDocument
	case strings.Contains(mime, "word") || ext == "doc" || ext == "docx":
		return CategoryDocument
	case strings.Contains(mime, "excel") || strings.Contains(mime, "spreadsheet") || ext == "xls" || ext == "xlsx":
		return CategorySpreadsheet
	case strings.Contains(mime, "powerpoint") || strings.Contains(mime, "presentation") || ext == "ppt" || ext == "pptx":
		return CategoryPresentation
	case strings.HasPrefix(mime, "video/"):
		return CategoryVideo
	case strings.HasPrefix(mime, "audio/"):
		return CategoryAudio
	case strings.Contains(mime, "zip") || strings.Contains(mime, "rar") ||
		ext == "zip" || ext == "rar" || ext == "7z" || ext == "tar" || ext == "gz":
		return CategoryArchive
	case strings.HasPrefix(mime, "text/") || ext == "txt" || ext == "csv" || ext == "json" || ext == "xml":
		return CategoryText
	default:
		return CategoryFile
	}
}

// fileExtension 返回文件名最后一个 '.' 之后的小写扩展名，没有扩展名时返回空串。
func fileExtension(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 || idx == len(fileName)-1 {
		return ""
	}
	return strings.ToLower(fileName[idx+1:])
}

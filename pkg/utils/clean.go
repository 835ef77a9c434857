// Package utils предоставляет вспомогательные функции для обработки данных.
package utils

import (
	"strings"
	"unicode/utf8"
)

// CleanJsonBlock удаляет markdown-обёртку вокруг JSON.
//
// Модели иногда присылают аргументы инструментов в виде:
//
//	```json
//	{"input": "Paris"}
//	```
func CleanJsonBlock(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Первая строка: язык блока (json, JSON или пусто)
		if lang := strings.TrimSpace(s[:nl]); !strings.ContainsAny(lang, "{[\"") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Truncate обрезает строку до max рун и добавляет маркер обрезки.
// Используется для логирования результатов инструментов.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "...[truncated]"
}

// Preview: однострочная версия Truncate для логов.
func Preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	return Truncate(s, max)
}

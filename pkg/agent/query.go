package agent

import (
	"path/filepath"
	"strings"
)

// FileKind: тип приложенного к запросу файла.
type FileKind string

const (
	FileNone  FileKind = ""
	FileImage FileKind = "image"
	FilePDF   FileKind = "pdf"
	FileOther FileKind = "other"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
}

// Query: один запрос пользователя с необязательным вложением.
type Query struct {
	Text     string
	FilePath string
	FileKind FileKind
}

// NewQuery собирает запрос; тип файла определяется по расширению.
func NewQuery(text, filePath string) Query {
	q := Query{Text: strings.TrimSpace(text), FilePath: strings.TrimSpace(filePath)}
	if q.FilePath != "" {
		q.FileKind = KindOf(q.FilePath)
	}
	return q
}

// ParseQuery разбирает строку ввода. Последний токен вида @path
// прикрепляет файл: "what does it say? @scan.png".
func ParseQuery(line string) Query {
	line = strings.TrimSpace(line)
	idx := strings.LastIndexAny(line, " \t")
	last := line[idx+1:]

	if len(last) > 1 && strings.HasPrefix(last, "@") {
		return NewQuery(line[:idx+1], last[1:])
	}
	return NewQuery(line, "")
}

// KindOf определяет тип файла по расширению (s3:// ключи тоже).
func KindOf(path string) FileKind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExtensions[ext]:
		return FileImage
	case ext == ".pdf":
		return FilePDF
	default:
		return FileOther
	}
}

// HasFile сообщает, приложен ли файл.
func (q Query) HasFile() bool {
	return q.FilePath != ""
}

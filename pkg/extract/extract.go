// Package extract достаёт текст, структуру и картинки из PDF.
//
// Текст и строки страниц читаются через ledongthuc/pdf, картинки
// выгружаются через pdfcpu. Два режима:
//   - ExtractPDF: сплошной текст + картинки page{N}_img{M}.{ext}
//   - Partition: элементы (text, title, table, image) и разрывы страниц
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Options: параметры извлечения.
type Options struct {
	ExtractImages bool
	// OutputDir: куда писать картинки. Пусто = директория PDF.
	OutputDir string
}

// outputDir возвращает и создаёт директорию для картинок.
func (o Options) outputDir(pdfPath string) (string, error) {
	dir := o.OutputDir
	if dir == "" {
		dir = filepath.Dir(pdfPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return dir, nil
}

// PartialError: извлечение прошло частично. Результат, возвращённый
// вместе с ней, содержит всё, что удалось достать.
type PartialError struct {
	Path string
	Errs []error
}

func (e *PartialError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("partial extraction of %s: %s", e.Path, strings.Join(msgs, "; "))
}

func (e *PartialError) Unwrap() []error { return e.Errs }

// IsPartial сообщает, что err: частичный сбой, а не полный отказ.
func IsPartial(err error) bool {
	var pe *PartialError
	return errors.As(err, &pe)
}

// partial собирает ошибки страниц в PartialError (nil если ошибок нет).
func partial(path string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &PartialError{Path: path, Errs: errs}
}

func checkPDF(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("open pdf: %s is a directory", path)
	}
	return nil
}

package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	sampleTexts     = 5
	sampleTextRunes = 200
)

// SummaryFileName: имя файла сводки в директории результатов.
const SummaryFileName = "summary.json"

// ElementCounts: количество элементов каждого типа.
type ElementCounts struct {
	Text   int `json:"text"`
	Titles int `json:"titles"`
	Tables int `json:"tables"`
	Images int `json:"images"`
	Pages  int `json:"pages"`
}

// Summary: сводка разметки документа (summary.json).
type Summary struct {
	FilePath      string        `json:"file_path"`
	ElementCounts ElementCounts `json:"element_counts"`
	TitleList     []string      `json:"title_list"`
	SampleText    []string      `json:"sample_text"`
	ImagePaths    []string      `json:"image_paths"`
}

// Summarize строит сводку. Страницы считаются по разрывам страниц,
// образец: первые 5 текстов, обрезанные до 200 символов с "...".
func Summarize(doc *Document) Summary {
	texts := doc.Texts()
	titles := doc.Titles()
	images := doc.Images()

	pages := make(map[int]struct{}, len(doc.PageBreaks))
	for _, pb := range doc.PageBreaks {
		pages[pb.Page] = struct{}{}
	}

	s := Summary{
		FilePath: doc.FilePath,
		ElementCounts: ElementCounts{
			Text:   len(texts),
			Titles: len(titles),
			Tables: len(doc.Tables()),
			Images: len(images),
			Pages:  len(pages),
		},
		TitleList:  make([]string, 0, len(titles)),
		SampleText: make([]string, 0, sampleTexts),
		ImagePaths: make([]string, 0, len(images)),
	}

	for _, t := range titles {
		s.TitleList = append(s.TitleList, t.Text)
	}
	for i, t := range texts {
		if i == sampleTexts {
			break
		}
		s.SampleText = append(s.SampleText, sample(t.Text))
	}
	for _, img := range images {
		if img.Path != "" {
			s.ImagePaths = append(s.ImagePaths, img.Path)
		}
	}
	return s
}

// sample: первые 200 символов и "..." всегда, как в отчётах анализа.
func sample(text string) string {
	r := []rune(text)
	if len(r) > sampleTextRunes {
		r = r[:sampleTextRunes]
	}
	return string(r) + "..."
}

// WriteSummary пишет summary.json в dir и возвращает путь к файлу.
func WriteSummary(dir string, s Summary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}

	path := filepath.Join(dir, SummaryFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

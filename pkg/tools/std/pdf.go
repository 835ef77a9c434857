package std

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/extract"
	"github.com/ilkoid/poncho-assist/pkg/tools"
	"github.com/ilkoid/poncho-assist/pkg/utils"
)

// maxDocumentRunes: сколько текста документа уходит модели.
const maxDocumentRunes = 12000

// NewPDFExtractorTool: сплошной текст и картинки PDF ("pdf_extractor").
func NewPDFExtractorTool(files *FileResolver, opts extract.Options) *tools.Adapter {
	return tools.NewAdapter(config.ToolPDFExtractor,
		"Useful for extracting text and images from PDF files. Input should be a path to a PDF file.",
		func(ctx context.Context, ref string) (string, error) {
			path, err := files.Resolve(ctx, ref)
			if err != nil {
				return "", err
			}

			res, err := extract.ExtractPDF(path, documentOptions(opts, path))
			if res == nil {
				return "", err
			}
			return withPartialError("Error processing PDF", err, FormatPDFResult(res)), nil
		},
		tools.WithKind(tools.KindDocument),
		tools.WithInputDescription("Path to a PDF file (or s3://key)."))
}

// NewPDFIngestionTool: структурный разбор PDF ("pdf_ingestion").
func NewPDFIngestionTool(files *FileResolver, opts extract.Options) *tools.Adapter {
	return tools.NewAdapter(config.ToolPDFIngestion,
		"Useful for ingesting multimodal PDF documents and extracting structured content including text, titles, tables, and images. Input should be a path to a PDF file.",
		func(ctx context.Context, ref string) (string, error) {
			path, err := files.Resolve(ctx, ref)
			if err != nil {
				return "", err
			}

			doc, err := extract.Partition(path, documentOptions(opts, path))
			if doc == nil {
				return "", err
			}
			return withPartialError("Error ingesting PDF", err, FormatDocument(doc)), nil
		},
		tools.WithKind(tools.KindDocument),
		tools.WithInputDescription("Path to a PDF file (or s3://key)."))
}

// documentOptions кладёт картинки каждого документа в свою поддиректорию.
func documentOptions(opts extract.Options, pdfPath string) extract.Options {
	if opts.OutputDir != "" {
		base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
		opts.OutputDir = filepath.Join(opts.OutputDir, base)
	}
	return opts
}

// withPartialError помечает частичный результат строкой ошибки.
func withPartialError(prefix string, err error, body string) string {
	if err == nil {
		return body
	}
	return fmt.Sprintf("%s: %v\n\n%s", prefix, err, body)
}

// FormatPDFResult: текстовое представление ExtractPDF для модели.
func FormatPDFResult(res *extract.PDFResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Pages: %d\n", res.PageCount)
	fmt.Fprintf(&sb, "Images extracted: %d\n", len(res.Images))
	for _, img := range res.Images {
		fmt.Fprintf(&sb, "- %s\n", img)
	}
	sb.WriteString("\nText:\n")
	sb.WriteString(utils.Truncate(strings.TrimSpace(res.Text), maxDocumentRunes))
	return sb.String()
}

// FormatDocument: текстовое представление Partition для модели.
func FormatDocument(doc *extract.Document) string {
	s := extract.Summarize(doc)

	var sb strings.Builder
	c := s.ElementCounts
	fmt.Fprintf(&sb, "Pages: %d, text elements: %d, titles: %d, tables: %d, images: %d\n",
		c.Pages, c.Text, c.Titles, c.Tables, c.Images)

	if len(s.TitleList) > 0 {
		sb.WriteString("\nTitles:\n")
		for _, t := range s.TitleList {
			fmt.Fprintf(&sb, "- %s\n", t)
		}
	}

	var body strings.Builder
	for _, e := range doc.Elements {
		switch e.Kind {
		case extract.KindTitle:
			fmt.Fprintf(&body, "\n## %s\n", e.Text)
		case extract.KindText:
			fmt.Fprintf(&body, "%s\n", e.Text)
		case extract.KindTable:
			fmt.Fprintf(&body, "\n[table, page %d]\n%s\n", e.Page, e.Text)
		case extract.KindImage:
			if e.Path != "" {
				fmt.Fprintf(&body, "[image, page %d: %s]\n", e.Page, e.Path)
			} else {
				fmt.Fprintf(&body, "[image, page %d]\n", e.Page)
			}
		}
	}

	sb.WriteString("\nContent:\n")
	sb.WriteString(utils.Truncate(strings.TrimSpace(body.String()), maxDocumentRunes))
	return sb.String()
}

package extract

import (
	"fmt"
	"strings"

	"github.com/ilkoid/poncho-assist/pkg/utils"
	"github.com/ledongthuc/pdf"
)

// PDFResult: результат ExtractPDF.
type PDFResult struct {
	Text      string   `json:"text"`
	Images    []string `json:"images"`
	PageCount int      `json:"page_count"`
}

// ExtractPDF читает текст всех страниц и, если нужно, сохраняет картинки.
//
// Ошибка отдельной страницы или выгрузки картинок не прерывает работу:
// возвращается то, что удалось достать, и *PartialError.
func ExtractPDF(path string, opts Options) (*PDFResult, error) {
	utils.Info("Processing PDF", "path", path, "extract_images", opts.ExtractImages)

	if err := checkPDF(path); err != nil {
		return nil, err
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	result := &PDFResult{PageCount: r.NumPage()}
	var errs []error

	var sb strings.Builder
	for n := 1; n <= result.PageCount; n++ {
		text, err := pageText(r.Page(n))
		if err != nil {
			errs = append(errs, fmt.Errorf("page %d: %w", n, err))
			continue
		}
		sb.WriteString(text)
		if text != "" && !strings.HasSuffix(text, "\n") {
			sb.WriteString("\n")
		}
	}
	result.Text = sb.String()
	utils.Info("Extracted PDF text", "path", path, "chars", len(result.Text), "pages", result.PageCount)

	if opts.ExtractImages {
		dir, err := opts.outputDir(path)
		if err != nil {
			errs = append(errs, err)
		} else {
			imgs, err := saveImages(path, dir, pageImageName)
			result.Images = imgs
			if err != nil {
				errs = append(errs, err)
			}
		}
	}

	return result, partial(path, errs)
}

// pageText достаёт плоский текст страницы. ledongthuc/pdf паникует
// на битых потоках, поэтому паника превращается в ошибку.
func pageText(p pdf.Page) (text string, err error) {
	if p.V.IsNull() {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read text: %v", r)
		}
	}()
	return p.GetPlainText(nil)
}

// pageImageName: page{N}_img{M}.{ext}, нумерация с единицы.
func pageImageName(page, indexOnPage, _ int, ext string) string {
	return fmt.Sprintf("page%d_img%d.%s", page, indexOnPage, ext)
}

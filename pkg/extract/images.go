package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ilkoid/poncho-assist/pkg/utils"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigOnce sync.Once

// pdfcpuConfig: конфигурация pdfcpu без записи в домашнюю директорию.
func pdfcpuConfig() *model.Configuration {
	disableConfigOnce.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// imageNamer строит имя файла: номер страницы, номер картинки на странице
// (с единицы), сквозной номер (с нуля) и расширение.
type imageNamer func(page, indexOnPage, index int, ext string) string

// saveImages выгружает все картинки PDF в dir и возвращает пути
// в порядке выгрузки. При ошибке возвращает уже сохранённые файлы.
func saveImages(pdfPath, dir string, name imageNamer) ([]string, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf for images: %w", err)
	}
	defer f.Close()

	var (
		paths   []string
		perPage = make(map[int]int)
	)

	digest := func(img model.Image, _ bool, _ int) error {
		perPage[img.PageNr]++
		ext := strings.TrimPrefix(strings.ToLower(img.FileType), ".")
		if ext == "" {
			ext = "png"
		}

		out := filepath.Join(dir, name(img.PageNr, perPage[img.PageNr], len(paths), ext))
		if err := writeImage(out, img); err != nil {
			return err
		}
		paths = append(paths, out)
		utils.Info("Saved image", "path", out, "page", img.PageNr)
		return nil
	}

	if err := api.ExtractImages(f, nil, digest, pdfcpuConfig()); err != nil {
		return paths, fmt.Errorf("extract images: %w", err)
	}
	return paths, nil
}

func writeImage(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write image %s: %w", path, err)
	}
	return out.Close()
}

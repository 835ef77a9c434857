package std

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/llm"
	"github.com/ilkoid/poncho-assist/pkg/tools"
	"github.com/ilkoid/poncho-assist/pkg/utils"
)

const ocrPrompt = "Extract all text visible in this image. " +
	"Return only the extracted text, one line per line of text in the image, without commentary. " +
	"If the image contains no text, return an empty response."

// OCROptions: параметры распознавания.
type OCROptions struct {
	Model    string // пусто = модель провайдера
	MaxWidth int    // ширина, до которой ужимается картинка (0 = без ресайза)
	Quality  int    // качество JPEG
}

// NewOCRTool распознаёт текст на картинке через vision модель.
func NewOCRTool(provider llm.Provider, files *FileResolver, opts OCROptions) *tools.Adapter {
	return tools.NewAdapter(config.ToolOCR,
		"Useful for extracting text from images. Input should be a path to an image file.",
		func(ctx context.Context, ref string) (string, error) {
			path, err := files.Resolve(ctx, ref)
			if err != nil {
				return "", err
			}
			uri, err := imageDataURI(path, opts)
			if err != nil {
				return "", err
			}

			genOpts := []any{llm.WithTemperature(0)}
			if opts.Model != "" {
				genOpts = append(genOpts, llm.WithModel(opts.Model))
			}

			msg := llm.Message{Role: llm.RoleUser, Content: ocrPrompt, Images: []string{uri}}
			resp, err := provider.Generate(ctx, []llm.Message{msg}, genOpts...)
			if err != nil {
				return "", fmt.Errorf("vision request: %w", err)
			}

			text := strings.TrimSpace(resp.Content)
			utils.Info("Successfully extracted text from image", "path", path, "chars", len(text))
			if text == "" {
				return "No text found in the image.", nil
			}
			return text, nil
		},
		tools.WithKind(tools.KindDocument),
		tools.WithInputDescription("Path to an image file (or s3://key)."))
}

// imageDataURI читает картинку и готовит data-uri. Форматы, которые не
// декодируются стандартной библиотекой (webp, tiff), уходят как есть.
func imageDataURI(path string, opts OCROptions) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	resized, err := utils.ResizeImage(data, opts.MaxWidth, opts.Quality)
	if err != nil {
		utils.Debug("Image not resized, sending original", "path", path, "reason", err)
		return utils.DataURI(data), nil
	}
	return utils.DataURI(resized), nil
}

// Package utils предоставляет утилиты для обработки изображений.
package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // Регистрируем GIF декодер
	"image/jpeg"
	_ "image/png" // Регистрируем PNG декодер
	"net/http"

	"github.com/nfnt/resize"
)

// ResizeImage уменьшает изображение до maxWidth, сохраняя пропорции,
// и перекодирует в JPEG с качеством quality.
//
// Если maxWidth <= 0 или картинка уже уже: только перекодирует в JPEG.
func ResizeImage(data []byte, maxWidth int, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}

	bounds := img.Bounds()
	if maxWidth > 0 && bounds.Dx() > maxWidth {
		aspectRatio := float64(bounds.Dy()) / float64(bounds.Dx())
		newHeight := uint(float64(maxWidth) * aspectRatio)
		img = resize.Resize(uint(maxWidth), newHeight, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode to jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI кодирует байты в data:<mime>;base64,... для Vision API.
func DataURI(data []byte) string {
	mimeType := http.DetectContentType(data)
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

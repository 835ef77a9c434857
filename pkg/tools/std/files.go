package std

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ilkoid/poncho-assist/pkg/s3storage"
)

// FileResolver превращает вход инструмента в локальный путь.
// Ссылки s3://key скачиваются во временную директорию один раз за сессию.
type FileResolver struct {
	storage s3storage.Storage

	mu     sync.Mutex
	tmpDir string
	cache  map[string]string
}

// NewFileResolver создаёт резолвер. storage может быть nil: тогда
// s3:// ссылки возвращают ошибку.
func NewFileResolver(storage s3storage.Storage) *FileResolver {
	return &FileResolver{storage: storage, cache: make(map[string]string)}
}

// Resolve возвращает локальный путь к файлу и проверяет, что он есть.
func (r *FileResolver) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("file path is empty")
	}

	if _, isS3 := s3storage.ParseS3Path(ref); isS3 {
		return r.fetch(ctx, ref)
	}

	info, err := os.Stat(ref)
	if err != nil {
		return "", fmt.Errorf("file not found: %s", ref)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", ref)
	}
	return ref, nil
}

func (r *FileResolver) fetch(ctx context.Context, ref string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if local, ok := r.cache[ref]; ok {
		return local, nil
	}
	if r.tmpDir == "" {
		dir, err := os.MkdirTemp("", "poncho-assist-*")
		if err != nil {
			return "", fmt.Errorf("create temp dir: %w", err)
		}
		r.tmpDir = dir
	}

	local, err := s3storage.Fetch(ctx, r.storage, ref, r.tmpDir)
	if err != nil {
		return "", err
	}
	r.cache[ref] = local
	return local, nil
}

// Cleanup удаляет скачанные файлы.
func (r *FileResolver) Cleanup() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tmpDir == "" {
		return nil
	}
	err := os.RemoveAll(r.tmpDir)
	r.tmpDir = ""
	r.cache = make(map[string]string)
	return err
}

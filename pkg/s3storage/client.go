// Клиент объектного хранилища: скачать s3:// вход, выгрузить результаты.

package s3storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/utils"
)

// Scheme: префикс ссылок на объекты в бакете из конфигурации.
const Scheme = "s3://"

// Storage: то, что нужно инструментам и утилитам от хранилища.
// Интерфейс нужен для подмены в тестах.
type Storage interface {
	DownloadToFile(ctx context.Context, key, localPath string) error
	UploadFile(ctx context.Context, localPath, key string) error
}

// Client: обёртка над minio для одного бакета.
type Client struct {
	api    *minio.Client
	bucket string
}

var _ Storage = (*Client)(nil)

// New создает клиент из конфигурации.
func New(cfg config.S3Config) (*Client, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &Client{
		api:    minioClient,
		bucket: cfg.Bucket,
	}, nil
}

// Bucket возвращает имя бакета.
func (c *Client) Bucket() string { return c.bucket }

// DownloadToFile скачивает объект в локальный файл.
func (c *Client) DownloadToFile(ctx context.Context, key, localPath string) error {
	if err := c.api.FGetObject(ctx, c.bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	utils.Info("Downloaded object", "bucket", c.bucket, "key", key, "path", localPath)
	return nil
}

// UploadFile выгружает локальный файл под ключом key.
func (c *Client) UploadFile(ctx context.Context, localPath, key string) error {
	opts := minio.PutObjectOptions{ContentType: contentType(localPath)}
	info, err := c.api.FPutObject(ctx, c.bucket, key, localPath, opts)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", localPath, err)
	}
	utils.Info("Uploaded object", "bucket", c.bucket, "key", key, "size", info.Size)
	return nil
}

// ParseS3Path разбирает "s3://key" и возвращает ключ.
// ok == false, если ref не ссылка на хранилище.
func ParseS3Path(ref string) (key string, ok bool) {
	if !strings.HasPrefix(ref, Scheme) {
		return "", false
	}
	key = strings.TrimLeft(strings.TrimPrefix(ref, Scheme), "/")
	return key, key != ""
}

// Fetch скачивает s3:// ссылку во временную директорию dir и возвращает
// локальный путь. Структура ключа сохраняется под dir, так что ключи
// с одинаковым именем файла не перетирают друг друга. Обычные пути
// возвращаются как есть.
func Fetch(ctx context.Context, st Storage, ref, dir string) (string, error) {
	key, ok := ParseS3Path(ref)
	if !ok {
		return ref, nil
	}
	if st == nil {
		return "", fmt.Errorf("%s: s3 storage is not configured", ref)
	}

	local, err := localPath(dir, key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", key, err)
	}
	if err := st.DownloadToFile(ctx, key, local); err != nil {
		return "", err
	}
	return local, nil
}

// localPath кладёт ключ под dir и не даёт выйти за его пределы.
func localPath(dir, key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid s3 key %q", key)
	}
	local := filepath.Join(dir, filepath.FromSlash(clean))
	rel, err := filepath.Rel(dir, local)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("s3 key %q escapes download dir", key)
	}
	return local, nil
}

// MirrorDir выгружает все файлы из localDir под prefix, сохраняя
// относительные пути. Возвращает ключи в порядке выгрузки.
func MirrorDir(ctx context.Context, st Storage, localDir, prefix string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(localDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", localDir, err)
	}
	sort.Strings(files)

	keys := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(localDir, f)
		if err != nil {
			return keys, err
		}
		key := path.Join(prefix, filepath.ToSlash(rel))
		if err := st.UploadFile(ctx, f, key); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ExtractionPrefix: куда зеркалятся результаты разбора PDF:
// <prefix>/extractions/<имя pdf без расширения>.
func ExtractionPrefix(prefix, pdfPath string) string {
	base := filepath.Base(pdfPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return path.Join(prefix, "extractions", base)
}

func contentType(p string) string {
	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

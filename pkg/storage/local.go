package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStorage implements Archive using the local filesystem. Files live in
// <base>/<account>/ with JSON metadata in <base>/<account>/.meta/.
type LocalStorage struct {
	basePath string
	now      func() time.Time
}

// NewLocalStorage creates a new local filesystem archive
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath, now: time.Now}, nil
}

// Save stores a file under a unique name and records its size and SHA-256.
func (s *LocalStorage) Save(ctx context.Context, account, filename, contentType string, r io.Reader) (*FileInfo, error) {
	fileID := uuid.New()

	accountDir := s.accountDir(account)
	if err := os.MkdirAll(accountDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create account directory: %w", err)
	}

	storedFilename := fmt.Sprintf("%s_%s", fileID.String()[:8], sanitizeFilename(filename))
	filePath := filepath.Join(accountDir, storedFilename)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), r)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		ID:          fileID,
		Account:     account,
		Name:        filename,
		Size:        size,
		SHA256:      hex.EncodeToString(hash.Sum(nil)),
		ContentType: contentType,
		Path:        storedFilename,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.saveMetadata(account, info); err != nil {
		os.Remove(filePath)
		return nil, err
	}
	return info, nil
}

// Open retrieves an archived file by its ID
func (s *LocalStorage) Open(ctx context.Context, account string, id uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.getInfo(account, id)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.accountDir(account), info.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, info, nil
}

// List returns all archived files of an account, oldest first.
func (s *LocalStorage) List(ctx context.Context, account string) ([]*FileInfo, error) {
	metaDir := filepath.Join(s.accountDir(account), ".meta")
	entries, err := os.ReadDir(metaDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		info, err := s.getInfo(account, id)
		if err != nil {
			continue
		}
		files = append(files, info)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].CreatedAt.Before(files[j].CreatedAt)
	})
	return files, nil
}

func (s *LocalStorage) getInfo(account string, id uuid.UUID) (*FileInfo, error) {
	metaPath := filepath.Join(s.accountDir(account), ".meta", id.String()+".json")

	data, err := os.ReadFile(metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &info, nil
}

// saveMetadata saves file metadata to a JSON file
func (s *LocalStorage) saveMetadata(account string, info *FileInfo) error {
	metaDir := filepath.Join(s.accountDir(account), ".meta")
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(filepath.Join(metaDir, info.ID.String()+".json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

func (s *LocalStorage) accountDir(account string) string {
	name := sanitizeFilename(strings.TrimSpace(account))
	if name == "" {
		name = "default"
	}
	return filepath.Join(s.basePath, name)
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	"..", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	return filenameReplacer.Replace(name)
}

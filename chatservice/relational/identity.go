package relational

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// anonPrefix 本地匿名身分的前綴
const anonPrefix = "anon_"

// LocalIdentity 是存在本機檔案中的匿名身分，第一次產生後一直沿用
type LocalIdentity struct {
	path string

	mu sync.Mutex
	id string
}

func NewLocalIdentity(path string) *LocalIdentity {
	return &LocalIdentity{path: path}
}

// Load 讀取已保存的身分，沒有時產生 anon_<uuid> 並寫入檔案
func (l *LocalIdentity) Load() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.id != "" {
		return l.id, nil
	}

	data, err := os.ReadFile(l.path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(data)); id != "" {
			l.id = id
			return id, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read identity file: %w", err)
	}

	id := anonPrefix + uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return "", fmt.Errorf("create identity dir: %w", err)
	}
	if err := os.WriteFile(l.path, []byte(id), 0o600); err != nil {
		return "", fmt.Errorf("write identity file: %w", err)
	}
	l.id = id
	return id, nil
}

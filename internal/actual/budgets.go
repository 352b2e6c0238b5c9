package actual

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shaiso/actual-bridge/internal/domain"
)

// remoteFile — файл бюджета на сервере (/sync/list-user-files).
type remoteFile struct {
	Deleted      flexBool `json:"deleted"`
	FileID       string   `json:"fileId"`
	GroupID      string   `json:"groupId"`
	Name         string   `json:"name"`
	EncryptKeyID string   `json:"encryptKeyId"`
}

// encryptMeta — параметры шифрования файла (/sync/get-user-file-info).
type encryptMeta struct {
	KeyID     string `json:"keyId"`
	Algorithm string `json:"algorithm"`
	IV        string `json:"iv"`
	AuthTag   string `json:"authTag"`
}

type fileInfo struct {
	remoteFile
	EncryptMeta *encryptMeta `json:"encryptMeta"`
}

// flexBool принимает и true/false, и 0/1.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", "1":
		*b = true
	case "false", "0", "null":
		*b = false
	default:
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("invalid boolean %s", data)
		}
		*b = flexBool(v)
	}
	return nil
}

// listRemoteFiles возвращает не удалённые файлы сервера.
func (c *Client) listRemoteFiles(ctx context.Context) ([]remoteFile, error) {
	var files []remoteFile
	if err := c.doJSON(ctx, http.MethodGet, "/sync/list-user-files", nil, nil, &files); err != nil {
		return nil, fmt.Errorf("list user files: %w", err)
	}

	live := files[:0]
	for _, f := range files {
		if !f.Deleted {
			live = append(live, f)
		}
	}
	return live, nil
}

// findRemoteFile ищет файл по GroupID или FileID.
func (c *Client) findRemoteFile(ctx context.Context, id string) (*remoteFile, error) {
	files, err := c.listRemoteFiles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range files {
		if files[i].GroupID == id || files[i].FileID == id {
			return &files[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
}

// stagingPrefix — префикс временных каталогов распаковки.
const stagingPrefix = ".download-"

// localBudgets читает metadata.json всех подкаталогов каталога данных.
// Каталоги без читаемой metadata.json пропускаются.
func (c *Client) localBudgets() ([]*Metadata, error) {
	entries, err := os.ReadDir(c.dataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var metas []*Metadata
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), stagingPrefix) {
			continue
		}
		meta, err := readMetadata(filepath.Join(c.dataDir, e.Name()))
		if err != nil {
			c.logger.Debug("skipping local budget dir", "dir", e.Name(), "error", err)
			continue
		}
		// ID — это имя каталога, даже если metadata.json говорит иное
		meta.ID = e.Name()
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].ID < metas[j].ID })
	return metas, nil
}

// ListBudgets возвращает локальные копии и файлы сервера.
//
// Сначала идут локальные копии (state local/synced/detached),
// затем файлы сервера без локальной копии (state remote).
func (c *Client) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireInit(); err != nil {
		return nil, err
	}

	locals, err := c.localBudgets()
	if err != nil {
		return nil, err
	}
	remotes, err := c.listRemoteFiles(ctx)
	if err != nil {
		return nil, err
	}

	return mergeBudgets(locals, remotes), nil
}

func mergeBudgets(locals []*Metadata, remotes []remoteFile) []domain.Budget {
	byFileID := make(map[string]*remoteFile, len(remotes))
	for i := range remotes {
		byFileID[remotes[i].FileID] = &remotes[i]
	}

	matched := make(map[string]bool)
	budgets := make([]domain.Budget, 0, len(locals)+len(remotes))

	for _, m := range locals {
		b := domain.Budget{
			Name:         m.BudgetName,
			ID:           m.ID,
			GroupID:      m.GroupID,
			CloudFileID:  m.CloudFileID,
			EncryptKeyID: m.EncryptKeyID,
			State:        domain.BudgetStateLocal,
		}
		if m.CloudFileID != "" {
			if r, ok := byFileID[m.CloudFileID]; ok {
				b.State = domain.BudgetStateSynced
				b.GroupID = r.GroupID
				b.EncryptKeyID = r.EncryptKeyID
				matched[r.FileID] = true
			} else {
				b.State = domain.BudgetStateDetached
			}
		}
		budgets = append(budgets, b)
	}

	for _, r := range remotes {
		if matched[r.FileID] {
			continue
		}
		budgets = append(budgets, domain.Budget{
			Name:         r.Name,
			GroupID:      r.GroupID,
			CloudFileID:  r.FileID,
			EncryptKeyID: r.EncryptKeyID,
			State:        domain.BudgetStateRemote,
		})
	}

	return budgets
}

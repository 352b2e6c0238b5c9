package actual

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// Download скачивает файл бюджета по GroupID или FileID и распаковывает
// его в новый каталог <dataDir>/<localID>. Возвращает localID.
//
// Зашифрованный файл расшифровывается паролем filePassword.
func (c *Client) Download(ctx context.Context, remoteID, filePassword string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireInit(); err != nil {
		return "", err
	}

	// 1. Находим файл на сервере
	file, err := c.findRemoteFile(ctx, remoteID)
	if err != nil {
		return "", err
	}
	logger := c.logger.With("file_id", file.FileID, "group_id", file.GroupID)

	// 2. Параметры шифрования
	var info fileInfo
	headers := map[string]string{headerFileID: file.FileID}
	if err := c.doJSON(ctx, http.MethodGet, "/sync/get-user-file-info", headers, nil, &info); err != nil {
		return "", fmt.Errorf("get file info: %w", err)
	}

	// 3. Скачиваем
	blob, err := c.do(ctx, http.MethodGet, "/sync/download-user-file", headers, "", nil)
	if err != nil {
		return "", fmt.Errorf("download file: %w", err)
	}
	logger.Info("budget file downloaded", "bytes", len(blob))

	// 4. Расшифровываем
	if info.EncryptMeta != nil && info.EncryptMeta.IV != "" {
		key, err := c.fetchKey(ctx, file.FileID, filePassword)
		if err != nil {
			return "", err
		}
		if blob, err = decryptFile(key, info.EncryptMeta, blob); err != nil {
			return "", err
		}
	}

	// 5. Распаковываем: существующая копия того же файла заменяется,
	// иначе создаётся новый каталог
	localID := c.localCopyOf(file.FileID)
	if localID == "" {
		localID = newLocalID(file.Name)
	} else {
		logger.Info("replacing existing local copy", "local_id", localID)
	}
	dir := filepath.Join(c.dataDir, localID)
	if err := replaceDir(c.dataDir, dir, func(tmp string) error { return extractBudget(blob, tmp) }); err != nil {
		return "", err
	}

	// 6. Привязываем копию к файлу сервера
	meta, err := readMetadata(dir)
	if err != nil {
		meta = &Metadata{}
	}
	meta.ID = localID
	meta.BudgetName = file.Name
	meta.CloudFileID = file.FileID
	meta.GroupID = file.GroupID
	meta.EncryptKeyID = file.EncryptKeyID
	if err := meta.write(dir); err != nil {
		os.RemoveAll(dir)
		return "", err
	}

	logger.Info("budget materialized", "local_id", localID)
	return localID, nil
}

// localCopyOf возвращает ID локальной копии, привязанной к файлу сервера.
// Загруженный сейчас бюджет не возвращается: его каталог занят репликой.
func (c *Client) localCopyOf(fileID string) string {
	metas, err := c.localBudgets()
	if err != nil {
		return ""
	}
	for _, m := range metas {
		if m.CloudFileID != fileID {
			continue
		}
		if c.meta != nil && c.meta.ID == m.ID {
			continue
		}
		return m.ID
	}
	return ""
}

// replaceDir заполняет временный каталог через fill и подменяет им dir.
// При ошибке распаковки dir остаётся нетронутым.
func replaceDir(dataDir, dir string, fill func(tmp string) error) error {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.MkdirTemp(dataDir, stagingPrefix)
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	if err := fill(tmp); err != nil {
		os.RemoveAll(tmp)
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("remove old copy: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("install budget dir: %w", err)
	}
	return nil
}

// extractBudget распаковывает db.sqlite и metadata.json из zip-архива.
// Остальные файлы архива игнорируются.
func extractBudget(blob []byte, dir string) error {
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return fmt.Errorf("open budget archive: %w", err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create budget dir: %w", err)
	}

	var hasDB bool
	for _, f := range zr.File {
		name := path.Base(f.Name)
		if name != databaseFile && name != metadataFile {
			continue
		}
		if err := extractFile(f, filepath.Join(dir, name)); err != nil {
			return err
		}
		if name == databaseFile {
			hasDB = true
		}
	}

	if !hasDB {
		return fmt.Errorf("budget archive has no %s", databaseFile)
	}
	return nil
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}

// Load открывает локальную копию и делает её активным бюджетом.
//
// filePassword запоминается для расшифровки сообщений синхронизации
// зашифрованных бюджетов.
func (c *Client) Load(_ context.Context, localID, filePassword string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dataDir == "" {
		return ErrNotInitialized
	}

	dir := filepath.Join(c.dataDir, localID)
	meta, err := readMetadata(dir)
	if err != nil {
		return err
	}
	meta.ID = localID

	dbPath := filepath.Join(dir, databaseFile)
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("%w: %s", ErrLocalNotFound, dbPath)
	}

	replica, err := OpenReplica(dbPath)
	if err != nil {
		return err
	}

	if c.replica != nil {
		if err := c.replica.Close(); err != nil {
			c.logger.Warn("failed to close previous replica", "error", err)
		}
	}

	c.replica = replica
	c.meta = meta
	c.filePassword = filePassword
	c.key = nil

	c.logger.Info("budget loaded", "local_id", localID, "name", meta.BudgetName)
	return nil
}

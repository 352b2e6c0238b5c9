package actual

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	metadataFile = "metadata.json"
	databaseFile = "db.sqlite"
)

// Metadata — metadata.json локальной копии бюджета.
//
// Неизвестные поля сохраняются при перезаписи.
type Metadata struct {
	ID                  string `json:"id"`
	BudgetName          string `json:"budgetName"`
	CloudFileID         string `json:"cloudFileId,omitempty"`
	GroupID             string `json:"groupId,omitempty"`
	EncryptKeyID        string `json:"encryptKeyId,omitempty"`
	LastSyncedTimestamp string `json:"lastSyncedTimestamp,omitempty"`
	LastUploaded        string `json:"lastUploaded,omitempty"`

	raw map[string]json.RawMessage
}

// readMetadata читает metadata.json из каталога бюджета.
func readMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLocalNotFound, dir)
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return parseMetadata(data)
}

func parseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	if err := json.Unmarshal(data, &m.raw); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &m, nil
}

// write атомарно перезаписывает metadata.json.
func (m *Metadata) write(dir string) error {
	out := make(map[string]json.RawMessage, len(m.raw)+7)
	for k, v := range m.raw {
		out[k] = v
	}

	set := func(key, value string) {
		if value == "" {
			delete(out, key)
			return
		}
		b, _ := json.Marshal(value)
		out[key] = b
	}
	set("id", m.ID)
	set("budgetName", m.BudgetName)
	set("cloudFileId", m.CloudFileID)
	set("groupId", m.GroupID)
	set("encryptKeyId", m.EncryptKeyID)
	set("lastSyncedTimestamp", m.LastSyncedTimestamp)
	set("lastUploaded", m.LastUploaded)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tmp := filepath.Join(dir, metadataFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, metadataFile)); err != nil {
		return fmt.Errorf("replace metadata: %w", err)
	}
	m.raw = out
	return nil
}

var nonIDChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

// newLocalID строит локальный ID из имени бюджета: "My-Finances-1a2b3c4".
func newLocalID(name string) string {
	slug := strings.Trim(nonIDChars.ReplaceAllString(name, "-"), "-")
	if slug == "" {
		slug = "Budget"
	}
	return slug + "-" + uuid.NewString()[:7]
}

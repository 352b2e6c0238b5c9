package actual

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/shaiso/actual-bridge/internal/domain"
)

// zeroTimestamp — метка "с начала времён" для первой синхронизации.
const zeroTimestamp = "1970-01-01T00:00:00.000Z-0000-0000000000000000"

const syncContentType = "application/actual-sync"

// Sync выполняет один проход синхронизации: запрашивает у сервера
// сообщения после последней известной метки и применяет их к реплике.
//
// Локальные изменения на сервер не отправляются.
// Бюджет без привязки к серверу (нет GroupID) пропускается.
func (c *Client) Sync(ctx context.Context) (*domain.SyncResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireInit(); err != nil {
		return nil, err
	}
	if err := c.requireLoaded(); err != nil {
		return nil, err
	}

	result := &domain.SyncResult{
		BudgetID:  c.meta.ID,
		Timestamp: c.meta.LastSyncedTimestamp,
	}
	if c.meta.GroupID == "" {
		c.logger.Debug("budget is not linked to server, skipping sync", "local_id", c.meta.ID)
		return result, nil
	}

	// Ключ нужен до запроса: его ID уходит в SyncRequest
	if c.meta.EncryptKeyID != "" && c.key == nil {
		key, err := c.fetchKey(ctx, c.meta.CloudFileID, c.filePassword)
		if err != nil {
			return nil, fmt.Errorf("encryption key: %w", err)
		}
		c.key = key
	}

	since := c.meta.LastSyncedTimestamp
	if since == "" {
		since = zeroTimestamp
	}

	req := &syncRequest{
		FileID:  c.meta.CloudFileID,
		GroupID: c.meta.GroupID,
		Since:   since,
	}
	if c.key != nil {
		req.KeyID = c.key.id
	}

	raw, err := c.do(ctx, http.MethodPost, "/sync/sync", nil, syncContentType, req.marshal())
	if err != nil {
		return nil, fmt.Errorf("sync request: %w", err)
	}

	resp, err := unmarshalSyncResponse(raw)
	if err != nil {
		return nil, err
	}

	msgs, latest, err := c.openEnvelopes(resp.Messages)
	if err != nil {
		return nil, err
	}

	applied, err := c.replica.Apply(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("apply messages: %w", err)
	}

	if latest > since {
		c.meta.LastSyncedTimestamp = latest
		if err := c.meta.write(filepath.Join(c.dataDir, c.meta.ID)); err != nil {
			return nil, err
		}
		result.Timestamp = latest
	}

	result.Applied = applied
	c.logger.Debug("sync applied",
		"local_id", c.meta.ID,
		"received", len(resp.Messages),
		"applied", applied,
		"timestamp", result.Timestamp,
	)
	return result, nil
}

// openEnvelopes расшифровывает и разбирает сообщения.
// Возвращает сообщения и максимальную метку времени.
func (c *Client) openEnvelopes(envs []messageEnvelope) ([]Message, string, error) {
	msgs := make([]Message, 0, len(envs))
	var latest string

	for _, env := range envs {
		content := env.Content
		if env.IsEncrypted {
			if c.key == nil {
				return nil, "", ErrPasswordRequired
			}
			enc, err := unmarshalEncryptedData(content)
			if err != nil {
				return nil, "", err
			}
			if content, err = decrypt(c.key.key, enc.IV, enc.AuthTag, enc.Data); err != nil {
				return nil, "", err
			}
		}

		m, err := unmarshalMessage(content)
		if err != nil {
			return nil, "", err
		}
		m.Timestamp = env.Timestamp
		msgs = append(msgs, m)

		if env.Timestamp > latest {
			latest = env.Timestamp
		}
	}

	return msgs, latest, nil
}

// ListAccounts возвращает счета загруженного бюджета.
func (c *Client) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireLoaded(); err != nil {
		return nil, err
	}
	return c.replica.Accounts(ctx)
}

// ListTransactions возвращает транзакции счёта за период [start, end].
func (c *Client) ListTransactions(ctx context.Context, accountID, start, end string) ([]domain.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireLoaded(); err != nil {
		return nil, err
	}
	return c.replica.Transactions(ctx, accountID, start, end)
}

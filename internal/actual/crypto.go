package actual

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/crypto/pbkdf2"
)

// Параметры вывода ключа (совпадают с клиентами Actual).
const (
	keyIterations = 10000
	keyLength     = 32
)

// fileKey — ключ шифрования файла бюджета.
type fileKey struct {
	id  string
	key []byte
}

// keyInfo — ответ /sync/user-get-key.
type keyInfo struct {
	ID   string `json:"id"`
	Salt string `json:"salt"`

	// Test — JSON {value, meta}: произвольное значение, зашифрованное
	// этим ключом. Позволяет проверить пароль до скачивания файла.
	Test string `json:"test"`
}

// keyTest — разобранное поле keyInfo.Test.
type keyTest struct {
	Value string      `json:"value"`
	Meta  encryptMeta `json:"meta"`
}

// deriveKey выводит AES-256 ключ из пароля: PBKDF2-SHA512, 10000 итераций.
func deriveKey(password, salt string) []byte {
	return pbkdf2.Key([]byte(password), []byte(salt), keyIterations, keyLength, sha512.New)
}

// fetchKey получает соль ключа с сервера и выводит ключ из пароля.
func (c *Client) fetchKey(ctx context.Context, fileID, password string) (*fileKey, error) {
	if password == "" {
		return nil, ErrPasswordRequired
	}

	var info keyInfo
	body := map[string]string{"fileId": fileID}
	if err := c.doJSON(ctx, http.MethodPost, "/sync/user-get-key", nil, body, &info); err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}
	if info.Salt == "" {
		return nil, fmt.Errorf("get key: server returned no salt for file %s", fileID)
	}

	key := &fileKey{id: info.ID, key: deriveKey(password, info.Salt)}
	if info.Test != "" {
		if err := verifyKey(key, info.Test); err != nil {
			return nil, err
		}
	}
	return key, nil
}

// verifyKey расшифровывает тестовое значение сервера.
// Неудача означает неверный пароль файла.
func verifyKey(key *fileKey, test string) error {
	var kt keyTest
	if err := json.Unmarshal([]byte(test), &kt); err != nil {
		return fmt.Errorf("get key: malformed key test: %w", err)
	}

	value, err := base64.StdEncoding.DecodeString(kt.Value)
	if err != nil {
		return fmt.Errorf("get key: decode key test: %w", err)
	}

	if _, err := decryptFile(key, &kt.Meta, value); err != nil {
		return fmt.Errorf("%w: %v", ErrWrongFilePassword, err)
	}
	return nil
}

// decrypt расшифровывает AES-256-GCM данные с отдельным authTag.
func decrypt(key, iv, authTag, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	sealed := make([]byte, 0, len(data)+len(authTag))
	sealed = append(sealed, data...)
	sealed = append(sealed, authTag...)

	plain, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plain, nil
}

// decryptFile расшифровывает скачанный файл по encryptMeta.
func decryptFile(key *fileKey, meta *encryptMeta, blob []byte) ([]byte, error) {
	if meta.Algorithm != "" && meta.Algorithm != "aes-256-gcm" {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrDecrypt, meta.Algorithm)
	}
	if meta.KeyID != "" && key.id != "" && meta.KeyID != key.id {
		return nil, fmt.Errorf("%w: key id mismatch", ErrDecrypt)
	}

	iv, err := base64.StdEncoding.DecodeString(meta.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: decode iv: %v", ErrDecrypt, err)
	}
	tag, err := base64.StdEncoding.DecodeString(meta.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("%w: decode auth tag: %v", ErrDecrypt, err)
	}

	return decrypt(key.key, iv, tag, blob)
}

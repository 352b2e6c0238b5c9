package actual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultHTTPTimeout = 30 * time.Second

	headerToken  = "X-ACTUAL-TOKEN"
	headerFileID = "X-ACTUAL-FILE-ID"
)

// Client — клиент сервера синхронизации с одной загруженной копией бюджета.
//
// Все операции сериализуются мьютексом: реплика открыта в одном соединении,
// проходы синхронизации не должны пересекаться.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	serverURL string
	dataDir   string
	token     string

	// Загруженный бюджет
	replica      *Replica
	meta         *Metadata
	filePassword string
	key          *fileKey
}

// Config — конфигурация Client.
type Config struct {
	// HTTPClient — HTTP-клиент (по умолчанию с таймаутом 30s).
	HTTPClient *http.Client

	Logger *slog.Logger
}

// New создаёт новый Client. Перед использованием нужен Init.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

// Init запоминает сервер и каталог данных и получает токен по паролю.
func (c *Client) Init(ctx context.Context, serverURL, password, dataDir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.serverURL = strings.TrimRight(serverURL, "/")
	c.dataDir = dataDir

	body := map[string]string{
		"loginMethod": "password",
		"password":    password,
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/account/login", nil, body, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("login: %w: empty token", ErrUnauthorized)
	}

	c.token = resp.Token
	c.logger.Info("logged in to actual server", "server", c.serverURL)
	return nil
}

// Shutdown закрывает загруженную реплику и забывает токен.
func (c *Client) Shutdown(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.replica != nil {
		err = c.replica.Close()
		c.replica = nil
	}
	c.meta = nil
	c.key = nil
	c.token = ""
	return err
}

func (c *Client) requireInit() error {
	if c.token == "" {
		return ErrNotInitialized
	}
	return nil
}

func (c *Client) requireLoaded() error {
	if c.replica == nil || c.meta == nil {
		return ErrNoBudgetLoaded
	}
	return nil
}

// --- HTTP helpers ---

// envelope — обёртка ответов сервера: {"status":"ok","data":...}.
type envelope struct {
	Status string          `json:"status"`
	Reason string          `json:"reason"`
	Data   json.RawMessage `json:"data"`
}

// doJSON выполняет JSON-запрос и разворачивает ответ в out.
func (c *Client) doJSON(ctx context.Context, method, path string, headers map[string]string, in, out any) error {
	var body []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = data
	}

	raw, err := c.do(ctx, method, path, headers, "application/json", body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	if env.Status != "ok" {
		return &ServerError{Path: path, Status: http.StatusOK, Reason: env.Reason}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s data: %w", path, err)
		}
	}
	return nil
}

// do выполняет запрос и возвращает тело ответа.
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, contentType string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set(headerToken, c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode >= 400 {
		serr := &ServerError{Path: path, Status: resp.StatusCode, Reason: reasonOf(data)}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, serr)
		}
		return nil, serr
	}

	return data, nil
}

// reasonOf извлекает причину ошибки из тела ответа.
func reasonOf(data []byte) string {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Reason != "" {
		return env.Reason
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

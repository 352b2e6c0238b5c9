package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// BudgetResponse — бюджет из /budgets и /debug/budgets.
type BudgetResponse struct {
	Name        string  `json:"name"`
	ID          *string `json:"id"`
	GroupID     *string `json:"groupId"`
	CloudFileID *string `json:"cloudFileId"`
	State       string  `json:"state"`
}

// AccountResponse — счёт из /accounts.
type AccountResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OffBudget bool   `json:"offbudget"`
	Closed    bool   `json:"closed"`
}

// TransactionResponse — транзакция из /transactions.
type TransactionResponse struct {
	ID         string  `json:"id"`
	Date       string  `json:"date"`
	Amount     *int64  `json:"amount"`
	Account    *string `json:"account"`
	Payee      *string `json:"payee"`
	Category   *string `json:"category"`
	Notes      *string `json:"notes"`
	ImportedID *string `json:"imported_id"`
	TransferID *string `json:"transfer_id"`
	Cleared    bool    `json:"cleared"`
}

// TransactionsResponse — JSON-ответ /transactions.
type TransactionsResponse struct {
	Account      AccountResponse       `json:"account"`
	Start        string                `json:"start"`
	End          string                `json:"end"`
	Count        int                   `json:"count"`
	Transactions []TransactionResponse `json:"transactions"`
}

// SyncRecordResponse — запись журнала синхронизаций.
type SyncRecordResponse struct {
	ID         string `json:"id"`
	BudgetID   string `json:"budget_id"`
	Trigger    string `json:"trigger"`
	Status     string `json:"status"`
	Messages   int    `json:"messages"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	DurationMs int64  `json:"duration_ms"`
}

// TransactionsOpts — параметры выборки транзакций.
type TransactionsOpts struct {
	// Account — ID или имя счёта.
	Account string
	Start   string
	End     string
}

func (o TransactionsOpts) query(format string) url.Values {
	params := url.Values{}
	params.Set("account", o.Account)
	params.Set("start", o.Start)
	params.Set("end", o.End)
	if format != "" {
		params.Set("format", format)
	}
	return params
}

// --- API response wrappers ---

type okResponse struct {
	OK bool `json:"ok"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для actual-bridge API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Первый запрос может скачивать бюджет целиком.
			Timeout: 2 * time.Minute,
		},
	}
}

// Health проверяет, что сервис отвечает.
func (c *Client) Health() error {
	return c.expectOK(http.MethodGet, "/health")
}

// --- Budgets ---

// ListBudgets возвращает бюджеты в нормализованной форме.
func (c *Client) ListBudgets() ([]BudgetResponse, error) {
	var budgets []BudgetResponse
	err := c.get("/budgets", nil, &budgets)
	return budgets, err
}

// DebugBudgets возвращает сырой листинг бюджетов без загрузки бюджета.
func (c *Client) DebugBudgets() ([]BudgetResponse, error) {
	var budgets []BudgetResponse
	err := c.get("/debug/budgets", nil, &budgets)
	return budgets, err
}

// --- Accounts & transactions ---

// ListAccounts возвращает счета загруженного бюджета.
func (c *Client) ListAccounts() ([]AccountResponse, error) {
	var accounts []AccountResponse
	err := c.get("/accounts", nil, &accounts)
	return accounts, err
}

// ListTransactions возвращает транзакции счёта за период.
func (c *Client) ListTransactions(opts TransactionsOpts) (*TransactionsResponse, error) {
	var txs TransactionsResponse
	err := c.get("/transactions", opts.query(""), &txs)
	return &txs, err
}

// ExportTransactions возвращает CSV-выгрузку транзакций и имя файла,
// предложенное сервером.
func (c *Client) ExportTransactions(opts TransactionsOpts) ([]byte, string, error) {
	resp, err := c.do(http.MethodGet, "/transactions?"+opts.query("csv").Encode())
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, "", err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	return data, attachmentName(resp.Header.Get("Content-Disposition")), nil
}

// --- Sync ---

// Sync запускает синхронизацию на сервере.
func (c *Client) Sync() error {
	return c.expectOK(http.MethodPost, "/sync")
}

// SyncHistory возвращает последние записи журнала синхронизаций.
func (c *Client) SyncHistory(limit int) ([]SyncRecordResponse, int, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var lr listResponse
	if err := c.get("/sync/history", params, &lr); err != nil {
		return nil, 0, err
	}

	var records []SyncRecordResponse
	if err := json.Unmarshal(lr.Data, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, lr.Total, nil
}

// --- HTTP helpers ---

func (c *Client) get(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) expectOK(method, path string) error {
	resp, err := c.do(method, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var ok okResponse
	if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !ok.OK {
		return fmt.Errorf("unexpected response from %s", path)
	}
	return nil
}

func (c *Client) do(method, path string) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}

// attachmentName достаёт filename из Content-Disposition.
func attachmentName(header string) string {
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

package domain

// Transaction — транзакция из локальной реплики бюджета.
//
// Система только читает транзакции. Nil-поля соответствуют NULL в реплике.
type Transaction struct {
	ID string `json:"id"`

	// Date — дата в формате YYYY-MM-DD.
	Date string `json:"date"`

	// Amount — сумма в центах (отрицательная для расходов).
	Amount *int64 `json:"amount"`

	Account    *string `json:"account"`
	Payee      *string `json:"payee"`
	Category   *string `json:"category"`
	Notes      *string `json:"notes"`
	ImportedID *string `json:"imported_id"`
	TransferID *string `json:"transfer_id"`
	Cleared    bool    `json:"cleared"`
}

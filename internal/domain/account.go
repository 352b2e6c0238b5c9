package domain

import "errors"

// ErrAccountNotFound — счёт не найден ни по ID, ни по имени.
var ErrAccountNotFound = errors.New("account not found")

// Account — счёт в загруженном бюджете.
type Account struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OffBudget bool   `json:"offbudget"`
	Closed    bool   `json:"closed"`
}

// FindAccount ищет счёт по точному совпадению ID или имени.
// ID имеет приоритет: сначала проверяются все ID, затем имена.
func FindAccount(accounts []Account, ref string) (*Account, error) {
	for i := range accounts {
		if accounts[i].ID == ref {
			return &accounts[i], nil
		}
	}
	for i := range accounts {
		if accounts[i].Name == ref {
			return &accounts[i], nil
		}
	}
	return nil, ErrAccountNotFound
}

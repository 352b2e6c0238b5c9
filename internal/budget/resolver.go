// Package budget выбирает бюджет, с которым работает сервис.
package budget

import (
	"errors"

	"github.com/shaiso/actual-bridge/internal/domain"
)

// ErrNoBudgetsFound — сервер и каталог данных не содержат ни одного бюджета.
var ErrNoBudgetsFound = errors.New("no budgets found")

// Resolve выбирает один бюджет из списка.
//
// Порядок (первое совпадение побеждает):
//  1. бюджет, у которого ID, GroupID или CloudFileID равен preferred;
//  2. первый уже скачанный бюджет (с непустым ID);
//  3. первый бюджет в списке.
func Resolve(budgets []domain.Budget, preferred string) (*domain.Budget, error) {
	if len(budgets) == 0 {
		return nil, ErrNoBudgetsFound
	}

	if preferred != "" {
		for i := range budgets {
			if budgets[i].Matches(preferred) {
				return &budgets[i], nil
			}
		}
	}

	for i := range budgets {
		if budgets[i].IsLocal() {
			return &budgets[i], nil
		}
	}

	return &budgets[0], nil
}

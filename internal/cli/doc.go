// Package cli реализует инструмент командной строки actual-bridge.
//
// # Обзор
//
// CLI — клиентская утилита для HTTP API моста.
// Работает через HTTP, не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Инкапсулирует запросы, парсинг ответов
// и конверт ошибок {"error":{"code","message"}}.
//
//	client := cli.NewClient("http://localhost:8080")
//	accounts, err := client.ListAccounts()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// CSV-выгрузку можно направить в pipe: bridge transactions ... --csv > out.csv
//
// ## Commands
//
//   - health
//   - budget list [--debug]
//   - accounts
//   - transactions --account --start --end [--csv] [-o FILE]
//   - sync, sync history [--limit]
//
// Каждая команда создаётся фабричной функцией (NewSyncCmd и т.д.),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli

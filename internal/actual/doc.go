// Package actual — клиент сервера синхронизации Actual Budget.
//
// Структура:
//   - client.go   — Client: инициализация, HTTP-вызовы к серверу
//   - budgets.go  — листинг бюджетов (локальные копии + файлы сервера)
//   - files.go    — скачивание, распаковка и загрузка бюджета
//   - sync.go     — проход синхронизации
//   - metadata.go — metadata.json локальной копии
//   - replica.go  — SQLite-реплика: счета, транзакции, применение сообщений
//   - proto.go    — protobuf-кодек протокола синхронизации
//   - crypto.go   — расшифровка файлов и сообщений (AES-256-GCM)
//   - value.go    — кодирование значений в сообщениях ("0:", "N:", "S:")
//
// Локальные копии хранятся в <dataDir>/<localID>/{db.sqlite,metadata.json}.
package actual

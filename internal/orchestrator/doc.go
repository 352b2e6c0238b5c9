// Package orchestrator доводит клиент синхронизации до готовности.
//
// Orchestrator отвечает за:
//   - Однократную инициализацию клиента (Uninitialized → SdkReady)
//   - Выбор бюджета и его загрузку: локально или скачиванием (SdkReady → FullyReady)
//   - Первичную синхронизацию
//   - Проходы синхронизации с записью в журнал и публикацией событий
//
// Переходы однонаправленные и идемпотентные: повторный вызов
// в уже достигнутом состоянии ничего не делает.
package orchestrator

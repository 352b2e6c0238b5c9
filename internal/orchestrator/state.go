package orchestrator

// State — состояние готовности клиента.
//
// Жизненный цикл:
//
//	Uninitialized → SdkReady → FullyReady
//
// Переходы только вперёд, сброс — только рестартом процесса.
type State int32

const (
	// StateUninitialized — клиент ещё не инициализирован.
	StateUninitialized State = iota

	// StateSDKReady — клиент инициализирован, бюджет не загружен.
	StateSDKReady

	// StateFullyReady — бюджет загружен и синхронизирован.
	StateFullyReady
)

// String возвращает имя состояния.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSDKReady:
		return "sdk_ready"
	case StateFullyReady:
		return "fully_ready"
	default:
		return "unknown"
	}
}

// AtLeast проверяет, достигнуто ли состояние other.
func (s State) AtLeast(other State) bool {
	return s >= other
}

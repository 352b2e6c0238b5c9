package domain

// Budget — описание одного файла бюджета (descriptor).
//
// Возвращается листингом клиента: объединяет локальные копии
// из каталога данных и файлы, известные серверу синхронизации.
//
// ID заполнен только для материализованных (скачанных) бюджетов.
// GroupID и CloudFileID заполнены для бюджетов, известных серверу.
type Budget struct {
	// Name — имя бюджета.
	Name string `json:"name"`

	// ID — локальный идентификатор (имя подкаталога в каталоге данных).
	ID string `json:"id,omitempty"`

	// GroupID — идентификатор группы синхронизации на сервере.
	GroupID string `json:"groupId,omitempty"`

	// CloudFileID — идентификатор файла на сервере.
	CloudFileID string `json:"cloudFileId,omitempty"`

	// State — состояние относительно локальной копии.
	State BudgetState `json:"state,omitempty"`

	// EncryptKeyID — идентификатор ключа шифрования файла (если зашифрован).
	EncryptKeyID string `json:"encryptKeyId,omitempty"`
}

// Matches проверяет, совпадает ли id с любым из идентификаторов бюджета.
func (b *Budget) Matches(id string) bool {
	if id == "" {
		return false
	}
	return b.ID == id || b.GroupID == id || b.CloudFileID == id
}

// IsLocal возвращает true, если бюджет уже скачан локально.
func (b *Budget) IsLocal() bool {
	return b.ID != ""
}

package actual

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Кодирование ответов и разбор запросов — только для фейкового сервера в тестах.

func (r *syncResponse) marshal() []byte {
	var b []byte
	for i := range r.Messages {
		b = appendBytes(b, 1, r.Messages[i].marshal())
	}
	b = appendString(b, 2, r.Merkle)
	return b
}

func (m *Message) marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Dataset)
	b = appendString(b, 2, m.Row)
	b = appendString(b, 3, m.Column)
	b = appendString(b, 4, m.Value)
	return b
}

func (d *encryptedData) marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, d.IV)
	b = appendBytes(b, 2, d.AuthTag)
	b = appendBytes(b, 3, d.Data)
	return b
}

func unmarshalSyncRequest(b []byte) (*syncRequest, error) {
	var r syncRequest
	err := parseFields(b, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			e, err := unmarshalEnvelope(f.bytes)
			if err != nil {
				return fmt.Errorf("envelope: %w", err)
			}
			r.Messages = append(r.Messages, e)
		case 2:
			r.FileID = string(f.bytes)
		case 3:
			r.GroupID = string(f.bytes)
		case 5:
			r.KeyID = string(f.bytes)
		case 6:
			r.Since = string(f.bytes)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode sync request: %w", err)
	}
	return &r, nil
}

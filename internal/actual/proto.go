package actual

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Сообщения протокола /sync/sync.
//
//	SyncRequest     { repeated MessageEnvelope messages = 1; string fileId = 2;
//	                  string groupId = 3; string keyId = 5; string since = 6; }
//	SyncResponse    { repeated MessageEnvelope messages = 1; string merkle = 2; }
//	MessageEnvelope { string timestamp = 1; bool isEncrypted = 2; bytes content = 3; }
//	Message         { string dataset = 1; string row = 2; string column = 3; string value = 4; }
//	EncryptedData   { bytes iv = 1; bytes authTag = 2; bytes data = 3; }

// Message — одно CRDT-изменение: dataset.row.column = value.
type Message struct {
	Timestamp string
	Dataset   string
	Row       string
	Column    string
	Value     string
}

type messageEnvelope struct {
	Timestamp   string
	IsEncrypted bool
	Content     []byte
}

type syncRequest struct {
	Messages []messageEnvelope
	FileID   string
	GroupID  string
	KeyID    string
	Since    string
}

type syncResponse struct {
	Messages []messageEnvelope
	Merkle   string
}

type encryptedData struct {
	IV      []byte
	AuthTag []byte
	Data    []byte
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func (e *messageEnvelope) marshal() []byte {
	var b []byte
	b = appendString(b, 1, e.Timestamp)
	if e.IsEncrypted {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	b = appendBytes(b, 3, e.Content)
	return b
}

func (r *syncRequest) marshal() []byte {
	var b []byte
	for i := range r.Messages {
		b = appendBytes(b, 1, r.Messages[i].marshal())
	}
	b = appendString(b, 2, r.FileID)
	b = appendString(b, 3, r.GroupID)
	b = appendString(b, 5, r.KeyID)
	b = appendString(b, 6, r.Since)
	return b
}

// field — значение одного поля protobuf.
type field struct {
	bytes  []byte
	varint uint64
}

// parseFields обходит поля сообщения; неизвестные типы пропускаются.
func parseFields(b []byte, fn func(num protowire.Number, f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var f field
		switch typ {
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			f.bytes = v
			b = b[m:]
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			f.varint = v
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			b = b[m:]
			continue
		}

		if err := fn(num, f); err != nil {
			return err
		}
	}
	return nil
}

func unmarshalEnvelope(b []byte) (messageEnvelope, error) {
	var e messageEnvelope
	err := parseFields(b, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			e.Timestamp = string(f.bytes)
		case 2:
			e.IsEncrypted = protowire.DecodeBool(f.varint)
		case 3:
			e.Content = append([]byte(nil), f.bytes...)
		}
		return nil
	})
	return e, err
}

func unmarshalSyncResponse(b []byte) (*syncResponse, error) {
	var r syncResponse
	err := parseFields(b, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			e, err := unmarshalEnvelope(f.bytes)
			if err != nil {
				return fmt.Errorf("envelope: %w", err)
			}
			r.Messages = append(r.Messages, e)
		case 2:
			r.Merkle = string(f.bytes)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode sync response: %w", err)
	}
	return &r, nil
}

func unmarshalMessage(b []byte) (Message, error) {
	var m Message
	err := parseFields(b, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			m.Dataset = string(f.bytes)
		case 2:
			m.Row = string(f.bytes)
		case 3:
			m.Column = string(f.bytes)
		case 4:
			m.Value = string(f.bytes)
		}
		return nil
	})
	if err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}

func unmarshalEncryptedData(b []byte) (*encryptedData, error) {
	var d encryptedData
	err := parseFields(b, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			d.IV = append([]byte(nil), f.bytes...)
		case 2:
			d.AuthTag = append([]byte(nil), f.bytes...)
		case 3:
			d.Data = append([]byte(nil), f.bytes...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode encrypted data: %w", err)
	}
	return &d, nil
}

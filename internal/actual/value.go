package actual

import (
	"fmt"
	"math"
	"strconv"
)

// decodeValue разбирает значение сообщения синхронизации.
//
//	"0:"    — NULL
//	"N:1.5" — число (целое, если без дробной части)
//	"S:abc" — строка
func decodeValue(s string) (any, error) {
	if len(s) < 2 || s[1] != ':' {
		return nil, fmt.Errorf("invalid value %q", s)
	}

	payload := s[2:]
	switch s[0] {
	case '0':
		return nil, nil
	case 'N':
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", payload, err)
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
		return f, nil
	case 'S':
		return payload, nil
	default:
		return nil, fmt.Errorf("unknown value type %q", s[0])
	}
}

package api

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ContentType тип тела запросов и ответов синхронизации
const ContentType = "application/cbor"

// Codec errors
var (
	// ErrEmptyPayload indicates an attempt to send envelope without sync message
	ErrEmptyPayload = errors.New("tried to send a zero-length message")

	// ErrMissingSender indicates envelope without sender peer id
	ErrMissingSender = errors.New("envelope sender id is empty")

	// ErrMissingChannel indicates envelope without channel id
	ErrMissingChannel = errors.New("envelope channel id is empty")

	// ErrEmptyBody indicates that there is nothing to decode
	ErrEmptyBody = errors.New("empty body")

	// ErrDecode indicates malformed CBOR input
	ErrDecode = errors.New("failed to decode cbor")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Каноничная кодировка: одинаковые конверты дают одинаковые байты
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: failed to build encode mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: failed to build decode mode: %v", err))
	}
}

// Marshal кодирует значение в CBOR
func Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cbor: %w", err)
	}
	return data, nil
}

// Unmarshal декодирует CBOR в v
func Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmptyBody
	}
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// EncodeEnvelope проверяет и кодирует конверт для отправки
func EncodeEnvelope(e *Envelope) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return Marshal(e)
}

// DecodeEnvelope декодирует конверт; пустые данные допустимы
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

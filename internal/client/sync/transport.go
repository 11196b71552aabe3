package sync

import "context"

//go:generate moq -out transport_mock.go . Transport

// Transport выполняет действие канала синхронизации.
// body и результат закодированы в CBOR.
type Transport interface {
	Fetch(ctx context.Context, action string, body []byte) ([]byte, error)
}

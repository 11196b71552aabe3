package api

// ServerPeerID идентификатор сервера в полях senderId/targetId
const ServerPeerID = "server"

// MessageType значение поля type исходящих сообщений
const MessageType = "message"

// Действия канала синхронизации
const (
	ActionConnect     = "connect"
	ActionPull        = "pull"
	ActionSyncMessage = "sync-message"
)

// StatusConnected статус успешного подключения пира
const StatusConnected = "connected"

// Envelope сообщение синхронизации между пиром и сервером.
// Data содержит непрозрачное сообщение синхронизации CRDT движка.
type Envelope struct {
	SenderID  string `cbor:"senderId" json:"senderId"`
	TargetID  string `cbor:"targetId" json:"targetId"`
	ChannelID string `cbor:"channelId" json:"channelId"`
	Type      string `cbor:"type" json:"type"`
	Data      []byte `cbor:"data" json:"data"`
	Broadcast bool   `cbor:"broadcast" json:"broadcast"`
}

// Empty сообщает, что конверт не несет сообщения синхронизации
func (e *Envelope) Empty() bool {
	return e == nil || len(e.Data) == 0
}

// Validate проверяет конверт перед отправкой
func (e *Envelope) Validate() error {
	if e.Empty() {
		return ErrEmptyPayload
	}
	if e.SenderID == "" {
		return ErrMissingSender
	}
	if e.ChannelID == "" {
		return ErrMissingChannel
	}
	return nil
}

// ConnectRequest запрос connect
type ConnectRequest struct {
	SenderID  string `cbor:"senderId" json:"senderId"`
	ChannelID string `cbor:"channelId" json:"channelId"`
}

// ConnectResponse ответ на connect
type ConnectResponse struct {
	Status string `cbor:"status" json:"status"`
}

// PullRequest запрос pull: следующее сообщение синхронизации для пира
type PullRequest struct {
	SenderID  string `cbor:"senderId" json:"senderId"`
	ChannelID string `cbor:"channelId" json:"channelId"`
	TargetID  string `cbor:"targetId" json:"targetId"`
}

package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEnvelope_FieldNames(t *testing.T) {
	e := &Envelope{
		SenderID:  "peer1",
		TargetID:  ServerPeerID,
		ChannelID: "root/main",
		Type:      MessageType,
		Data:      []byte{1, 2, 3},
	}

	data, err := EncodeEnvelope(e)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, Unmarshal(data, &raw))
	assert.ElementsMatch(t,
		[]string{"senderId", "targetId", "channelId", "type", "data", "broadcast"},
		keys(raw))
	assert.Equal(t, []byte{1, 2, 3}, raw["data"])

	decoded, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, e, decoded)
}

func keys(m map[string]any) []string {
	result := make([]string, 0, len(m))
	for k := range m {
		result = append(result, k)
	}
	return result
}

func TestEncodeEnvelope_Deterministic(t *testing.T) {
	e := &Envelope{SenderID: "peer1", ChannelID: "c", Data: []byte("x")}

	first, err := EncodeEnvelope(e)
	require.NoError(t, err)
	second, err := EncodeEnvelope(e)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEncodeEnvelope_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		envelope *Envelope
		wantErr  error
	}{
		{name: "nil", envelope: nil, wantErr: ErrEmptyPayload},
		{name: "empty data", envelope: &Envelope{SenderID: "p", ChannelID: "c"}, wantErr: ErrEmptyPayload},
		{name: "no sender", envelope: &Envelope{ChannelID: "c", Data: []byte{1}}, wantErr: ErrMissingSender},
		{name: "no channel", envelope: &Envelope{SenderID: "p", Data: []byte{1}}, wantErr: ErrMissingChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeEnvelope(tt.envelope)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeEnvelope_EmptyDataAllowed(t *testing.T) {
	data, err := Marshal(&Envelope{SenderID: ServerPeerID, TargetID: "peer1", ChannelID: "c"})
	require.NoError(t, err)

	e, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.True(t, e.Empty())
}

func TestDecodeEnvelope_Errors(t *testing.T) {
	_, err := DecodeEnvelope(nil)
	assert.ErrorIs(t, err, ErrEmptyBody)

	_, err = DecodeEnvelope([]byte{0xff, 0x00})
	assert.ErrorIs(t, err, ErrDecode)
}

package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrame(t *testing.T) {
	msg, err := EncodeFrame("message:new", map[string]any{"userId": 1, "content": "hi"})
	require.NoError(t, err)

	f, err := DecodeFrame(msg)
	require.NoError(t, err)
	assert.Equal(t, "message:new", f.Event)
	assert.JSONEq(t, `{"userId":1,"content":"hi"}`, string(f.Data))
}

func TestEncodeFrame_NilPayload(t *testing.T) {
	msg, err := EncodeFrame("agents:count", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"agents:count"}`, string(msg))
}

func TestDecodeFrame_Malformed(t *testing.T) {
	_, err := DecodeFrame([]byte("not json"))
	assert.Error(t, err)
}

func TestDecodeFrame_MissingEvent(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"data":{}}`))
	assert.Error(t, err)
}

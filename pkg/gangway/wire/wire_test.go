package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/gangway/pkg/gangway/wire"
)

func TestRequestRoundTrip(t *testing.T) {
	req := wire.NewRequest(wire.MethodPost, "/users").
		WithHeader("x-trace", "abc").
		WithHeader("x-trace", "def")
	req, err := req.WithJSONBody(map[string]string{"name": "Ann"})
	require.NoError(t, err)

	data, err := wire.EncodeRequest(req)
	require.NoError(t, err)

	decoded, err := wire.DecodeRequest(data)
	require.NoError(t, err)

	assert.Equal(t, wire.MethodPost, decoded.Method)
	assert.Equal(t, "/users", decoded.Path)
	assert.JSONEq(t, `{"name":"Ann"}`, string(decoded.Body))
}

func TestHeaderOrderSurvivesRoundTrip(t *testing.T) {
	req := wire.NewRequest(wire.MethodGet, "/").
		WithHeader("b", "2").
		WithHeader("a", "1").
		WithHeader("b", "3")

	data, err := wire.EncodeRequest(req)
	require.NoError(t, err)
	decoded, err := wire.DecodeRequest(data)
	require.NoError(t, err)

	// Ordered pairs, duplicates allowed: the original sequence is the
	// contract, not map semantics.
	require.Len(t, decoded.Headers, 3)
	assert.Equal(t, wire.Header{Key: "b", Value: "2"}, decoded.Headers[0])
	assert.Equal(t, wire.Header{Key: "a", Value: "1"}, decoded.Headers[1])
	assert.Equal(t, wire.Header{Key: "b", Value: "3"}, decoded.Headers[2])
}

func TestHeaderLookup(t *testing.T) {
	req := wire.NewRequest(wire.MethodGet, "/").
		WithHeader("Content-Type", "application/json").
		WithHeader("content-type", "text/plain")

	v, ok := req.Header("CONTENT-TYPE")
	assert.True(t, ok)
	assert.Equal(t, "application/json", v, "first value wins")

	_, ok = req.Header("missing")
	assert.False(t, ok)
}

func TestDecodeMalformedEnvelope(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not json", []byte("{{")},
		{"empty envelope", []byte(`{}`)},
		{"response in request slot", []byte(`{"response":{"status":200}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wire.DecodeRequest(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, wire.ErrMalformedEnvelope)
		})
	}

	_, err := wire.DecodeResponse([]byte(`{"request":{"path":"/","method":"GET"}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, wire.ErrMalformedEnvelope)
}

func TestResponseHelpers(t *testing.T) {
	resp, err := wire.JSON(wire.StatusOK, map[string]int{"n": 1})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	ct, ok := resp.Header("content-type")
	assert.True(t, ok)
	assert.Equal(t, "application/json", ct)

	var out map[string]int
	require.NoError(t, resp.DecodeJSON(&out))
	assert.Equal(t, 1, out["n"])

	assert.False(t, wire.NoContent(wire.StatusBadRequest).OK())
	assert.True(t, wire.NoContent(wire.StatusNoContent).OK())

	text := wire.Text(wire.StatusOK, "pong")
	assert.Equal(t, "pong", string(text.Body))
}

func TestResponseRoundTrip(t *testing.T) {
	resp, err := wire.JSON(wire.StatusCreated, map[string]string{"id": "usr_1"})
	require.NoError(t, err)

	data, err := wire.EncodeResponse(resp)
	require.NoError(t, err)
	decoded, err := wire.DecodeResponse(data)
	require.NoError(t, err)

	assert.Equal(t, wire.StatusCreated, decoded.Status)
	assert.JSONEq(t, `{"id":"usr_1"}`, string(decoded.Body))
}

package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedEnvelope indicates bytes read from the channel could not be
// decoded into a request or response. Decoding never returns a partially
// filled value alongside this error.
var ErrMalformedEnvelope = errors.New("wire: malformed envelope")

// envelope is the single JSON shape carried by the channel. Exactly one of
// Request or Response is set.
type envelope struct {
	Request  *Request  `json:"request,omitempty"`
	Response *Response `json:"response,omitempty"`
}

// EncodeRequest serializes a request for the channel.
func EncodeRequest(req Request) ([]byte, error) {
	return marshalEnvelope(envelope{Request: &req})
}

// DecodeRequest deserializes a request read from the channel.
// Returns ErrMalformedEnvelope (wrapped) if the bytes are not a request
// envelope.
func DecodeRequest(data []byte) (Request, error) {
	env, err := unmarshalEnvelope(data)
	if err != nil {
		return Request{}, err
	}
	if env.Request == nil {
		return Request{}, fmt.Errorf("%w: missing request", ErrMalformedEnvelope)
	}
	return *env.Request, nil
}

// EncodeResponse serializes a response for the channel.
func EncodeResponse(resp Response) ([]byte, error) {
	return marshalEnvelope(envelope{Response: &resp})
}

// DecodeResponse deserializes a response read from the channel.
// Returns ErrMalformedEnvelope (wrapped) if the bytes are not a response
// envelope.
func DecodeResponse(data []byte) (Response, error) {
	env, err := unmarshalEnvelope(data)
	if err != nil {
		return Response{}, err
	}
	if env.Response == nil {
		return Response{}, fmt.Errorf("%w: missing response", ErrMalformedEnvelope)
	}
	return *env.Response, nil
}

func marshalEnvelope(env envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("wire: encode envelope: %w", err)
	}
	return data, nil
}

func unmarshalEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return env, nil
}

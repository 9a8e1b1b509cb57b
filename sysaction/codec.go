package sysaction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxDataSize bounds the encoded size of a single request envelope.
const MaxDataSize = 64 * 1024

// ErrInvalidSysAction is returned when request data cannot be decoded as a SysAction.
var ErrInvalidSysAction = errors.New("invalid system action payload")

// Decode parses a SysAction envelope. The envelope must be a single JSON
// object naming an action kind; unknown top-level fields are rejected.
func Decode(data []byte) (*SysAction, error) {
	switch {
	case len(data) == 0:
		return nil, fmt.Errorf("%w: empty data", ErrInvalidSysAction)
	case len(data) > MaxDataSize:
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrInvalidSysAction, len(data), MaxDataSize)
	}
	var sa SysAction
	if err := decodeStrict(data, &sa); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSysAction, err)
	}
	if sa.Action == "" {
		return nil, fmt.Errorf("%w: missing action field", ErrInvalidSysAction)
	}
	return &sa, nil
}

// DecodePayload unmarshals sa.Payload into dst. An absent payload leaves
// dst untouched.
func DecodePayload(sa *SysAction, dst interface{}) error {
	if len(sa.Payload) == 0 {
		return nil
	}
	return decodeStrict(sa.Payload, dst)
}

// decodeStrict decodes exactly one JSON value, refusing unknown fields and
// anything after it.
func decodeStrict(data []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after value")
	}
	return nil
}

// Encode serialises a SysAction for use as request data.
func Encode(sa *SysAction) ([]byte, error) {
	if sa.Action == "" {
		return nil, fmt.Errorf("%w: missing action field", ErrInvalidSysAction)
	}
	return json.Marshal(sa)
}

// MakeSysAction encodes payload under the given action kind.
func MakeSysAction(kind ActionKind, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return Encode(&SysAction{Action: kind, Payload: raw})
}

package ipc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrSerialization is returned when a message cannot be encoded.
	ErrSerialization = errors.New("serializing message")
	// ErrMalformedBody is returned when a frame body cannot be decoded.
	ErrMalformedBody = errors.New("malformed message body")
)

// Message is one of Handshake, OutgoingCommand, IncomingCommand,
// CriticalError or Empty. On the wire only the variant's fields are written;
// the variant is recovered from which fields are present.
type Message interface {
	isMessage()
}

// Handshake opens a session.
type Handshake struct {
	Version  uint8  `json:"v"`
	ClientID string `json:"client_id"`
}

// OutgoingCommand is a command sent by this client.
type OutgoingCommand struct {
	Cmd   string          `json:"cmd"`
	Nonce int64           `json:"nonce"`
	Args  json.RawMessage `json:"args"`
	Evt   *Event          `json:"evt,omitempty"`
}

// IncomingCommand is a command reply or an event pushed by the service.
type IncomingCommand struct {
	Cmd   string          `json:"cmd"`
	Nonce int64           `json:"nonce"`
	Args  json.RawMessage `json:"args,omitempty"`
	Data  json.RawMessage `json:"data"`
	Evt   *Event          `json:"evt,omitempty"`
}

// CriticalError is sent by the service before it drops the session.
type CriticalError struct {
	Code    uint32 `json:"code"`
	Message string `json:"message"`
}

// Empty carries no fields. It is used for close notices and keepalives.
type Empty struct{}

func (Handshake) isMessage()       {}
func (OutgoingCommand) isMessage() {}
func (IncomingCommand) isMessage() {}
func (CriticalError) isMessage()   {}
func (Empty) isMessage()           {}

// MarshalMessage encodes m as a flat JSON object.
func MarshalMessage(m Message) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch v := m.(type) {
	case Handshake:
		data, err = json.Marshal(v)
	case OutgoingCommand:
		data, err = json.Marshal(v)
	case IncomingCommand:
		data, err = json.Marshal(v)
	case CriticalError:
		data, err = json.Marshal(v)
	case Empty:
		data = []byte("{}")
	case nil:
		return nil, fmt.Errorf("%w: nil message", ErrSerialization)
	default:
		return nil, fmt.Errorf("%w: unsupported message type %T", ErrSerialization, m)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return data, nil
}

type rawFields map[string]json.RawMessage

func (f rawFields) has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := f[k]; !ok {
			return false
		}
	}
	return true
}

// shapeGuard maps a set of jointly present keys to a variant. Guards are
// evaluated in order; the first match wins.
type shapeGuard struct {
	name   string
	keys   []string
	decode func(rawFields) (Message, error)
}

// IncomingCommand precedes OutgoingCommand: both carry cmd and nonce, and
// data is what tells them apart.
var shapeGuards = []shapeGuard{
	{name: "handshake", keys: []string{"v", "client_id"}, decode: decodeHandshake},
	{name: "incoming command", keys: []string{"cmd", "nonce", "data"}, decode: decodeIncoming},
	{name: "outgoing command", keys: []string{"cmd", "nonce", "args"}, decode: decodeOutgoing},
	{name: "critical error", keys: []string{"code", "message"}, decode: decodeCriticalError},
}

// UnmarshalMessage decodes a flat JSON object into its Message variant.
// Unknown keys are ignored. An object matching no guard decodes as Empty.
func UnmarshalMessage(data []byte) (Message, error) {
	var fields rawFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	for _, g := range shapeGuards {
		if !fields.has(g.keys...) {
			continue
		}
		m, err := g.decode(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedBody, g.name, err)
		}
		return m, nil
	}
	return Empty{}, nil
}

func decodeHandshake(f rawFields) (Message, error) {
	var m Handshake
	if err := decodeField(f, "v", &m.Version); err != nil {
		return nil, err
	}
	if err := decodeField(f, "client_id", &m.ClientID); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeIncoming(f rawFields) (Message, error) {
	var (
		m   IncomingCommand
		err error
	)
	if err = decodeField(f, "cmd", &m.Cmd); err != nil {
		return nil, err
	}
	if m.Nonce, err = decodeNonce(f["nonce"]); err != nil {
		return nil, err
	}
	m.Args = rawValue(f["args"])
	m.Data = rawValue(f["data"])
	if m.Evt, err = decodeEvent(f["evt"]); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeOutgoing(f rawFields) (Message, error) {
	var (
		m   OutgoingCommand
		err error
	)
	if err = decodeField(f, "cmd", &m.Cmd); err != nil {
		return nil, err
	}
	if m.Nonce, err = decodeNonce(f["nonce"]); err != nil {
		return nil, err
	}
	m.Args = rawValue(f["args"])
	if m.Evt, err = decodeEvent(f["evt"]); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeCriticalError(f rawFields) (Message, error) {
	var m CriticalError
	if err := decodeField(f, "code", &m.Code); err != nil {
		return nil, err
	}
	if err := decodeField(f, "message", &m.Message); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeField(f rawFields, key string, dst any) error {
	if err := json.Unmarshal(f[key], dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

// decodeNonce accepts a number, a numeric string or null (zero).
func decodeNonce(raw json.RawMessage) (int64, error) {
	if isNull(raw) {
		return 0, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("field %q: not an integer", "nonce")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", "nonce", err)
	}
	return n, nil
}

func decodeEvent(raw json.RawMessage) (*Event, error) {
	if isNull(raw) {
		return nil, nil
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("field %q: %w", "evt", err)
	}
	return &ev, nil
}

// rawValue keeps a JSON value as-is, mapping absent and null to nil.
func rawValue(raw json.RawMessage) json.RawMessage {
	if isNull(raw) {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

package secure

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is a stored value as found at rest: either legacy plaintext or
// sealed ciphertext. The tag is decided per record when it is read.
type Record interface {
	isRecord()
}

// Plaintext is a record written before encryption existed.
type Plaintext struct {
	Raw json.RawMessage
}

// Encrypted is a record sealed by Encrypt.
type Encrypted struct {
	Ciphertext string
}

func (Plaintext) isRecord() {}
func (Encrypted) isRecord() {}

// ParseDocument tags a stored JSON object. Objects carrying a string
// "content" member are encrypted; anything else is plaintext.
func ParseDocument(raw []byte) (Record, error) {
	var probe struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if probe.Content != nil && *probe.Content != "" {
		return Encrypted{Ciphertext: *probe.Content}, nil
	}
	return Plaintext{Raw: json.RawMessage(raw)}, nil
}

// ParseScalar tags a stored JSON scalar. A string is ciphertext; a number
// (or any other value) is legacy plaintext.
func ParseScalar(raw []byte) (Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse scalar: %w", err)
		}
		return Encrypted{Ciphertext: s}, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("parse scalar: invalid JSON %q", raw)
	}
	return Plaintext{Raw: json.RawMessage(raw)}, nil
}

// Decode resolves a record into out. Plaintext is unmarshaled directly;
// ciphertext needs key and fails with ErrWrongKeyOrCorrupt under the wrong one.
func Decode(rec Record, key *Key, out any) error {
	switch r := rec.(type) {
	case Plaintext:
		if err := json.Unmarshal(r.Raw, out); err != nil {
			return fmt.Errorf("decode plaintext record: %w", err)
		}
		return nil
	case Encrypted:
		return Decrypt(r.Ciphertext, key, out)
	default:
		return fmt.Errorf("unknown record type %T", rec)
	}
}

package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var jsonNull = []byte("null")

// DecodeJSON reads one JSON object from r, checks it against shape and
// stores it in dst. Unknown members are ignored; required members must be
// present and non-null; present members must match their declared kind.
func DecodeJSON(r io.Reader, shape Shape, dst any) error {
	dec := json.NewDecoder(r)

	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrMalformedBody)
		}
		return fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: expected a JSON object", ErrMalformedBody)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after object", ErrMalformedBody)
	}

	if err := CheckFields(shape, func(name string) bool {
		v, ok := raw[name]
		return ok && !bytes.Equal(bytes.TrimSpace(v), jsonNull)
	}); err != nil {
		return err
	}

	for _, f := range shape.Fields {
		v, ok := raw[f.Name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), jsonNull) {
			continue
		}
		if err := checkKind(f, v); err != nil {
			return err
		}
	}

	// Members are known to be well formed here; re-encode and bind.
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrFieldType, err)
	}
	return nil
}

// CheckFields reports the first required field of shape for which present
// returns false.
func CheckFields(shape Shape, present func(name string) bool) error {
	for _, name := range shape.RequiredFields() {
		if !present(name) {
			return fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}
	return nil
}

func checkKind(f Field, v json.RawMessage) error {
	var err error
	switch f.Kind {
	case KindInt32:
		var n int32
		err = json.Unmarshal(v, &n)
	default:
		var s string
		err = json.Unmarshal(v, &s)
	}
	if err != nil {
		return fmt.Errorf("%w: %s must be %s", ErrFieldType, f.Name, f.Kind)
	}
	return nil
}

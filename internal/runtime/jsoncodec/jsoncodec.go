// Package jsoncodec centralises JSON encoding so every payload in the
// runtime goes through the same sonic configuration.
package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

var cfg = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return cfg.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return cfg.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return cfg.Unmarshal(data, v)
}

func Encode(w io.Writer, v any) error {
	return cfg.NewEncoder(w).Encode(v)
}

func Decode(r io.Reader, v any) error {
	return cfg.NewDecoder(r).Decode(v)
}

// DecodeMap unmarshals a payload into the generic map form passed to
// modules. A nil or empty payload yields an empty map rather than an error
// so modules never see a nil data argument.
func DecodeMap(payload []byte) (map[string]any, error) {
	if len(payload) == 0 {
		return map[string]any{}, nil
	}
	var data map[string]any
	if err := cfg.Unmarshal(payload, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

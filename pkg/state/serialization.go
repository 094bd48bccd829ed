package state

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	markerPlain      byte = 0
	markerCompressed byte = 1
)

// MsgPackSerializer encodes values as MessagePack, gzipping large payloads.
// The first byte of the output records whether the rest is compressed.
type MsgPackSerializer struct {
	// CompressionThreshold is the encoded size at which gzip kicks in.
	// Zero disables compression.
	CompressionThreshold int
}

// NewMsgPackSerializer creates a serializer compressing payloads of 1KB or more.
func NewMsgPackSerializer() *MsgPackSerializer {
	return &MsgPackSerializer{CompressionThreshold: 1024}
}

// Marshal serializes v.
func (s *MsgPackSerializer) Marshal(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}

	if s.CompressionThreshold > 0 && len(data) >= s.CompressionThreshold {
		if compressed, err := compress(data); err == nil {
			return append([]byte{markerCompressed}, compressed...), nil
		}
	}
	return append([]byte{markerPlain}, data...), nil
}

// Unmarshal deserializes data into v.
func (s *MsgPackSerializer) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return ErrInvalidData
	}

	payload := data[1:]
	switch data[0] {
	case markerPlain:
	case markerCompressed:
		decompressed, err := decompress(payload)
		if err != nil {
			return err
		}
		payload = decompressed
	default:
		return ErrInvalidData
	}
	return msgpack.Unmarshal(payload, v)
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

// GenericSerializer implements Serializer[T] over MsgPackSerializer.
type GenericSerializer[T any] struct {
	inner *MsgPackSerializer
}

// NewGenericSerializer creates a new generic serializer.
func NewGenericSerializer[T any]() *GenericSerializer[T] {
	return &GenericSerializer[T]{inner: NewMsgPackSerializer()}
}

// Serialize serializes a value.
func (s *GenericSerializer[T]) Serialize(value T) ([]byte, error) {
	return s.inner.Marshal(value)
}

// Deserialize deserializes a value.
func (s *GenericSerializer[T]) Deserialize(data []byte) (T, error) {
	var value T
	err := s.inner.Unmarshal(data, &value)
	return value, err
}

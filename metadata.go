package vizier

import (
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/tansa-ml/vizier-go/vizierpb"
)

// Metadata is one typed metadata entry carried by a study, trial, or
// study spec. Caller-constructed entries always live in the empty
// namespace; entries decoded from a reserved (non-empty) namespace are
// flagged read-only and must not be sent back to the service.
type Metadata struct {
	Key       string
	Namespace string
	Value     Value

	readOnly bool
}

// NewMetadata builds a caller-writable entry in the empty namespace.
func NewMetadata(key string, value Value) Metadata {
	return Metadata{Key: key, Value: value}
}

// ReadOnly reports whether the entry came from a reserved namespace.
func (m Metadata) ReadOnly() bool { return m.readOnly }

// Value is a metadata value: either a plain string or a typed payload.
// The two implementations are StringValue and Payload.
type Value interface {
	metadataValue()
}

// StringValue is the plain-string variant of a metadata value.
type StringValue string

func (StringValue) metadataValue() {}

// Payload is the typed-payload variant of a metadata value. The bytes
// are opaque to the client; TypeURL identifies the encoded message
// type for whoever decodes them.
type Payload struct {
	TypeURL string
	Data    []byte
}

func (Payload) metadataValue() {}

// EncodeMetadata converts m to its wire form. Only the empty namespace
// is writable: a non-empty namespace fails with a *CodecError wrapping
// ErrReservedNamespace before anything reaches the service, and an
// entry without a value fails with one wrapping ErrMetadataUnion.
func EncodeMetadata(m Metadata) (*vizierpb.KeyValue, error) {
	if m.Namespace != "" {
		return nil, &CodecError{Key: m.Key, Namespace: m.Namespace, Err: ErrReservedNamespace}
	}
	kv := &vizierpb.KeyValue{Key: m.Key}
	switch v := m.Value.(type) {
	case StringValue:
		s := string(v)
		kv.Value = &s
	case Payload:
		kv.Proto = &anypb.Any{TypeUrl: v.TypeURL, Value: v.Data}
	default:
		return nil, &CodecError{Key: m.Key, Err: ErrMetadataUnion}
	}
	return kv, nil
}

// DecodeMetadata converts kv from its wire form. This is the single
// point where the union invariant is checked: a message with both or
// neither variant set fails with a *CodecError wrapping
// ErrMetadataUnion and is never coerced. Entries from reserved
// namespaces decode successfully but come back read-only.
func DecodeMetadata(kv *vizierpb.KeyValue) (Metadata, error) {
	m := Metadata{Key: kv.Key, Namespace: kv.Ns, readOnly: kv.Ns != ""}
	switch {
	case kv.Value != nil && kv.Proto != nil,
		kv.Value == nil && kv.Proto == nil:
		return Metadata{}, &CodecError{Key: kv.Key, Namespace: kv.Ns, Err: ErrMetadataUnion}
	case kv.Value != nil:
		m.Value = StringValue(*kv.Value)
	default:
		m.Value = Payload{TypeURL: kv.Proto.TypeUrl, Data: kv.Proto.Value}
	}
	return m, nil
}

func encodeMetadataSlice(ms []Metadata) ([]*vizierpb.KeyValue, error) {
	if len(ms) == 0 {
		return nil, nil
	}
	kvs := make([]*vizierpb.KeyValue, 0, len(ms))
	for _, m := range ms {
		kv, err := EncodeMetadata(m)
		if err != nil {
			return nil, err
		}
		kvs = append(kvs, kv)
	}
	return kvs, nil
}

func decodeMetadataSlice(kvs []*vizierpb.KeyValue) ([]Metadata, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	ms := make([]Metadata, 0, len(kvs))
	for _, kv := range kvs {
		m, err := DecodeMetadata(kv)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, nil
}

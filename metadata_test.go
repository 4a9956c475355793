package vizier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"google.golang.org/protobuf/types/known/anypb"

	"github.com/tansa-ml/vizier-go/vizierpb"
)

func TestEncodeMetadata_String(t *testing.T) {
	kv, err := EncodeMetadata(NewMetadata("owner-team", StringValue("search-infra")))
	require.NoError(t, err)

	assert.Equal(t, "owner-team", kv.Key)
	require.NotNil(t, kv.Value)
	assert.Equal(t, "search-infra", *kv.Value)
	assert.Nil(t, kv.Proto)
	assert.Empty(t, kv.Ns)
}

func TestEncodeMetadata_Payload(t *testing.T) {
	kv, err := EncodeMetadata(NewMetadata("checkpoint", Payload{
		TypeURL: "type.googleapis.com/acme.Checkpoint",
		Data:    []byte{0x0a, 0x03, 0x66, 0x6f, 0x6f},
	}))
	require.NoError(t, err)

	assert.Nil(t, kv.Value)
	require.NotNil(t, kv.Proto)
	assert.Equal(t, "type.googleapis.com/acme.Checkpoint", kv.Proto.TypeUrl)
	assert.Equal(t, []byte{0x0a, 0x03, 0x66, 0x6f, 0x6f}, kv.Proto.Value)
}

func TestEncodeMetadata_ReservedNamespace(t *testing.T) {
	_, err := EncodeMetadata(Metadata{
		Key:       "state",
		Namespace: "oss_vizier",
		Value:     StringValue("x"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReservedNamespace)

	var cerr *CodecError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "state", cerr.Key)
	assert.Equal(t, "oss_vizier", cerr.Namespace)
}

func TestEncodeMetadata_MissingValue(t *testing.T) {
	_, err := EncodeMetadata(Metadata{Key: "empty"})
	assert.ErrorIs(t, err, ErrMetadataUnion)
}

func TestDecodeMetadata_RoundTrip(t *testing.T) {
	for _, value := range []Value{
		StringValue("plain"),
		Payload{TypeURL: "type.googleapis.com/acme.Blob", Data: []byte("bytes")},
	} {
		in := NewMetadata("k", value)
		kv, err := EncodeMetadata(in)
		require.NoError(t, err)

		out, err := DecodeMetadata(kv)
		require.NoError(t, err)
		assert.Equal(t, in, out)
		assert.False(t, out.ReadOnly())
	}
}

func TestDecodeMetadata_UnionViolations(t *testing.T) {
	s := "v"
	both := &vizierpb.KeyValue{
		Key:   "k",
		Value: &s,
		Proto: &anypb.Any{TypeUrl: "type.googleapis.com/acme.Blob"},
	}
	_, err := DecodeMetadata(both)
	assert.ErrorIs(t, err, ErrMetadataUnion)

	neither := &vizierpb.KeyValue{Key: "k"}
	_, err = DecodeMetadata(neither)
	assert.ErrorIs(t, err, ErrMetadataUnion)
}

func TestDecodeMetadata_ReservedNamespaceIsReadOnly(t *testing.T) {
	s := "internal-state"
	kv := &vizierpb.KeyValue{Key: "k", Value: &s, Ns: "oss_vizier"}

	m, err := DecodeMetadata(kv)
	require.NoError(t, err)
	assert.True(t, m.ReadOnly())
	assert.Equal(t, "oss_vizier", m.Namespace)
	assert.Equal(t, StringValue("internal-state"), m.Value)

	// A read-only entry cannot be sent back.
	_, err = EncodeMetadata(m)
	assert.ErrorIs(t, err, ErrReservedNamespace)
}

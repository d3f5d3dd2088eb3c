package abi

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestEncodeDecodeBytesMessageRoundtrip(t *testing.T) {
	msg := encodeBytesMessage(map[protowire.Number][]byte{
		fieldKey:   []byte("mykey"),
		fieldValue: []byte("myvalue"),
	})
	key, err := decodeBytesField(msg, fieldKey)
	if err != nil {
		t.Fatalf("decodeBytesField(key): %v", err)
	}
	if string(key) != "mykey" {
		t.Errorf("key = %q, want %q", key, "mykey")
	}
	val, err := decodeBytesField(msg, fieldValue)
	if err != nil {
		t.Fatalf("decodeBytesField(value): %v", err)
	}
	if string(val) != "myvalue" {
		t.Errorf("value = %q, want %q", val, "myvalue")
	}
}

func TestEncodeDecodeVarintMessageRoundtrip(t *testing.T) {
	msg := encodeVarintMessage(map[protowire.Number]uint64{
		fieldFound: 1,
	})
	v, err := decodeVarintField(msg, fieldFound)
	if err != nil {
		t.Fatalf("decodeVarintField: %v", err)
	}
	if v != 1 {
		t.Errorf("value = %d, want 1", v)
	}
}

func TestDecodeBytesFieldMissing(t *testing.T) {
	msg := encodeBytesMessage(map[protowire.Number][]byte{fieldKey: []byte("k")})
	if _, err := decodeBytesField(msg, fieldValue); err == nil {
		t.Error("expected error for missing field")
	}
}

func TestDecodeVarintFieldMissing(t *testing.T) {
	msg := encodeVarintMessage(map[protowire.Number]uint64{fieldAmount: 5})
	if _, err := decodeVarintField(msg, fieldFound); err == nil {
		t.Error("expected error for missing field")
	}
}

func TestDecodeBytesFieldMalformed(t *testing.T) {
	if _, err := decodeBytesField([]byte{0xff, 0xff, 0xff}, fieldKey); err == nil {
		t.Error("expected error for malformed protobuf bytes")
	}
}

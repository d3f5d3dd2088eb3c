package abi

import (
	"encoding/binary"
	"fmt"
)

// maxDatastoreEntryCount bounds how many entries get_keys/get_keys_for may
// return in one call, matching settings::max_datastore_entry_count.
const maxDatastoreEntryCount = 100_000

// encodeByteArrayVec packs a slice of byte slices using the AssemblyScript
// typed-array-of-ArrayBuffer layout the legacy guest SDK expects back from
// get_keys/get_owned_addresses: a 4-byte little-endian count followed by
// each element as a single u8 length byte plus its bytes. maxLength bounds
// the number of entries; an empty slice encodes to an empty buffer rather
// than a bare zero count.
func encodeByteArrayVec(items [][]byte, maxLength int) ([]byte, error) {
	if len(items) == 0 {
		return []byte{}, nil
	}
	if len(items) > maxLength {
		return nil, fmt.Errorf("abi: too many entries in the datastore: %d", len(items))
	}

	out := make([]byte, 4, 4+len(items)*(1+255))
	binary.LittleEndian.PutUint32(out, uint32(len(items)))
	for _, item := range items {
		if len(item) > 0xff {
			return nil, fmt.Errorf("abi: some datastore keys are too long: %d bytes", len(item))
		}
		out = append(out, byte(len(item)))
		out = append(out, item...)
	}
	return out, nil
}

package abi

import "testing"

func TestNewRegistryRegistersKnownLegacyNames(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{
		"assembly_script_set_data", "assembly_script_get_data",
		"assembly_script_get_balance", "assembly_script_transfer_coins",
		"assembly_script_hash_blake3", "assembly_script_call",
		"assembly_script_generate_event",
	} {
		if _, ok := r.Legacy(name); !ok {
			t.Errorf("expected legacy handler registered for %q", name)
		}
	}
}

func TestRegistryUnknownNameNotFound(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Legacy("does_not_exist"); ok {
		t.Error("expected unknown legacy name to be absent")
	}
	if _, ok := r.Modern("does_not_exist"); ok {
		t.Error("expected unknown modern name to be absent")
	}
}

func TestRegistryModernSubset(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"get_data", "set_data", "has_data", "transfer_coins", "hash_blake3"} {
		if _, ok := r.Modern(name); !ok {
			t.Errorf("expected modern handler registered for %q", name)
		}
	}
}

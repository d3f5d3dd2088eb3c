package abi

import (
	"encoding/binary"
	"fmt"

	"github.com/massalabs/sc-runtime/internal/hostiface"
	"github.com/massalabs/sc-runtime/internal/rterr"
	"github.com/massalabs/sc-runtime/internal/trace"
)

// ptr32 narrows a packed uint64 legacy argument to its i32 pointer/scalar.
func ptr32(v uint64) uint32 { return uint32(v) }

func oneResult(v uint32) []uint64 { return []uint64{uint64(v)} }

func registerLegacyLedger(r *Registry) {
	r.addLegacy("assembly_script_set_data", func(env *Env, args []uint64) ([]uint64, error) {
		key, err := env.Legacy.ReadBuffer(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_set_data", err)
		}
		value, err := env.Legacy.ReadBuffer(ptr32(args[1]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_set_data", err)
		}
		_, err = env.dispatch("assembly_script_set_data",
			[]trace.Param{{Name: "key", Value: trace.Bytes(key)}, {Name: "value", Value: trace.Bytes(value)}},
			func() (trace.Value, error) {
				return trace.Value{}, rterr.WrapHostInterface(env.Host.SetData(env.Ctx, key, value))
			})
		return nil, err
	})

	r.addLegacy("assembly_script_set_data_for", func(env *Env, args []uint64) ([]uint64, error) {
		address, err := env.Legacy.ReadString(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_set_data_for", err)
		}
		key, err := env.Legacy.ReadBuffer(ptr32(args[1]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_set_data_for", err)
		}
		value, err := env.Legacy.ReadBuffer(ptr32(args[2]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_set_data_for", err)
		}
		_, err = env.dispatch("assembly_script_set_data_for", nil, func() (trace.Value, error) {
			return trace.Value{}, rterr.WrapHostInterface(env.Host.SetDataFor(env.Ctx, address, key, value))
		})
		return nil, err
	})

	r.addLegacy("assembly_script_get_data", func(env *Env, args []uint64) ([]uint64, error) {
		key, err := env.Legacy.ReadBuffer(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_get_data", err)
		}
		var value []byte
		_, err = env.dispatch("assembly_script_get_data", []trace.Param{{Name: "key", Value: trace.Bytes(key)}}, func() (trace.Value, error) {
			value, err = env.Host.GetData(env.Ctx, key)
			return trace.Bytes(value), rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		ptr, err := env.Legacy.WriteBuffer(value)
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_get_data", err)
		}
		return oneResult(ptr), nil
	})

	r.addLegacy("assembly_script_get_data_for", func(env *Env, args []uint64) ([]uint64, error) {
		address, err := env.Legacy.ReadString(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_get_data_for", err)
		}
		key, err := env.Legacy.ReadBuffer(ptr32(args[1]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_get_data_for", err)
		}
		var value []byte
		_, err = env.dispatch("assembly_script_get_data_for", nil, func() (trace.Value, error) {
			value, err = env.Host.GetDataFor(env.Ctx, address, key)
			return trace.Bytes(value), rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		ptr, err := env.Legacy.WriteBuffer(value)
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_get_data_for", err)
		}
		return oneResult(ptr), nil
	})

	r.addLegacy("assembly_script_has_data", func(env *Env, args []uint64) ([]uint64, error) {
		key, err := env.Legacy.ReadBuffer(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_has_data", err)
		}
		var has bool
		_, err = env.dispatch("assembly_script_has_data", nil, func() (trace.Value, error) {
			has, err = env.Host.HasData(env.Ctx, key)
			return trace.Bool(has), rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		if has {
			return oneResult(1), nil
		}
		return oneResult(0), nil
	})

	r.addLegacy("assembly_script_delete_data", func(env *Env, args []uint64) ([]uint64, error) {
		key, err := env.Legacy.ReadBuffer(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_delete_data", err)
		}
		_, err = env.dispatch("assembly_script_delete_data", nil, func() (trace.Value, error) {
			return trace.Value{}, rterr.WrapHostInterface(env.Host.DeleteData(env.Ctx, key))
		})
		return nil, err
	})

	r.addLegacy("assembly_script_append_data", func(env *Env, args []uint64) ([]uint64, error) {
		key, err := env.Legacy.ReadBuffer(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_append_data", err)
		}
		value, err := env.Legacy.ReadBuffer(ptr32(args[1]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_append_data", err)
		}
		_, err = env.dispatch("assembly_script_append_data", nil, func() (trace.Value, error) {
			return trace.Value{}, rterr.WrapHostInterface(env.Host.AppendData(env.Ctx, key, value))
		})
		return nil, err
	})

	r.addLegacy("assembly_script_get_keys", func(env *Env, args []uint64) ([]uint64, error) {
		var prefix []byte
		var err error
		if len(args) > 0 && args[0] != 0 {
			prefix, err = env.Legacy.ReadBuffer(ptr32(args[0]))
			if err != nil {
				return nil, rterr.WrapABI("assembly_script_get_keys", err)
			}
		}
		var keys [][]byte
		_, err = env.dispatch("assembly_script_get_keys", nil, func() (trace.Value, error) {
			keys, err = env.Host.GetKeys(env.Ctx, prefix)
			return trace.Value{}, rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		encoded, err := encodeByteArrayVec(keys, maxDatastoreEntryCount)
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_get_keys", err)
		}
		ptr, err := env.Legacy.WriteBuffer(encoded)
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_get_keys", err)
		}
		return oneResult(ptr), nil
	})
}

func registerLegacyBalances(r *Registry) {
	r.addLegacy("assembly_script_get_balance", func(env *Env, args []uint64) ([]uint64, error) {
		var balance uint64
		var err error
		_, err = env.dispatch("assembly_script_get_balance", nil, func() (trace.Value, error) {
			balance, err = env.Host.GetBalance(env.Ctx)
			return trace.Int(int64(balance)), rterr.WrapHostInterface(err)
		})
		return []uint64{balance}, err
	})

	r.addLegacy("assembly_script_transfer_coins", func(env *Env, args []uint64) ([]uint64, error) {
		to, err := env.Legacy.ReadString(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_transfer_coins", err)
		}
		amount := args[1]
		_, err = env.dispatch("assembly_script_transfer_coins", nil, func() (trace.Value, error) {
			return trace.Value{}, rterr.WrapHostInterface(env.Host.TransferCoins(env.Ctx, to, amount))
		})
		return nil, err
	})
}

func registerLegacyBytecode(r *Registry) {
	r.addLegacy("assembly_script_get_bytecode", func(env *Env, args []uint64) ([]uint64, error) {
		var bc []byte
		var err error
		_, err = env.dispatch("assembly_script_get_bytecode", nil, func() (trace.Value, error) {
			bc, err = env.Host.GetBytecode(env.Ctx)
			return trace.Value{}, rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		ptr, err := env.Legacy.WriteBuffer(bc)
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_get_bytecode", err)
		}
		return oneResult(ptr), nil
	})

	r.addLegacy("assembly_script_create_sc", func(env *Env, args []uint64) ([]uint64, error) {
		bc, err := env.Legacy.ReadBuffer(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_create_sc", err)
		}
		var address string
		_, err = env.dispatch("assembly_script_create_sc", nil, func() (trace.Value, error) {
			address, err = env.Host.CreateModule(env.Ctx, bc)
			return trace.String(address), rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		ptr, err := env.Legacy.WriteBuffer([]byte(address))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_create_sc", err)
		}
		return oneResult(ptr), nil
	})
}

func registerLegacyAddressing(r *Registry) {
	r.addLegacy("assembly_script_validate_address", func(env *Env, args []uint64) ([]uint64, error) {
		address, err := env.Legacy.ReadString(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_validate_address", err)
		}
		var ok bool
		_, err = env.dispatch("assembly_script_validate_address", nil, func() (trace.Value, error) {
			ok, err = env.Host.ValidateAddress(env.Ctx, address)
			return trace.Bool(ok), rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		if ok {
			return oneResult(1), nil
		}
		return oneResult(0), nil
	})

	r.addLegacy("assembly_script_address_from_public_key", func(env *Env, args []uint64) ([]uint64, error) {
		pk, err := env.Legacy.ReadString(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_address_from_public_key", err)
		}
		var address string
		_, err = env.dispatch("assembly_script_address_from_public_key", nil, func() (trace.Value, error) {
			address, err = env.Host.AddressFromPublicKey(env.Ctx, pk)
			return trace.String(address), rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		ptr, err := env.Legacy.WriteBuffer([]byte(address))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_address_from_public_key", err)
		}
		return oneResult(ptr), nil
	})

	r.addLegacy("assembly_script_get_owned_addresses", func(env *Env, args []uint64) ([]uint64, error) {
		var addrs []string
		var err error
		_, err = env.dispatch("assembly_script_get_owned_addresses", nil, func() (trace.Value, error) {
			addrs, err = env.Host.OwnedAddresses(env.Ctx)
			return trace.Value{}, rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		buf := make([][]byte, len(addrs))
		for i, a := range addrs {
			buf[i] = []byte(a)
		}
		encoded, err := encodeByteArrayVec(buf, maxDatastoreEntryCount)
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_get_owned_addresses", err)
		}
		ptr, err := env.Legacy.WriteBuffer(encoded)
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_get_owned_addresses", err)
		}
		return oneResult(ptr), nil
	})
}

func registerLegacyCrypto(r *Registry) {
	hashABI := func(name string, fn func(hostiface.Interface, []byte) ([]byte, error)) LegacyHandler {
		return func(env *Env, args []uint64) ([]uint64, error) {
			data, err := env.Legacy.ReadBuffer(ptr32(args[0]))
			if err != nil {
				return nil, rterr.WrapABI(name, err)
			}
			var digest []byte
			_, err = env.dispatch(name, nil, func() (trace.Value, error) {
				digest, err = fn(env.Host, data)
				return trace.Bytes(digest), rterr.WrapHostInterface(err)
			})
			if err != nil {
				return nil, err
			}
			ptr, err := env.Legacy.WriteBuffer(digest)
			if err != nil {
				return nil, rterr.WrapABI(name, err)
			}
			return oneResult(ptr), nil
		}
	}
	r.addLegacy("assembly_script_hash_blake3", hashABI("assembly_script_hash_blake3", hostiface.Interface.HashBlake3))
	r.addLegacy("assembly_script_hash_sha256", hashABI("assembly_script_hash_sha256", hostiface.Interface.HashSHA256))
	r.addLegacy("assembly_script_hash_keccak256", hashABI("assembly_script_hash_keccak256", hostiface.Interface.HashKeccak256))

	r.addLegacy("assembly_script_signature_verify", func(env *Env, args []uint64) ([]uint64, error) {
		data, err := env.Legacy.ReadBuffer(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_signature_verify", err)
		}
		sig, err := env.Legacy.ReadString(ptr32(args[1]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_signature_verify", err)
		}
		pk, err := env.Legacy.ReadString(ptr32(args[2]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_signature_verify", err)
		}
		var ok bool
		_, err = env.dispatch("assembly_script_signature_verify", nil, func() (trace.Value, error) {
			ok, err = env.Host.SignatureVerify(env.Ctx, data, []byte(sig), []byte(pk))
			return trace.Bool(ok), rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		if ok {
			return oneResult(1), nil
		}
		return oneResult(0), nil
	})
}

func registerLegacyTimeAndRandom(r *Registry) {
	r.addLegacy("assembly_script_date_now", func(env *Env, args []uint64) ([]uint64, error) {
		var ts uint64
		var err error
		_, err = env.dispatch("assembly_script_date_now", nil, func() (trace.Value, error) {
			ts, err = env.Host.CurrentTimestamp(env.Ctx)
			return trace.Int(int64(ts)), rterr.WrapHostInterface(err)
		})
		return []uint64{ts}, err
	})

	r.addLegacy("assembly_script_unsafe_random", func(env *Env, args []uint64) ([]uint64, error) {
		var v int64
		var err error
		_, err = env.dispatch("assembly_script_unsafe_random", nil, func() (trace.Value, error) {
			v, err = env.Host.UnsafeRandomInt(env.Ctx)
			return trace.Int(v), rterr.WrapHostInterface(err)
		})
		return []uint64{uint64(v)}, err
	})
}

func registerLegacySlot(r *Registry) {
	r.addLegacy("assembly_script_get_current_period", func(env *Env, args []uint64) ([]uint64, error) {
		var period uint64
		var err error
		_, err = env.dispatch("assembly_script_get_current_period", nil, func() (trace.Value, error) {
			period, err = env.Host.CurrentPeriod(env.Ctx)
			return trace.Int(int64(period)), rterr.WrapHostInterface(err)
		})
		return []uint64{period}, err
	})

	r.addLegacy("assembly_script_get_current_thread", func(env *Env, args []uint64) ([]uint64, error) {
		var thread uint8
		var err error
		_, err = env.dispatch("assembly_script_get_current_thread", nil, func() (trace.Value, error) {
			thread, err = env.Host.CurrentThread(env.Ctx)
			return trace.Int(int64(thread)), rterr.WrapHostInterface(err)
		})
		return []uint64{uint64(thread)}, err
	})

	r.addLegacy("assembly_script_chain_id", func(env *Env, args []uint64) ([]uint64, error) {
		var id uint64
		var err error
		_, err = env.dispatch("assembly_script_chain_id", nil, func() (trace.Value, error) {
			id, err = env.Host.ChainID(env.Ctx)
			return trace.Int(int64(id)), rterr.WrapHostInterface(err)
		})
		return []uint64{id}, err
	})
}

func registerLegacyScheduler(r *Registry) {
	r.addLegacy("assembly_script_send_message", func(env *Env, args []uint64) ([]uint64, error) {
		targetAddress, err := env.Legacy.ReadString(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_send_message", err)
		}
		targetHandler, err := env.Legacy.ReadString(ptr32(args[1]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_send_message", err)
		}
		data, err := env.Legacy.ReadBuffer(ptr32(args[2]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_send_message", err)
		}
		validityStart, validityEnd, maxGas, rawFee, coins := args[3], args[4], args[5], args[6], args[7]
		_, err = env.dispatch("assembly_script_send_message", nil, func() (trace.Value, error) {
			return trace.Value{}, rterr.WrapHostInterface(env.Host.SendMessage(env.Ctx, hostiface.SendMessageArgs{
				TargetAddress: targetAddress,
				TargetHandler: targetHandler,
				ValidityStart: validityStart,
				ValidityEnd:   validityEnd,
				MaxGas:        maxGas,
				RawFee:        rawFee,
				Coins:         coins,
				Data:          data,
			}))
		})
		return nil, err
	})
}

func registerLegacyDeferredCalls(r *Registry) {
	r.addLegacy("assembly_script_deferred_call_register", func(env *Env, args []uint64) ([]uint64, error) {
		targetAddress, err := env.Legacy.ReadString(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_deferred_call_register", err)
		}
		targetHandler, err := env.Legacy.ReadString(ptr32(args[1]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_deferred_call_register", err)
		}
		validityPeriods, gas := args[2], args[3]
		params, err := env.Legacy.ReadBuffer(ptr32(args[4]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_deferred_call_register", err)
		}
		coins := args[5]
		if validityPeriods == 0 {
			return nil, fmt.Errorf("assembly_script_deferred_call_register: %w: validity period must be positive", rterr.ErrABI)
		}
		var id string
		_, err = env.dispatch("assembly_script_deferred_call_register", nil, func() (trace.Value, error) {
			id, err = env.Host.DeferredCallRegister(env.Ctx, targetAddress, targetHandler, validityPeriods, gas, params, coins)
			return trace.String(id), rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		ptr, err := env.Legacy.WriteBuffer([]byte(id))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_deferred_call_register", err)
		}
		return oneResult(ptr), nil
	})

	r.addLegacy("assembly_script_deferred_call_exists", func(env *Env, args []uint64) ([]uint64, error) {
		id, err := env.Legacy.ReadString(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_deferred_call_exists", err)
		}
		var exists bool
		_, err = env.dispatch("assembly_script_deferred_call_exists", nil, func() (trace.Value, error) {
			exists, err = env.Host.DeferredCallExists(env.Ctx, id)
			return trace.Bool(exists), rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		if exists {
			return oneResult(1), nil
		}
		return oneResult(0), nil
	})

	r.addLegacy("assembly_script_deferred_call_cancel", func(env *Env, args []uint64) ([]uint64, error) {
		id, err := env.Legacy.ReadString(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_deferred_call_cancel", err)
		}
		_, err = env.dispatch("assembly_script_deferred_call_cancel", nil, func() (trace.Value, error) {
			return trace.Value{}, rterr.WrapHostInterface(env.Host.DeferredCallCancel(env.Ctx, id))
		})
		return nil, err
	})

	r.addLegacy("assembly_script_deferred_call_quote", func(env *Env, args []uint64) ([]uint64, error) {
		targetSlotPeriod, gas := args[0], args[1]
		var quote hostiface.DeferredCallQuote
		var err error
		_, err = env.dispatch("assembly_script_deferred_call_quote", nil, func() (trace.Value, error) {
			quote, err = env.Host.DeferredCallQuote(env.Ctx, targetSlotPeriod, gas)
			return trace.Value{}, rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		out := make([]byte, 9)
		if quote.Available {
			out[0] = 1
		}
		binary.LittleEndian.PutUint64(out[1:], quote.Price)
		ptr, err := env.Legacy.WriteBuffer(out)
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_deferred_call_quote", err)
		}
		return oneResult(ptr), nil
	})
}

func registerLegacyEventAndAccess(r *Registry) {
	r.addLegacy("assembly_script_generate_event", func(env *Env, args []uint64) ([]uint64, error) {
		data, err := env.Legacy.ReadBuffer(ptr32(args[0]))
		if err != nil {
			return nil, rterr.WrapABI("assembly_script_generate_event", err)
		}
		_, err = env.dispatch("assembly_script_generate_event", []trace.Param{{Name: "data", Value: trace.Bytes(data)}}, func() (trace.Value, error) {
			return trace.Value{}, rterr.WrapHostInterface(env.Host.GenerateEvent(env.Ctx, data))
		})
		return nil, err
	})

	r.addLegacy("assembly_script_caller_has_write_access", func(env *Env, args []uint64) ([]uint64, error) {
		var ok bool
		var err error
		_, err = env.dispatch("assembly_script_caller_has_write_access", nil, func() (trace.Value, error) {
			ok, err = env.Host.CallerHasWriteAccess(env.Ctx)
			return trace.Bool(ok), rterr.WrapHostInterface(err)
		})
		if err != nil {
			return nil, err
		}
		if ok {
			return oneResult(1), nil
		}
		return oneResult(0), nil
	})
}

func registerLegacyConsole(r *Registry) {
	// console.log / console.info / console.warn / console.error / console.debug
	// only record the message as a trace node; no host method is called.
	// They are version-gated uncosted ABIs rather than ledger writes.
	for _, name := range []string{"console.log", "console.info", "console.warn", "console.error", "console.debug"} {
		name := name
		r.addLegacy(name, func(env *Env, args []uint64) ([]uint64, error) {
			msg, err := env.Legacy.ReadString(ptr32(args[0]))
			if err != nil {
				return nil, rterr.WrapABI(name, err)
			}
			_, err = env.dispatch(name, []trace.Param{{Name: "message", Value: trace.String(msg)}}, func() (trace.Value, error) {
				return trace.String(msg), nil
			})
			return nil, err
		})
	}
}

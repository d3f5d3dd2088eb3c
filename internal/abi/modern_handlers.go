package abi

import (
	"fmt"

	"github.com/massalabs/sc-runtime/internal/rterr"
	"github.com/massalabs/sc-runtime/internal/trace"
	"google.golang.org/protobuf/encoding/protowire"
)

// Modern-dialect ABIs exchange arguments and results as small
// Protocol-Buffers-encoded messages rather than positional i32 pointers;
// registerModern covers a representative slice of ledger, balance, and
// crypto ABIs under that codec. Every message here uses plain protowire
// encode/decode rather than generated types, since the wire shapes are a
// handful of scalar/bytes fields each.

const (
	fieldKey    = protowire.Number(1)
	fieldValue  = protowire.Number(2)
	fieldFound  = protowire.Number(3)
	fieldTo     = protowire.Number(1)
	fieldAmount = protowire.Number(2)
)

func decodeBytesField(b []byte, want protowire.Number) ([]byte, error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("abi: malformed protobuf tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.BytesType {
			skip := protowire.ConsumeFieldValue(num, typ, b)
			if skip < 0 {
				return nil, fmt.Errorf("abi: malformed protobuf field %d: %w", num, protowire.ParseError(skip))
			}
			b = b[skip:]
			continue
		}
		val, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("abi: malformed protobuf bytes field %d: %w", num, protowire.ParseError(n))
		}
		if num == want {
			out := make([]byte, len(val))
			copy(out, val)
			return out, nil
		}
		b = b[n:]
	}
	return nil, fmt.Errorf("abi: protobuf field %d not present", want)
}

func decodeVarintField(b []byte, want protowire.Number) (uint64, error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, fmt.Errorf("abi: malformed protobuf tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.VarintType {
			skip := protowire.ConsumeFieldValue(num, typ, b)
			if skip < 0 {
				return 0, fmt.Errorf("abi: malformed protobuf field %d: %w", num, protowire.ParseError(skip))
			}
			b = b[skip:]
			continue
		}
		val, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, fmt.Errorf("abi: malformed protobuf varint field %d: %w", num, protowire.ParseError(n))
		}
		if num == want {
			return val, nil
		}
		b = b[n:]
	}
	return 0, fmt.Errorf("abi: protobuf field %d not present", want)
}

func encodeBytesMessage(fields map[protowire.Number][]byte) []byte {
	var out []byte
	for num, val := range fields {
		out = protowire.AppendTag(out, num, protowire.BytesType)
		out = protowire.AppendBytes(out, val)
	}
	return out
}

func encodeVarintMessage(fields map[protowire.Number]uint64) []byte {
	var out []byte
	for num, val := range fields {
		out = protowire.AppendTag(out, num, protowire.VarintType)
		out = protowire.AppendVarint(out, val)
	}
	return out
}

func registerModern(r *Registry) {
	r.addModern("get_data", func(env *Env, argOffset uint32) (uint32, error) {
		argMsg, err := env.Modern.ReadBuffer(argOffset)
		if err != nil {
			return 0, rterr.WrapABI("get_data", err)
		}
		key, err := decodeBytesField(argMsg, fieldKey)
		if err != nil {
			return 0, rterr.WrapABI("get_data", err)
		}
		var value []byte
		_, err = env.dispatch("get_data", []trace.Param{{Name: "key", Value: trace.Bytes(key)}}, func() (trace.Value, error) {
			value, err = env.Host.GetData(env.Ctx, key)
			return trace.Bytes(value), rterr.WrapHostInterface(err)
		})
		if err != nil {
			return 0, err
		}
		reply := encodeBytesMessage(map[protowire.Number][]byte{fieldValue: value})
		offset, err := env.Modern.WriteBuffer(reply)
		if err != nil {
			return 0, rterr.WrapABI("get_data", err)
		}
		return offset, nil
	})

	r.addModern("set_data", func(env *Env, argOffset uint32) (uint32, error) {
		argMsg, err := env.Modern.ReadBuffer(argOffset)
		if err != nil {
			return 0, rterr.WrapABI("set_data", err)
		}
		key, err := decodeBytesField(argMsg, fieldKey)
		if err != nil {
			return 0, rterr.WrapABI("set_data", err)
		}
		value, err := decodeBytesField(argMsg, fieldValue)
		if err != nil {
			return 0, rterr.WrapABI("set_data", err)
		}
		_, err = env.dispatch("set_data", nil, func() (trace.Value, error) {
			return trace.Value{}, rterr.WrapHostInterface(env.Host.SetData(env.Ctx, key, value))
		})
		if err != nil {
			return 0, err
		}
		offset, err := env.Modern.WriteBuffer(nil)
		if err != nil {
			return 0, rterr.WrapABI("set_data", err)
		}
		return offset, nil
	})

	r.addModern("has_data", func(env *Env, argOffset uint32) (uint32, error) {
		argMsg, err := env.Modern.ReadBuffer(argOffset)
		if err != nil {
			return 0, rterr.WrapABI("has_data", err)
		}
		key, err := decodeBytesField(argMsg, fieldKey)
		if err != nil {
			return 0, rterr.WrapABI("has_data", err)
		}
		var has bool
		_, err = env.dispatch("has_data", nil, func() (trace.Value, error) {
			has, err = env.Host.HasData(env.Ctx, key)
			return trace.Bool(has), rterr.WrapHostInterface(err)
		})
		if err != nil {
			return 0, err
		}
		var foundVal uint64
		if has {
			foundVal = 1
		}
		reply := encodeVarintMessage(map[protowire.Number]uint64{fieldFound: foundVal})
		offset, err := env.Modern.WriteBuffer(reply)
		if err != nil {
			return 0, rterr.WrapABI("has_data", err)
		}
		return offset, nil
	})

	r.addModern("transfer_coins", func(env *Env, argOffset uint32) (uint32, error) {
		argMsg, err := env.Modern.ReadBuffer(argOffset)
		if err != nil {
			return 0, rterr.WrapABI("transfer_coins", err)
		}
		to, err := decodeBytesField(argMsg, fieldTo)
		if err != nil {
			return 0, rterr.WrapABI("transfer_coins", err)
		}
		amount, err := decodeVarintField(argMsg, fieldAmount)
		if err != nil {
			return 0, rterr.WrapABI("transfer_coins", err)
		}
		_, err = env.dispatch("transfer_coins", nil, func() (trace.Value, error) {
			return trace.Value{}, rterr.WrapHostInterface(env.Host.TransferCoins(env.Ctx, string(to), amount))
		})
		if err != nil {
			return 0, err
		}
		offset, err := env.Modern.WriteBuffer(nil)
		if err != nil {
			return 0, rterr.WrapABI("transfer_coins", err)
		}
		return offset, nil
	})

	r.addModern("hash_blake3", func(env *Env, argOffset uint32) (uint32, error) {
		argMsg, err := env.Modern.ReadBuffer(argOffset)
		if err != nil {
			return 0, rterr.WrapABI("hash_blake3", err)
		}
		data, err := decodeBytesField(argMsg, fieldValue)
		if err != nil {
			return 0, rterr.WrapABI("hash_blake3", err)
		}
		var digest []byte
		_, err = env.dispatch("hash_blake3", nil, func() (trace.Value, error) {
			digest, err = env.Host.HashBlake3(env.Ctx, data)
			return trace.Bytes(digest), rterr.WrapHostInterface(err)
		})
		if err != nil {
			return 0, err
		}
		reply := encodeBytesMessage(map[protowire.Number][]byte{fieldValue: digest})
		offset, err := env.Modern.WriteBuffer(reply)
		if err != nil {
			return 0, rterr.WrapABI("hash_blake3", err)
		}
		return offset, nil
	})
}

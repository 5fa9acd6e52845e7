package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

// ScriptType is the standard output script template a pk script matches.
type ScriptType uint8

const (
	ScriptUnknown ScriptType = iota
	ScriptP2PKH
	ScriptP2SH
	ScriptP2WPKH
	ScriptP2WSH
	ScriptNullData
)

func (t ScriptType) String() string {
	switch t {
	case ScriptP2PKH:
		return "p2pkh"
	case ScriptP2SH:
		return "p2sh"
	case ScriptP2WPKH:
		return "p2wpkh"
	case ScriptP2WSH:
		return "p2wsh"
	case ScriptNullData:
		return "nulldata"
	default:
		return "unknown"
	}
}

// HashSize returns the length of the hash committed to by scripts of type t,
// or 0 for types that do not commit to a hash.
func (t ScriptType) HashSize() int {
	switch t {
	case ScriptP2PKH, ScriptP2SH, ScriptP2WPKH:
		return 20
	case ScriptP2WSH:
		return 32
	default:
		return 0
	}
}

// ClassifyScript matches script against the standard templates and returns
// the template together with the hash it commits to. NullData and unknown
// scripts return a nil hash.
func ClassifyScript(script []byte) (ScriptType, []byte) {
	switch {
	case len(script) == 25 &&
		script[0] == txscript.OP_DUP &&
		script[1] == txscript.OP_HASH160 &&
		script[2] == txscript.OP_DATA_20 &&
		script[23] == txscript.OP_EQUALVERIFY &&
		script[24] == txscript.OP_CHECKSIG:
		return ScriptP2PKH, script[3:23]

	case len(script) == 23 &&
		script[0] == txscript.OP_HASH160 &&
		script[1] == txscript.OP_DATA_20 &&
		script[22] == txscript.OP_EQUAL:
		return ScriptP2SH, script[2:22]

	case len(script) == 22 &&
		script[0] == txscript.OP_0 &&
		script[1] == txscript.OP_DATA_20:
		return ScriptP2WPKH, script[2:22]

	case len(script) == 34 &&
		script[0] == txscript.OP_0 &&
		script[1] == txscript.OP_DATA_32:
		return ScriptP2WSH, script[2:34]

	case len(script) > 0 && script[0] == txscript.OP_RETURN:
		return ScriptNullData, nil
	}

	return ScriptUnknown, nil
}

// PayToScript builds the standard pk script of type t committing to hash.
func PayToScript(t ScriptType, hash []byte) ([]byte, error) {
	if t.HashSize() == 0 || len(hash) != t.HashSize() {
		return nil, fmt.Errorf("cannot build %s script from %d byte hash", t, len(hash))
	}

	b := txscript.NewScriptBuilder()
	switch t {
	case ScriptP2PKH:
		b.AddOp(txscript.OP_DUP).AddOp(txscript.OP_HASH160).AddData(hash).
			AddOp(txscript.OP_EQUALVERIFY).AddOp(txscript.OP_CHECKSIG)
	case ScriptP2SH:
		b.AddOp(txscript.OP_HASH160).AddData(hash).AddOp(txscript.OP_EQUAL)
	case ScriptP2WPKH, ScriptP2WSH:
		b.AddOp(txscript.OP_0).AddData(hash)
	}

	return b.Script()
}

// ExtractOpReturn returns the single data push carried by an OP_RETURN
// script. A bare OP_RETURN yields an empty payload.
func ExtractOpReturn(script []byte) ([]byte, error) {
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_RETURN {
		return nil, ErrNotOpReturn
	}

	if !tokenizer.Next() {
		if err := tokenizer.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOpReturn, err)
		}
		return []byte{}, nil
	}

	op := tokenizer.Opcode()
	if op > txscript.OP_PUSHDATA4 {
		return nil, fmt.Errorf("%w: opcode 0x%02x is not a data push", ErrMalformedOpReturn, op)
	}
	data := tokenizer.Data()

	if tokenizer.Next() {
		return nil, fmt.Errorf("%w: more than one push", ErrMalformedOpReturn)
	}
	if err := tokenizer.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOpReturn, err)
	}

	payload := make([]byte, len(data))
	copy(payload, data)

	return payload, nil
}

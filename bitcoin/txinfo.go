package bitcoin

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/babylonlabs-io/account-control/lib/math"
)

// DustThreshold is the smallest payment, in satoshis, accepted as a
// redemption payment.
const DustThreshold uint64 = 546

// TxInfo is a Bitcoin transaction split into the four parts of its legacy
// (witness-stripped) serialization.
type TxInfo struct {
	Version      [4]byte `json:"version"`
	InputVector  []byte  `json:"input_vector"`
	OutputVector []byte  `json:"output_vector"`
	Locktime     [4]byte `json:"locktime"`
}

// NewTxInfo splits tx into its TxInfo parts. Witness data is dropped.
func NewTxInfo(tx *wire.MsgTx) (TxInfo, error) {
	var info TxInfo

	binary.LittleEndian.PutUint32(info.Version[:], uint32(tx.Version))
	binary.LittleEndian.PutUint32(info.Locktime[:], tx.LockTime)

	var vin bytes.Buffer
	if err := wire.WriteVarInt(&vin, 0, uint64(len(tx.TxIn))); err != nil {
		return TxInfo{}, err
	}
	for _, in := range tx.TxIn {
		vin.Write(in.PreviousOutPoint.Hash[:])

		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], in.PreviousOutPoint.Index)
		vin.Write(buf[:])

		if err := wire.WriteVarBytes(&vin, 0, in.SignatureScript); err != nil {
			return TxInfo{}, err
		}

		binary.LittleEndian.PutUint32(buf[:], in.Sequence)
		vin.Write(buf[:])
	}

	var vout bytes.Buffer
	if err := wire.WriteVarInt(&vout, 0, uint64(len(tx.TxOut))); err != nil {
		return TxInfo{}, err
	}
	for _, out := range tx.TxOut {
		if err := wire.WriteTxOut(&vout, 0, tx.Version, out); err != nil {
			return TxInfo{}, err
		}
	}

	info.InputVector = vin.Bytes()
	info.OutputVector = vout.Bytes()

	return info, nil
}

// Serialize returns version ‖ vin ‖ vout ‖ locktime.
func (t TxInfo) Serialize() []byte {
	buf := make([]byte, 0, 8+len(t.InputVector)+len(t.OutputVector))
	buf = append(buf, t.Version[:]...)
	buf = append(buf, t.InputVector...)
	buf = append(buf, t.OutputVector...)
	buf = append(buf, t.Locktime[:]...)

	return buf
}

// Hash returns the transaction id in internal byte order.
func (t TxInfo) Hash() chainhash.Hash {
	return chainhash.DoubleHashH(t.Serialize())
}

// SumPaidTo returns the total value of the outputs in vout whose script
// matches scriptType and commits to hash.
func SumPaidTo(vout []byte, scriptType ScriptType, hash []byte) (uint64, error) {
	outputs, err := ParseOutputs(vout)
	if err != nil {
		return 0, err
	}

	var total uint64
	for _, out := range outputs {
		t, h := ClassifyScript(out.PkScript)
		if t != scriptType || !bytes.Equal(h, hash) {
			continue
		}

		var ok bool
		total, ok = math.SafeAdd(total, out.Value)
		if !ok {
			return 0, fmt.Errorf("%w: summing outputs to %s", ErrAmountOverflow, scriptType)
		}
	}

	return total, nil
}

// OpReturnPayloads returns the payload of every OP_RETURN output in vout.
func OpReturnPayloads(vout []byte) ([][]byte, error) {
	outputs, err := ParseOutputs(vout)
	if err != nil {
		return nil, err
	}

	var payloads [][]byte
	for _, out := range outputs {
		if t, _ := ClassifyScript(out.PkScript); t != ScriptNullData {
			continue
		}
		payload, err := ExtractOpReturn(out.PkScript)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}

	return payloads, nil
}

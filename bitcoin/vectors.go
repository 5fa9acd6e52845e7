package bitcoin

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

const (
	// minInputSize is the size of an input with an empty signature script:
	// outpoint (36) + script length (1) + sequence (4).
	minInputSize = 41

	// minOutputSize is the size of an output with an empty pk script:
	// value (8) + script length (1).
	minOutputSize = 9
)

// Input is a decoded element of a legacy (witness-stripped) input vector.
type Input struct {
	PrevOut         wire.OutPoint
	SignatureScript []byte
	Sequence        uint32
}

// Output is a decoded element of an output vector.
type Output struct {
	Value    uint64
	PkScript []byte
}

// ValidateVin checks that vin is a compact-size count followed by exactly
// that many well-formed inputs.
func ValidateVin(vin []byte) error {
	_, err := ParseInputs(vin)
	return err
}

// ValidateVout checks that vout is a compact-size count followed by exactly
// that many well-formed outputs.
func ValidateVout(vout []byte) error {
	_, err := ParseOutputs(vout)
	return err
}

func ParseInputs(vin []byte) ([]Input, error) {
	r := bytes.NewReader(vin)

	count, err := readCount(r, len(vin), minInputSize)
	if err != nil {
		return nil, err
	}

	inputs := make([]Input, 0, count)
	for i := uint64(0); i < count; i++ {
		var in Input

		if err := binary.Read(r, binary.LittleEndian, &in.PrevOut); err != nil {
			return nil, fmt.Errorf("%w: input %d outpoint: %v", ErrMalformedVector, i, err)
		}

		in.SignatureScript, err = wire.ReadVarBytes(r, 0, uint32(r.Len()), "signature script")
		if err != nil {
			return nil, fmt.Errorf("%w: input %d script: %v", ErrMalformedVector, i, err)
		}

		if err := binary.Read(r, binary.LittleEndian, &in.Sequence); err != nil {
			return nil, fmt.Errorf("%w: input %d sequence: %v", ErrMalformedVector, i, err)
		}

		inputs = append(inputs, in)
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d bytes after %d inputs", ErrTrailingBytes, r.Len(), count)
	}

	return inputs, nil
}

func ParseOutputs(vout []byte) ([]Output, error) {
	r := bytes.NewReader(vout)

	count, err := readCount(r, len(vout), minOutputSize)
	if err != nil {
		return nil, err
	}

	outputs := make([]Output, 0, count)
	for i := uint64(0); i < count; i++ {
		// same layout as wire.WriteTxOut
		var out Output
		if err := binary.Read(r, binary.LittleEndian, &out.Value); err != nil {
			return nil, fmt.Errorf("%w: output %d value: %v", ErrMalformedVector, i, err)
		}

		out.PkScript, err = wire.ReadVarBytes(r, 0, uint32(r.Len()), "pk script")
		if err != nil {
			return nil, fmt.Errorf("%w: output %d script: %v", ErrMalformedVector, i, err)
		}

		outputs = append(outputs, out)
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d bytes after %d outputs", ErrTrailingBytes, r.Len(), count)
	}

	return outputs, nil
}

// readCount reads the leading compact-size element count and bounds it by the
// number of elements the vector could possibly hold.
func readCount(r *bytes.Reader, total, minElemSize int) (uint64, error) {
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: element count: %v", ErrMalformedVector, err)
	}
	if count == 0 {
		return 0, ErrEmptyVector
	}
	if count > uint64(total/minElemSize) {
		return 0, fmt.Errorf("%w: count %d does not fit in %d bytes", ErrMalformedVector, count, total)
	}

	return count, nil
}

package addrcodec

import (
	"bytes"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/babylonlabs-io/account-control/bitcoin"
)

const (
	minAddressLength = 14
	maxAddressLength = 74
)

// Decoded is a Bitcoin address reduced to the script template it pays to and
// the hash that template commits to.
type Decoded struct {
	Type bitcoin.ScriptType
	Hash []byte
}

// Matches reports whether script pays to the decoded address.
func (d Decoded) Matches(script []byte) bool {
	t, h := bitcoin.ClassifyScript(script)
	return t == d.Type && bytes.Equal(h, d.Hash)
}

func (d Decoded) PkScript() ([]byte, error) {
	return bitcoin.PayToScript(d.Type, d.Hash)
}

// Codec decodes the address families of one Bitcoin network.
type Codec struct {
	params        *chaincfg.Params
	base58Leading []byte
	segwitPrefix  string
}

func NewCodec(params *chaincfg.Params) *Codec {
	c := &Codec{
		params:       params,
		segwitPrefix: params.Bech32HRPSegwit + "1",
	}

	switch params.Net {
	case chaincfg.MainNetParams.Net:
		c.base58Leading = []byte{'1', '3'}
	default:
		c.base58Leading = []byte{'m', 'n', '2'}
	}

	return c
}

func (c *Codec) Params() *chaincfg.Params {
	return c.params
}

// Validate reports whether Decode accepts address.
func (c *Codec) Validate(address string) bool {
	_, err := c.Decode(address)
	return err == nil
}

// Decode parses a base58check (P2PKH, P2SH) or bech32 witness v0 (P2WPKH,
// P2WSH) address of the codec's network.
func (c *Codec) Decode(address string) (Decoded, error) {
	if len(address) < minAddressLength || len(address) > maxAddressLength {
		return Decoded{}, errorsmod.Wrapf(ErrInvalidAddressFormat, "length %d", len(address))
	}

	if strings.HasPrefix(strings.ToLower(address), c.segwitPrefix) {
		return c.decodeSegwit(address)
	}

	if bytes.IndexByte(c.base58Leading, address[0]) >= 0 {
		return c.decodeBase58(address)
	}

	return Decoded{}, errorsmod.Wrapf(ErrInvalidAddressFormat, "unknown prefix for %s", c.params.Name)
}

func (c *Codec) decodeBase58(address string) (Decoded, error) {
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return Decoded{}, errorsmod.Wrap(ErrInvalidAddressFormat, err.Error())
	}
	if len(payload) != 20 {
		return Decoded{}, errorsmod.Wrapf(ErrInvalidAddressFormat, "payload length %d", len(payload))
	}

	switch version {
	case c.params.PubKeyHashAddrID:
		return Decoded{Type: bitcoin.ScriptP2PKH, Hash: payload}, nil
	case c.params.ScriptHashAddrID:
		return Decoded{Type: bitcoin.ScriptP2SH, Hash: payload}, nil
	default:
		return Decoded{}, errorsmod.Wrapf(ErrInvalidAddressFormat, "version byte 0x%02x", version)
	}
}

func (c *Codec) decodeSegwit(address string) (Decoded, error) {
	hrp, data, encoding, err := bech32.DecodeGeneric(address)
	if err != nil {
		return Decoded{}, errorsmod.Wrap(ErrInvalidAddressFormat, err.Error())
	}
	if hrp != c.params.Bech32HRPSegwit {
		return Decoded{}, errorsmod.Wrapf(ErrInvalidAddressFormat, "hrp %q", hrp)
	}
	if len(data) < 1 {
		return Decoded{}, errorsmod.Wrap(ErrInvalidAddressFormat, "missing witness version")
	}

	if data[0] != 0 {
		return Decoded{}, errorsmod.Wrapf(ErrUnsupportedScriptType, "witness version %d", data[0])
	}
	if encoding != bech32.Version0 {
		return Decoded{}, errorsmod.Wrap(ErrInvalidAddressFormat, "witness v0 address must use bech32 checksum")
	}

	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return Decoded{}, errorsmod.Wrap(ErrInvalidAddressFormat, err.Error())
	}

	switch len(program) {
	case 20:
		return Decoded{Type: bitcoin.ScriptP2WPKH, Hash: program}, nil
	case 32:
		return Decoded{Type: bitcoin.ScriptP2WSH, Hash: program}, nil
	default:
		return Decoded{}, errorsmod.Wrapf(ErrInvalidAddressFormat, "witness program length %d", len(program))
	}
}

package log

import (
	"github.com/btcsuite/btcd/btcutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func Reserve(id string) zap.Field {
	return zap.String("reserve", id)
}

// Sats logs a satoshi amount both raw and formatted in BTC.
func Sats(key string, amount uint64) zap.Field {
	return zap.Object(key, satsMarshaler(amount))
}

type satsMarshaler uint64

func (s satsMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("sats", uint64(s))
	enc.AddString("btc", btcutil.Amount(int64(s)).String())
	return nil
}

package relay

import (
	"time"

	"github.com/avast/retry-go/v4"
)

// Variables to use for retrying bitcoind queries
var (
	RtyAttNum = uint(5)
	RtyAtt    = retry.Attempts(RtyAttNum)
	RtyDel    = retry.Delay(time.Millisecond * 400)
	RtyErr    = retry.LastErrorOnly(true)
)

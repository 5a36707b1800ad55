package collector

import (
	"fmt"
	"time"
)

var intervalNames = map[time.Duration]string{
	time.Minute:      "ONE_MINUTE",
	3 * time.Minute:  "THREE_MINUTE",
	5 * time.Minute:  "FIVE_MINUTE",
	10 * time.Minute: "TEN_MINUTE",
	15 * time.Minute: "FIFTEEN_MINUTE",
	30 * time.Minute: "THIRTY_MINUTE",
	time.Hour:        "ONE_HOUR",
	24 * time.Hour:   "ONE_DAY",
}

// IntervalName maps a candle interval to the broker's interval name.
func IntervalName(d time.Duration) (string, error) {
	name, ok := intervalNames[d]
	if !ok {
		return "", fmt.Errorf("unsupported candle interval %s", d)
	}
	return name, nil
}

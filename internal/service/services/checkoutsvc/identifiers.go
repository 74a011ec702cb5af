package checkoutsvc

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	orderNumberPrefix = "FX-"
	orderSuffixLength = 3
	base36Alphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	trackingTokenSize = 32
)

// newOrderNumber returns FX-<base36 epoch millis>-<3 random base36 chars>.
func newOrderNumber(now time.Time, r io.Reader) (string, error) {
	max := big.NewInt(int64(len(base36Alphabet)))
	suffix := make([]byte, orderSuffixLength)
	for i := range suffix {
		n, err := rand.Int(r, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate order number: %w", err)
		}
		suffix[i] = base36Alphabet[n.Int64()]
	}

	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))

	return orderNumberPrefix + stamp + "-" + string(suffix), nil
}

// newTrackingToken returns 32 random bytes as lowercase hex. The token is a capability: never log it.
func newTrackingToken(r io.Reader) (string, error) {
	b := make([]byte, trackingTokenSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to generate tracking token: %w", err)
	}

	return hex.EncodeToString(b), nil
}

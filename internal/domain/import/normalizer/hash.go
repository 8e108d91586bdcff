package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const hashDateLayout = "2006-01-02T15:04:05"

// ImportHash fingerprints a transaction by date, amount and description.
// Identical rows in two uploads produce the same hash, which is what makes
// re-importing an overlapping statement idempotent.
func ImportHash(date time.Time, amount decimal.Decimal, description string) string {
	var b strings.Builder
	b.WriteString(date.Format(hashDateLayout))
	b.WriteByte('_')
	b.WriteString(CanonicalAmount(amount))
	b.WriteByte('_')
	b.WriteString(description)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

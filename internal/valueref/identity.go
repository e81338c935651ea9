package valueref

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jxskiss/base62"

	"strategy-logic-go/internal/models"
)

// CanonicalKey renders every field of ref in a fixed order.
// Two refs address the same time-series column iff their keys are equal.
func CanonicalKey(ref models.ValueRef) string {
	params := make([]string, len(ref.Params))
	for i, p := range ref.Params {
		params[i] = strconv.FormatFloat(p, 'g', -1, 64)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d:%d|%s",
		ref.IndicatorID,
		ref.Timeframe,
		ref.InputChannel,
		strings.Join(params, ","),
		ref.OutputChannel,
		ref.OffsetRange[0], ref.OffsetRange[1],
		ref.Aggregation,
	)
}

// Identity is the stable, serializable identity of ref: its canonical key in base62.
// It is safe to use as a map key, a registry id, or a URL segment.
func Identity(ref models.ValueRef) string {
	return base62.EncodeToString([]byte(CanonicalKey(ref)))
}

// KeyFromIdentity reverses Identity, mainly for diagnostics.
func KeyFromIdentity(id string) (string, error) {
	raw, err := base62.DecodeString(id)
	if err != nil {
		return "", fmt.Errorf("decode value identity %q: %w", id, err)
	}
	return string(raw), nil
}

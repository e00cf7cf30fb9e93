package generator

import (
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sasquatch989/mockingj/pkg/schema"
)

// FormatFunc produces a string for a format. maxLen is negative when the
// node sets no maxLength. Results outside the bounds are reported as
// unsupported constraints.
type FormatFunc func(r *rand.Rand, minLen, maxLen int) string

const (
	alphabet      = "abcdefghijklmnopqrstuvwxyz0123456789"
	defaultStrMax = 16
	maxStrSpread  = 64
)

var (
	baseTime = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	words    = []string{"john", "jane", "alex", "maria", "dev", "test", "user", "alpha", "beta", "gamma", "delta"}
)

func builtinFormats() map[string]FormatFunc {
	return map[string]FormatFunc{
		"date": func(r *rand.Rand, _, _ int) string {
			return baseTime.AddDate(0, 0, r.IntN(3650)).Format(time.DateOnly)
		},
		"date-time": func(r *rand.Rand, _, _ int) string {
			return baseTime.Add(time.Duration(r.Int64N(10*365*24*3600)) * time.Second).Format(time.RFC3339)
		},
		"time": func(r *rand.Rand, _, _ int) string {
			return fmt.Sprintf("%02d:%02d:%02dZ", r.IntN(24), r.IntN(60), r.IntN(60))
		},
		"uuid": func(r *rand.Rand, _, _ int) string {
			return seededUUID(r)
		},
		"email": func(r *rand.Rand, _, _ int) string {
			return fmt.Sprintf("%s%d@example.com", pick(r, words), r.IntN(1000))
		},
		"uri": func(r *rand.Rand, _, _ int) string {
			return "https://example.com/" + randomString(r, 8)
		},
		"url": func(r *rand.Rand, _, _ int) string {
			return "https://example.com/" + randomString(r, 8)
		},
		"hostname": func(r *rand.Rand, _, _ int) string {
			return pick(r, words) + ".example.com"
		},
		"ipv4": func(r *rand.Rand, _, _ int) string {
			return fmt.Sprintf("%d.%d.%d.%d", 1+r.IntN(223), r.IntN(256), r.IntN(256), 1+r.IntN(254))
		},
		"ipv6": func(r *rand.Rand, _, _ int) string {
			return fmt.Sprintf("2001:db8:%x:%x:%x:%x:%x:%x",
				r.IntN(0x10000), r.IntN(0x10000), r.IntN(0x10000),
				r.IntN(0x10000), r.IntN(0x10000), r.IntN(0x10000))
		},
		"password": password,
		"byte":     base64String,
		"binary": func(r *rand.Rand, minLen, maxLen int) string {
			return randomString(r, stringLength(r, minLen, maxLen))
		},
	}
}

// seededUUID builds a version 4 UUID from PRNG bytes.
func seededUUID(r *rand.Rand) string {
	var b [16]byte
	for i := range b {
		b[i] = byte(r.IntN(256))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	id, err := uuid.FromBytes(b[:])
	if err != nil {
		return uuid.Nil.String()
	}
	return id.String()
}

// password has at least one upper, lower, digit and special character.
func password(r *rand.Rand, minLen, maxLen int) string {
	n := max(12, minLen)
	if maxLen >= 0 && n > maxLen {
		n = maxLen
	}
	if n < 4 {
		return randomString(r, n)
	}
	classes := []string{"ABCDEFGHIJKLMNOPQRSTUVWXYZ", "abcdefghijklmnopqrstuvwxyz", "0123456789", "!@#$%^&*"}
	out := make([]byte, n)
	for i := range out {
		cls := classes[r.IntN(len(classes))]
		if i < len(classes) {
			cls = classes[i]
		}
		out[i] = cls[r.IntN(len(cls))]
	}
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return string(out)
}

// base64String encodes random bytes; the encoded length is a multiple of 4.
func base64String(r *rand.Rand, minLen, maxLen int) string {
	n := max(8, (minLen+3)/4*4)
	if maxLen >= 0 && n > maxLen {
		n = maxLen / 4 * 4
	}
	raw := make([]byte, n/4*3)
	for i := range raw {
		raw[i] = byte(r.IntN(256))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func (st *state) genString(n *schema.Node, f frame, r *rand.Rand) string {
	minLen, maxLen := 0, -1
	if n.MinLength != nil {
		minLen = *n.MinLength
	}
	if n.MaxLength != nil {
		maxLen = *n.MaxLength
	}

	if fn, ok := st.gen.formats[n.Format]; ok && n.Format != "" {
		s := fn(r, minLen, maxLen)
		if l := utf8.RuneCountInString(s); l < minLen || (maxLen >= 0 && l > maxLen) {
			st.degrade(KindUnsupportedConstraint, n, f,
				fmt.Sprintf("format %s cannot satisfy length bounds [%d, %d]", n.Format, minLen, maxLen))
		}
		return s
	}

	if n.Pattern != "" {
		s, err := patternString(r, n.Pattern, minLen, maxLen)
		if err == nil {
			return s
		}
		st.degrade(KindUnsupportedConstraint, n, f, err.Error())
	}

	if n.MinLength == nil && maxLen != 0 {
		minLen = 1
	}
	return randomString(r, stringLength(r, minLen, maxLen))
}

// stringLength picks a length in [minLen, maxLen], defaulting the ceiling
// to 16 and capping the spread.
func stringLength(r *rand.Rand, minLen, maxLen int) int {
	hi := maxLen
	if hi < 0 {
		hi = max(minLen, defaultStrMax)
	}
	hi = min(hi, minLen+maxStrSpread)
	if hi <= minLen {
		return minLen
	}
	return minLen + r.IntN(hi-minLen+1)
}

func randomString(r *rand.Rand, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for range n {
		sb.WriteByte(alphabet[r.IntN(len(alphabet))])
	}
	return sb.String()
}

func pick(r *rand.Rand, from []string) string {
	return from[r.IntN(len(from))]
}

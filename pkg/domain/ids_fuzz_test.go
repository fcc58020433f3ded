package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseMarketID checks that parsing never panics and that accepted
// identifiers are stable under re-parsing.
func FuzzParseMarketID(f *testing.F) {
	f.Add("")
	f.Add("nyc")
	f.Add("US_Standard")
	f.Add("'; DROP TABLE decisions;--")
	f.Add(string([]byte{0xff, 0xfe}))

	f.Fuzz(func(t *testing.T, input string) {
		m, err := ParseMarketID(input)
		if err != nil {
			return
		}
		again, err := ParseMarketID(m.String())
		if err != nil || again != m {
			t.Errorf("round-trip changed market id %q -> %q (%v)", m, again, err)
		}
		if !utf8.ValidString(input) {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

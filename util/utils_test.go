package util

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestHexPrefixes(t *testing.T) {
	c := qt.New(t)
	c.Assert(TrimHex("0xabcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("0XABCD"), qt.Equals, "ABCD")
	c.Assert(TrimHex("abcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("0"), qt.Equals, "0")
	c.Assert(TrimHex(""), qt.Equals, "")
	c.Assert(PrefixHex("abcd"), qt.Equals, "0xabcd")
	c.Assert(PrefixHex("0xabcd"), qt.Equals, "0xabcd")
}

package config

import "bytes"

// CryptoPattern is a pre-recognized constant table (S-box, etc.) at a
// known address, with a canonical name and type string (spec.md
// glossary). spec.md §3/§6 name "crypto-description"/"crypto-pattern
// annotation" as fields on ConfigObject but never specify how a pattern is
// recognized; this is supplemented here (SPEC_FULL.md "Supplemented
// features") as a minimal signature table, consulted by
// AddressMaterializer's type-override order (spec.md §4.3: "crypto-pattern
// annotation" is the last override tier).
type CryptoPattern struct {
	Name       string
	Signature  []byte
	TypeSource string
}

// wellKnownCryptoPatterns ships the single most commonly hard-coded
// constant table in decompiled binaries, the AES forward S-box, as a
// concrete example of the registry shape; production use would load a
// much larger table from the same on-disk document as the rest of
// ConfigStore.
var wellKnownCryptoPatterns = []CryptoPattern{
	{
		Name: "aes_sbox",
		Signature: []byte{
			0x63, 0x7c, 0x77, 0x7b, 0xf2, 0x6b, 0x6f, 0xc5,
			0x30, 0x01, 0x67, 0x2b, 0xfe, 0xd7, 0xab, 0x76,
		},
		TypeSource: "unsigned char[256]",
	},
}

// MatchCryptoPattern returns the registered pattern whose signature is a
// prefix of data, if any.
func MatchCryptoPattern(data []byte) (CryptoPattern, bool) {
	for _, p := range wellKnownCryptoPatterns {
		if len(data) >= len(p.Signature) && bytes.Equal(data[:len(p.Signature)], p.Signature) {
			return p, true
		}
	}
	return CryptoPattern{}, false
}

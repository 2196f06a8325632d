package crypto

import "encoding/binary"

// HashPrefix represents hash prefixes used in XRPL for domain separation.
// The prefix is inserted before the source material so that different kinds
// of objects never hash to the same value.
type HashPrefix uint32

const (
	// HashPrefixTransactionID is the prefix for transaction ID calculation (TXN\0).
	HashPrefixTransactionID HashPrefix = 0x54584E00

	// HashPrefixTxSign is the prefix for single-signed signing data (STX\0).
	HashPrefixTxSign HashPrefix = 0x53545800

	// HashPrefixTxMultiSign is the prefix for multi-signed signing data (SMT\0).
	HashPrefixTxMultiSign HashPrefix = 0x534D5400
)

// Bytes returns the hash prefix as a 4-byte big-endian slice.
func (hp HashPrefix) Bytes() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(hp))
	return b
}

func (hp HashPrefix) String() string {
	b := hp.Bytes()
	return string(b[:3])
}

package crypto

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
)

// Sha512Half returns the first 32 bytes of a sha512 hash of a message.
func Sha512Half(msg []byte) [32]byte {
	h := sha512.Sum512(msg)
	var result [32]byte
	copy(result[:], h[:32])
	return result
}

// PrefixedHash hashes data in the domain of the given prefix.
func PrefixedHash(prefix HashPrefix, data []byte) [32]byte {
	buf := make([]byte, 0, 4+len(data))
	buf = append(buf, prefix.Bytes()...)
	buf = append(buf, data...)
	return Sha512Half(buf)
}

// TransactionID computes the identifier of a signed transaction blob:
// SHA512Half(TXN\0 || blob), rendered as uppercase hex.
func TransactionID(blobHex string) (string, error) {
	blob, err := hex.DecodeString(blobHex)
	if err != nil {
		return "", fmt.Errorf("invalid transaction blob: %w", err)
	}
	if len(blob) == 0 {
		return "", fmt.Errorf("invalid transaction blob: empty")
	}
	id := PrefixedHash(HashPrefixTransactionID, blob)
	return strings.ToUpper(hex.EncodeToString(id[:])), nil
}

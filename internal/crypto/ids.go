package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	addresscodec "github.com/Peersyst/xrpl-go/address-codec"
	"github.com/decred/dcrd/crypto/ripemd160"
)

// AccountIDSize is the size of an XRPL account ID in bytes.
const AccountIDSize = 20

// AccountID is the 160-bit identifier behind a classic address.
type AccountID [AccountIDSize]byte

// Compare orders account IDs as unsigned big-endian integers, which is the
// order the ledger requires for Signers arrays.
func (a AccountID) Compare(b AccountID) int {
	return bytes.Compare(a[:], b[:])
}

func (a AccountID) String() string {
	return fmt.Sprintf("%X", a[:])
}

// CalcAccountID computes the account ID from a public key as
// RIPEMD160(SHA256(publicKey)). The same computation is used for secp256k1
// and Ed25519 keys; the full key including its prefix byte is hashed.
func CalcAccountID(publicKey []byte) AccountID {
	sha256Hash := sha256.Sum256(publicKey)

	ripemd160Hasher := ripemd160.New()
	ripemd160Hasher.Write(sha256Hash[:])
	ripemd160Hash := ripemd160Hasher.Sum(nil)

	var result AccountID
	copy(result[:], ripemd160Hash)
	return result
}

// AccountIDFromAddress decodes a classic address into its account ID.
func AccountIDFromAddress(address string) (AccountID, error) {
	var id AccountID
	_, raw, err := addresscodec.DecodeClassicAddressToAccountID(address)
	if err != nil {
		return id, fmt.Errorf("decode address %q: %w", address, err)
	}
	if len(raw) != AccountIDSize {
		return id, fmt.Errorf("decode address %q: account id has %d bytes", address, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// AddressFromPublicKey derives the classic address owned by a hex public key.
func AddressFromPublicKey(publicKeyHex string) (string, error) {
	pub, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}
	id := CalcAccountID(pub)
	return addresscodec.EncodeAccountIDToClassicAddress(id[:])
}

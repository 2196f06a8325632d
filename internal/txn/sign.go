package txn

import (
	"encoding/hex"
	"fmt"
	"strings"

	binarycodec "github.com/Peersyst/xrpl-go/binary-codec"
	"github.com/Peersyst/xrpl-go/keypairs"

	"github.com/LeJamon/xrplconform/internal/crypto"
)

// SignOptions alters signing. With SignAs set the signature is a single
// multisig contribution on behalf of that account.
type SignOptions struct {
	SignAs string
}

// Signed is a serialized, signed transaction and its identifier.
type Signed struct {
	Blob string `json:"signedTransaction"`
	ID   string `json:"id"`
}

// Sign signs a prepared transaction body with secret. Without SignAs the
// body's Account must be the secret's address; otherwise ErrAccountMismatch
// is returned before anything is serialized.
func Sign(txJSON, secret string, opts *SignOptions) (Signed, error) {
	tx, err := DecodeTxJSON(txJSON)
	if err != nil {
		return Signed{}, err
	}
	privateKey, publicKey, err := keypairs.DeriveKeypair(secret, false)
	if err != nil {
		return Signed{}, fmt.Errorf("failed to derive keypair: %w", err)
	}
	address, err := crypto.AddressFromPublicKey(publicKey)
	if err != nil {
		return Signed{}, err
	}

	delete(tx, "TxnSignature")
	delete(tx, "Signers")

	if opts == nil || opts.SignAs == "" {
		account, _ := tx["Account"].(string)
		if account != address {
			return Signed{}, fmt.Errorf("%w: body account %s, wallet %s", ErrAccountMismatch, account, address)
		}
		tx["SigningPubKey"] = publicKey
		payload, err := binarycodec.EncodeForSigning(tx)
		if err != nil {
			return Signed{}, fmt.Errorf("failed to encode for signing: %w", err)
		}
		signature, err := signPayload(payload, privateKey)
		if err != nil {
			return Signed{}, err
		}
		tx["TxnSignature"] = signature
	} else {
		if opts.SignAs != address {
			return Signed{}, fmt.Errorf("%w: signing as %s with key of %s", ErrAccountMismatch, opts.SignAs, address)
		}
		// Multisigned transactions carry an empty SigningPubKey.
		tx["SigningPubKey"] = ""
		payload, err := binarycodec.EncodeForMultisigning(tx, opts.SignAs)
		if err != nil {
			return Signed{}, fmt.Errorf("failed to encode for multisigning: %w", err)
		}
		signature, err := signPayload(payload, privateKey)
		if err != nil {
			return Signed{}, err
		}
		tx["Signers"] = []any{
			map[string]any{
				"Signer": map[string]any{
					"Account":       opts.SignAs,
					"SigningPubKey": publicKey,
					"TxnSignature":  signature,
				},
			},
		}
	}

	return Serialize(tx)
}

// Serialize encodes a complete transaction map and computes its id.
func Serialize(tx map[string]any) (Signed, error) {
	blob, err := binarycodec.Encode(tx)
	if err != nil {
		return Signed{}, fmt.Errorf("failed to encode transaction: %w", err)
	}
	blob = strings.ToUpper(blob)
	id, err := crypto.TransactionID(blob)
	if err != nil {
		return Signed{}, err
	}
	return Signed{Blob: blob, ID: id}, nil
}

func signPayload(payloadHex, privateKeyHex string) (string, error) {
	payload, err := hex.DecodeString(payloadHex)
	if err != nil {
		return "", fmt.Errorf("invalid signing payload: %w", err)
	}
	signature, err := keypairs.Sign(string(payload), privateKeyHex)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}
	return strings.ToUpper(signature), nil
}

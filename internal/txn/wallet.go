package txn

import (
	"fmt"

	addresscodec "github.com/Peersyst/xrpl-go/address-codec"
	"github.com/Peersyst/xrpl-go/keypairs"

	"github.com/LeJamon/xrplconform/internal/crypto"
)

// Wallet is an account address together with the seed that controls it.
type Wallet struct {
	Address string `json:"address" mapstructure:"address"`
	Secret  string `json:"secret" mapstructure:"secret"`
}

// WalletFromSecret derives the master-key address of a family seed.
func WalletFromSecret(secret string) (Wallet, error) {
	_, pub, err := keypairs.DeriveKeypair(secret, false)
	if err != nil {
		return Wallet{}, fmt.Errorf("failed to derive keypair: %w", err)
	}
	address, err := crypto.AddressFromPublicKey(pub)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{Address: address, Secret: secret}, nil
}

// Validate checks that the address is well formed and, when a secret is
// present, that the secret's master key owns the address.
func (w Wallet) Validate() error {
	if !IsValidAddress(w.Address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, w.Address)
	}
	if w.Secret == "" {
		return nil
	}
	derived, err := WalletFromSecret(w.Secret)
	if err != nil {
		return err
	}
	if derived.Address != w.Address {
		return fmt.Errorf("%w: secret controls %s, not %s", ErrAccountMismatch, derived.Address, w.Address)
	}
	return nil
}

func (w Wallet) String() string {
	return w.Address
}

// IsValidAddress reports whether s is a classic address.
func IsValidAddress(s string) bool {
	return addresscodec.IsValidClassicAddress(s)
}

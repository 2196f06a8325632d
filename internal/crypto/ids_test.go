package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const genesisAddress = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"

func TestCalcAccountID(t *testing.T) {
	tests := []struct {
		name      string
		publicKey string
		accountID string
	}{
		{
			name:      "Ed25519 public key",
			publicKey: "ED9434799226374926EDA3B54B1B461B4ABF7237962EAE18528FEA67595397FA32",
			accountID: "7f58b19358f8e497c8a9ded3e6db3bc23a13c1a5",
		},
		{
			name:      "Secp256k1 public key",
			publicKey: "0330E7FC9D56BB25D6893BA3F317AE5BCF33B3291BD63DB32654A313222F7FD020",
			accountID: "b5f762798a53d543a014caf8b297cff8f2f937e8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pubKey, err := hex.DecodeString(tt.publicKey)
			require.NoError(t, err)

			accountID := CalcAccountID(pubKey)

			expectedID, err := hex.DecodeString(tt.accountID)
			require.NoError(t, err)

			assert.Equal(t, expectedID, accountID[:])
		})
	}
}

func TestAddressRoundTrip(t *testing.T) {
	addr, err := AddressFromPublicKey("0330E7FC9D56BB25D6893BA3F317AE5BCF33B3291BD63DB32654A313222F7FD020")
	require.NoError(t, err)
	assert.Equal(t, genesisAddress, addr)

	id, err := AccountIDFromAddress(genesisAddress)
	require.NoError(t, err)
	assert.Equal(t, "B5F762798A53D543A014CAF8B297CFF8F2F937E8", id.String())
}

func TestAccountIDFromAddressRejectsGarbage(t *testing.T) {
	_, err := AccountIDFromAddress("not-an-address")
	assert.Error(t, err)
}

func TestAccountIDCompare(t *testing.T) {
	var low, high AccountID
	low[0] = 0x01
	high[0] = 0x02

	assert.Negative(t, low.Compare(high))
	assert.Positive(t, high.Compare(low))
	assert.Zero(t, low.Compare(low))
}

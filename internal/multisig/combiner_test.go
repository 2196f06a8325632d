package multisig

import (
	"testing"

	binarycodec "github.com/Peersyst/xrpl-go/binary-codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/xrplconform/internal/client"
	"github.com/LeJamon/xrplconform/internal/crypto"
	"github.com/LeJamon/xrplconform/internal/txn"
)

const (
	account = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	body    = `{"TransactionType":"AccountSet","Account":"rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh","Domain":"6578616D706C652E636F6D","Fee":"40","Flags":2147483648,"Sequence":5,"LastLedgerSequence":20}`
	other   = `{"TransactionType":"AccountSet","Account":"rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh","Domain":"6578616D706C652E636F6D","Fee":"40","Flags":2147483648,"Sequence":6,"LastLedgerSequence":20}`
)

var signerSecrets = []string{
	"shK6YXzwYfnFVn3YZSaMh5zuAddKx",
	"shUHQnL4EH27V4EiBrj6EfhWvZngF",
	"ss6F8381Br6wwpy9p582H8sBt19J3",
}

func partial(t *testing.T, txJSON, secret string) Partial {
	t.Helper()
	w, err := txn.WalletFromSecret(secret)
	require.NoError(t, err)
	signed, err := txn.Sign(txJSON, secret, &txn.SignOptions{SignAs: w.Address})
	require.NoError(t, err)
	return Partial{Signer: w.Address, Blob: signed.Blob, ID: signed.ID}
}

func signersOf(t *testing.T, blob string) []string {
	t.Helper()
	tx, err := binarycodec.Decode(blob)
	require.NoError(t, err)
	var out []string
	for _, e := range signerEntries(tx["Signers"]) {
		out = append(out, e["Account"].(string))
	}
	return out
}

func TestCombineIsOrderIndependent(t *testing.T) {
	a := partial(t, body, signerSecrets[0])
	b := partial(t, body, signerSecrets[1])
	c := partial(t, body, signerSecrets[2])

	first, err := Combiner{}.Combine([]Partial{a, b, c})
	require.NoError(t, err)

	for _, order := range [][]Partial{{c, b, a}, {b, a, c}, {a, c, b}} {
		got, err := Combiner{}.Combine(order)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}

	id, err := crypto.TransactionID(first.Blob)
	require.NoError(t, err)
	assert.Equal(t, id, first.ID)
}

func TestCombineSortsSignersByAccountID(t *testing.T) {
	var partials []Partial
	for _, s := range signerSecrets {
		partials = append(partials, partial(t, body, s))
	}
	combined, err := Combiner{}.Combine(partials)
	require.NoError(t, err)

	signers := signersOf(t, combined.Blob)
	require.Len(t, signers, len(signerSecrets))
	for i := 1; i < len(signers); i++ {
		prev, err := crypto.AccountIDFromAddress(signers[i-1])
		require.NoError(t, err)
		cur, err := crypto.AccountIDFromAddress(signers[i])
		require.NoError(t, err)
		assert.Negative(t, prev.Compare(cur), "signers out of order at %d", i)
	}

	tx, err := binarycodec.Decode(combined.Blob)
	require.NoError(t, err)
	assert.Equal(t, account, tx["Account"])
	assert.Equal(t, "", tx["SigningPubKey"])
}

func TestCombineRejectsDuplicateSigner(t *testing.T) {
	a := partial(t, body, signerSecrets[0])

	_, err := Combiner{}.Combine([]Partial{a, a})
	var qerr *QuorumError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "duplicate signer", qerr.Reason)
	assert.Equal(t, []string{a.Signer}, qerr.Signers)

	t.Run("unreadable blob", func(t *testing.T) {
		_, err := Combiner{}.Combine([]Partial{a, {Signer: a.Signer, Blob: "DEADBEEF"}})
		var qerr *QuorumError
		require.ErrorAs(t, err, &qerr)
		assert.Equal(t, "duplicate signer", qerr.Reason)
		assert.NotErrorIs(t, err, ErrMalformedPartial)
	})
}

func TestCombineRejectsEmpty(t *testing.T) {
	_, err := Combiner{}.Combine(nil)
	var qerr *QuorumError
	assert.ErrorAs(t, err, &qerr)
}

func TestCombineRejectsDifferentBodies(t *testing.T) {
	a := partial(t, body, signerSecrets[0])
	b := partial(t, other, signerSecrets[1])

	_, err := Combiner{}.Combine([]Partial{a, b})
	var qerr *QuorumError
	assert.ErrorAs(t, err, &qerr)
}

func TestCombineRejectsMislabelledPartial(t *testing.T) {
	a := partial(t, body, signerSecrets[0])
	b := partial(t, body, signerSecrets[1])
	a.Signer = b.Signer

	_, err := Combiner{}.Combine([]Partial{a})
	assert.ErrorIs(t, err, ErrMalformedPartial)
}

func TestCombineEnforcesPolicy(t *testing.T) {
	a := partial(t, body, signerSecrets[0])
	b := partial(t, body, signerSecrets[1])
	c := partial(t, body, signerSecrets[2])

	policy := &SignerList{Quorum: 2, Weights: map[string]uint16{a.Signer: 1, b.Signer: 1}}

	_, err := Combiner{Policy: policy}.Combine([]Partial{a, b})
	require.NoError(t, err)

	var qerr *QuorumError
	_, err = Combiner{Policy: policy}.Combine([]Partial{a})
	require.ErrorAs(t, err, &qerr)
	assert.Contains(t, qerr.Reason, "below quorum")

	_, err = Combiner{Policy: policy}.Combine([]Partial{a, c})
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, []string{c.Signer}, qerr.Signers)
}

func TestPolicyFromLedger(t *testing.T) {
	var list client.SignerList
	list.SignerQuorum = 2
	list.SignerEntries = append(list.SignerEntries, client.SignerEntryObject{
		SignerEntry: client.SignerEntry{Account: account, SignerWeight: 2},
	})

	p := PolicyFromLedger(list)
	assert.Equal(t, uint32(2), p.Quorum)
	assert.Equal(t, uint16(2), p.Weights[account])
}

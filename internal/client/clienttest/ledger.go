package clienttest

import (
	"bytes"
	"math/big"
	"sort"
	"strings"

	binarycodec "github.com/Peersyst/xrpl-go/binary-codec"

	"github.com/LeJamon/xrplconform/internal/crypto"
	"github.com/LeJamon/xrplconform/internal/txn"
)

// Genesis account of every standalone network.
const (
	MasterAddress = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	MasterSecret  = "snoPBrXtMeMyMHUVTgbuqAfg1SUTb"
)

const (
	genesisDrops = "100000000000000000"
	baseFee      = 10
)

// Ledger entry flags.
const (
	lsfPassive       uint32 = 0x00010000
	lsfSell          uint32 = 0x00020000
	lsfRequireDest   uint32 = 0x00020000
	lsfRequireAuth   uint32 = 0x00040000
	lsfDisallowXRP   uint32 = 0x00080000
	lsfDefaultRipple uint32 = 0x00800000
)

// Transaction flags the node interprets.
const (
	tfPassive       uint32 = 0x00010000
	tfSell          uint32 = 0x00080000
	tfSetNoRipple   uint32 = 0x00020000
	tfClearNoRipple uint32 = 0x00040000
)

var accountSetFlags = map[uint32]uint32{
	1: lsfRequireDest,
	2: lsfRequireAuth,
	3: lsfDisallowXRP,
	8: lsfDefaultRipple,
}

type engineResult struct {
	Code    int
	Message string
}

var engineResults = map[string]engineResult{
	"tesSUCCESS":           {0, "The transaction was applied. Only final in a validated ledger."},
	"tecUNFUNDED_PAYMENT":  {104, "Insufficient XRP balance to send."},
	"tecNO_DST":            {124, "Destination does not exist."},
	"tecPATH_DRY":          {128, "Path could not send partial amount."},
	"tefALREADY":           {-198, "The exact transaction was already in this ledger."},
	"tefBAD_AUTH":          {-196, "Transaction's public key is not authorized."},
	"tefPAST_SEQ":          {-190, "This sequence number has already passed."},
	"tefBAD_SIGNATURE":     {-189, "A signature is provided for a non-signer."},
	"tefNOT_MULTI_SIGNING": {-187, "Account has no appropriate list of multi-signers."},
	"tefMAX_LEDGER":        {-186, "Ledger sequence too high."},
	"tefBAD_QUORUM":        {-185, "Signatures provided do not meet the quorum."},
	"temMALFORMED":         {-299, "Malformed transaction."},
	"temDST_IS_SRC":        {-279, "Destination may not be source."},
	"temUNKNOWN":           {-264, "The transaction requires logic that is not implemented yet."},
	"terINSUF_FEE_B":       {-97, "Account balance can't pay fee."},
	"terNO_ACCOUNT":        {-96, "The source account does not exist."},
	"terPRE_SEQ":           {-92, "Missing/inapplicable prior transaction."},
	"telINSUF_FEE_P":       {-394, "Fee insufficient."},
}

// proposals are handed out by wallet_propose in order, then reused.
var proposals = []string{
	"sn3nxiW7v8KXzPzAqzyHXbSSKNuN9",
	"snMKnVku798EnBwUfxeSD8953sLYA",
	"sp6JS7f14BuwFY8Mw5p3b8jjQBBTK",
}

type accountRoot struct {
	Balance    *big.Int
	Sequence   uint32
	Flags      uint32
	OwnerCount uint32
	Domain     string
	Signers    *signerList
}

type signerList struct {
	Quorum  uint32
	Entries map[string]uint16
}

type trustLine struct {
	Holder   string
	Issuer   string
	Currency string
	Limit    *big.Rat
	Balance  *big.Rat
	NoRipple bool
}

type offer struct {
	Account   string
	Sequence  uint32
	Flags     uint32
	TakerGets any
	TakerPays any
	Quality   *big.Rat
}

type storedTx struct {
	ID        string
	Tx        map[string]any
	Result    string
	Ledger    uint32
	Index     uint32
	Validated bool
}

type ledger struct {
	current   uint32
	accounts  map[string]*accountRoot
	lines     []*trustLine
	offers    []*offer
	txs       map[string]*storedTx
	open      []*storedTx
	proposals int
}

func newLedger() *ledger {
	balance, _ := new(big.Int).SetString(genesisDrops, 10)
	return &ledger{
		current: 3,
		accounts: map[string]*accountRoot{
			MasterAddress: {Balance: balance, Sequence: 1},
		},
		txs: make(map[string]*storedTx),
	}
}

func (l *ledger) validated() uint32 {
	return l.current - 1
}

// close validates every transaction applied to the open ledger.
func (l *ledger) close() uint32 {
	for i, tx := range l.open {
		tx.Ledger = l.current
		tx.Index = uint32(i)
		tx.Validated = true
	}
	l.open = nil
	l.current++
	return l.current
}

// submit checks and applies a signed blob. Results other than tes and tec
// leave the ledger untouched.
func (l *ledger) submit(blob string) (map[string]any, string, error) {
	tx, err := binarycodec.Decode(blob)
	if err != nil {
		return nil, "", err
	}
	id, err := crypto.TransactionID(blob)
	if err != nil {
		return nil, "", err
	}
	tx["hash"] = id
	if _, seen := l.txs[id]; seen {
		return tx, "tefALREADY", nil
	}

	account, _ := tx["Account"].(string)
	root, ok := l.accounts[account]
	if !ok {
		return tx, "terNO_ACCOUNT", nil
	}
	seq, _ := txn.Uint32(tx["Sequence"])
	switch {
	case seq < root.Sequence:
		return tx, "tefPAST_SEQ", nil
	case seq > root.Sequence:
		return tx, "terPRE_SEQ", nil
	}
	if lls, ok := txn.Uint32(tx["LastLedgerSequence"]); ok && lls != 0 && lls < l.current {
		return tx, "tefMAX_LEDGER", nil
	}

	signers := objects(tx["Signers"], "Signer")
	fee, ok := new(big.Int).SetString(stringField(tx, "Fee"), 10)
	if !ok || fee.Cmp(big.NewInt(int64(baseFee*(1+len(signers))))) < 0 {
		return tx, "telINSUF_FEE_P", nil
	}
	if code := l.checkAuth(account, root, tx, signers); code != "" {
		return tx, code, nil
	}
	if root.Balance.Cmp(fee) < 0 {
		return tx, "terINSUF_FEE_B", nil
	}

	code := l.apply(account, root, tx)
	if !strings.HasPrefix(code, "tes") && !strings.HasPrefix(code, "tec") {
		return tx, code, nil
	}
	root.Balance.Sub(root.Balance, fee)
	root.Sequence++
	stored := &storedTx{ID: id, Tx: tx, Result: code}
	l.txs[id] = stored
	l.open = append(l.open, stored)
	return tx, code, nil
}

// checkAuth verifies that the transaction is authorised by the account's
// master key or by its signer list. Signatures themselves are not checked.
func (l *ledger) checkAuth(account string, root *accountRoot, tx map[string]any, signers []map[string]any) string {
	pub := stringField(tx, "SigningPubKey")
	if pub != "" {
		owner, err := crypto.AddressFromPublicKey(pub)
		if err != nil || owner != account {
			return "tefBAD_AUTH"
		}
		return ""
	}
	if len(signers) == 0 {
		return "temMALFORMED"
	}
	if root.Signers == nil {
		return "tefNOT_MULTI_SIGNING"
	}

	var weight uint32
	var prev []byte
	for _, s := range signers {
		signer := stringField(s, "Account")
		id, err := crypto.AccountIDFromAddress(signer)
		if err != nil {
			return "temMALFORMED"
		}
		if prev != nil && bytes.Compare(prev, id[:]) >= 0 {
			return "temMALFORMED"
		}
		prev = append([]byte(nil), id[:]...)

		w, ok := root.Signers.Entries[signer]
		if !ok {
			return "tefBAD_SIGNATURE"
		}
		owner, err := crypto.AddressFromPublicKey(stringField(s, "SigningPubKey"))
		if err != nil || owner != signer {
			return "tefBAD_SIGNATURE"
		}
		weight += uint32(w)
	}
	if weight < root.Signers.Quorum {
		return "tefBAD_QUORUM"
	}
	return ""
}

func (l *ledger) apply(account string, root *accountRoot, tx map[string]any) string {
	switch stringField(tx, "TransactionType") {
	case "Payment":
		return l.applyPayment(account, root, tx)
	case "TrustSet":
		return l.applyTrustSet(account, root, tx)
	case "OfferCreate":
		return l.applyOfferCreate(account, root, tx)
	case "OfferCancel":
		return l.applyOfferCancel(account, root, tx)
	case "AccountSet":
		return l.applyAccountSet(root, tx)
	case "SignerListSet":
		return l.applySignerListSet(account, root, tx)
	default:
		return "temUNKNOWN"
	}
}

func (l *ledger) applyPayment(account string, root *accountRoot, tx map[string]any) string {
	dest := stringField(tx, "Destination")
	if dest == account {
		return "temDST_IS_SRC"
	}
	amount, err := txn.ParseAmount(tx["Amount"])
	if err != nil {
		return "temMALFORMED"
	}

	if amount.IsNative() {
		drops, err := amount.Drops()
		if err != nil {
			return "temMALFORMED"
		}
		value, _ := new(big.Int).SetString(drops, 10)
		fee, _ := new(big.Int).SetString(stringField(tx, "Fee"), 10)
		if new(big.Int).Add(value, fee).Cmp(root.Balance) > 0 {
			return "tecUNFUNDED_PAYMENT"
		}
		target, ok := l.accounts[dest]
		if !ok {
			target = &accountRoot{Balance: new(big.Int), Sequence: l.current}
			l.accounts[dest] = target
		}
		root.Balance.Sub(root.Balance, value)
		target.Balance.Add(target.Balance, value)
		return "tesSUCCESS"
	}

	if _, ok := l.accounts[dest]; !ok {
		return "tecNO_DST"
	}
	value, err := amount.Rat()
	if err != nil {
		return "temMALFORMED"
	}
	issuer := amount.Issuer

	var from, to *trustLine
	if account != issuer {
		if from = l.line(account, issuer, amount.Currency); from == nil {
			return "tecPATH_DRY"
		}
		if from.Balance.Cmp(value) < 0 {
			return "tecPATH_DRY"
		}
	}
	if dest != issuer {
		if to = l.line(dest, issuer, amount.Currency); to == nil {
			return "tecPATH_DRY"
		}
		if new(big.Rat).Add(to.Balance, value).Cmp(to.Limit) > 0 {
			return "tecPATH_DRY"
		}
	}
	if from != nil {
		from.Balance.Sub(from.Balance, value)
	}
	if to != nil {
		to.Balance.Add(to.Balance, value)
	}
	return "tesSUCCESS"
}

func (l *ledger) applyTrustSet(account string, root *accountRoot, tx map[string]any) string {
	limit, err := txn.ParseAmount(tx["LimitAmount"])
	if err != nil || limit.IsNative() {
		return "temMALFORMED"
	}
	if limit.Issuer == account {
		return "temDST_IS_SRC"
	}
	if _, ok := l.accounts[limit.Issuer]; !ok {
		return "tecNO_DST"
	}
	value, err := limit.Rat()
	if err != nil {
		return "temMALFORMED"
	}

	line := l.line(account, limit.Issuer, limit.Currency)
	if line == nil {
		line = &trustLine{
			Holder:   account,
			Issuer:   limit.Issuer,
			Currency: limit.Currency,
			Balance:  new(big.Rat),
		}
		l.lines = append(l.lines, line)
		root.OwnerCount++
	}
	line.Limit = value

	flags, _ := txn.Uint32(tx["Flags"])
	if flags&tfSetNoRipple != 0 {
		line.NoRipple = true
	}
	if flags&tfClearNoRipple != 0 {
		line.NoRipple = false
	}
	return "tesSUCCESS"
}

func (l *ledger) applyOfferCreate(account string, root *accountRoot, tx map[string]any) string {
	gets, err := txn.ParseAmount(tx["TakerGets"])
	if err != nil {
		return "temMALFORMED"
	}
	pays, err := txn.ParseAmount(tx["TakerPays"])
	if err != nil {
		return "temMALFORMED"
	}
	quality, err := offerQuality(pays, gets)
	if err != nil {
		return "temMALFORMED"
	}

	flags, _ := txn.Uint32(tx["Flags"])
	var ledgerFlags uint32
	if flags&tfPassive != 0 {
		ledgerFlags |= lsfPassive
	}
	if flags&tfSell != 0 {
		ledgerFlags |= lsfSell
	}
	seq, _ := txn.Uint32(tx["Sequence"])
	l.offers = append(l.offers, &offer{
		Account:   account,
		Sequence:  seq,
		Flags:     ledgerFlags,
		TakerGets: tx["TakerGets"],
		TakerPays: tx["TakerPays"],
		Quality:   quality,
	})
	root.OwnerCount++
	return "tesSUCCESS"
}

func (l *ledger) applyOfferCancel(account string, root *accountRoot, tx map[string]any) string {
	seq, _ := txn.Uint32(tx["OfferSequence"])
	for i, o := range l.offers {
		if o.Account == account && o.Sequence == seq {
			l.offers = append(l.offers[:i], l.offers[i+1:]...)
			root.OwnerCount--
			break
		}
	}
	return "tesSUCCESS"
}

func (l *ledger) applyAccountSet(root *accountRoot, tx map[string]any) string {
	if v, ok := txn.Uint32(tx["SetFlag"]); ok {
		root.Flags |= accountSetFlags[v]
	}
	if v, ok := txn.Uint32(tx["ClearFlag"]); ok {
		root.Flags &^= accountSetFlags[v]
	}
	if domain, ok := tx["Domain"].(string); ok {
		root.Domain = strings.ToUpper(domain)
	}
	return "tesSUCCESS"
}

func (l *ledger) applySignerListSet(account string, root *accountRoot, tx map[string]any) string {
	quorum, _ := txn.Uint32(tx["SignerQuorum"])
	if quorum == 0 {
		if root.Signers != nil {
			root.Signers = nil
			root.OwnerCount--
		}
		return "tesSUCCESS"
	}

	entries := make(map[string]uint16)
	var total uint32
	for _, e := range objects(tx["SignerEntries"], "SignerEntry") {
		signer := stringField(e, "Account")
		w, _ := txn.Uint32(e["SignerWeight"])
		if signer == account || w == 0 {
			return "temMALFORMED"
		}
		if _, dup := entries[signer]; dup {
			return "temMALFORMED"
		}
		entries[signer] = uint16(w)
		total += w
	}
	if len(entries) == 0 || total < quorum {
		return "temMALFORMED"
	}
	if root.Signers == nil {
		root.OwnerCount++
	}
	root.Signers = &signerList{Quorum: quorum, Entries: entries}
	return "tesSUCCESS"
}

func (l *ledger) line(holder, issuer, currency string) *trustLine {
	for _, line := range l.lines {
		if line.Holder == holder && line.Issuer == issuer && line.Currency == currency {
			return line
		}
	}
	return nil
}

// book returns the offers that give gets and want pays, best quality first.
func (l *ledger) book(gets, pays map[string]any) []*offer {
	var out []*offer
	for _, o := range l.offers {
		g, err := txn.ParseAmount(o.TakerGets)
		if err != nil {
			continue
		}
		p, err := txn.ParseAmount(o.TakerPays)
		if err != nil {
			continue
		}
		if sameIssue(g, gets) && sameIssue(p, pays) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Quality.Cmp(out[j].Quality) < 0
	})
	return out
}

func sameIssue(a txn.Amount, issue map[string]any) bool {
	currency, _ := issue["currency"].(string)
	issuer, _ := issue["issuer"].(string)
	if currency == txn.NativeCurrency {
		return a.IsNative()
	}
	return a.Currency == currency && a.Issuer == issuer
}

// offerQuality is TakerPays over TakerGets with XRP counted in drops.
func offerQuality(pays, gets txn.Amount) (*big.Rat, error) {
	p, err := ledgerValue(pays)
	if err != nil {
		return nil, err
	}
	g, err := ledgerValue(gets)
	if err != nil {
		return nil, err
	}
	if g.Sign() == 0 {
		return new(big.Rat), nil
	}
	return new(big.Rat).Quo(p, g), nil
}

func ledgerValue(a txn.Amount) (*big.Rat, error) {
	if a.IsNative() {
		drops, err := a.Drops()
		if err != nil {
			return nil, err
		}
		r, _ := new(big.Rat).SetString(drops)
		return r, nil
	}
	return a.Rat()
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// objects unwraps an STArray such as Signers into its inner objects.
func objects(v any, wrapper string) []map[string]any {
	var items []map[string]any
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				items = append(items, m)
			}
		}
	case []map[string]any:
		items = t
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if inner, ok := item[wrapper].(map[string]any); ok {
			out = append(out, inner)
		}
	}
	return out
}

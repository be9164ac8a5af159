package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openledger/ledgercore/common"
	"github.com/openledger/ledgercore/config"
	"github.com/openledger/ledgercore/storage"
	"github.com/openledger/ledgercore/tx"
)

func acctID(b byte) common.AccountID {
	return common.BytesToAccountID([]byte{b})
}

func mustGenesis(t *testing.T, master common.AccountID, amount uint64) *Ledger {
	t.Helper()
	l, err := Genesis(master, amount, nil, config.DefaultConfig())
	assert.NoError(t, err)
	return l
}

func TestGenesis(t *testing.T) {
	m := acctID(0xAA)
	l := mustGenesis(t, m, 100000)

	bal, err := l.GetBalance(m)
	assert.NoError(t, err)
	assert.EqualValues(t, 100000, bal)

	acct, found, err := l.GetAccountState(m)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.EqualValues(t, 0, acct.Sequence)
}

func TestOpenNextAndApply(t *testing.T) {
	m := acctID(0xAA)
	x := acctID(0xBB)
	genesis := mustGenesis(t, m, 100000)

	l1, err := genesis.Close(0, nil, config.DefaultConfig())
	assert.NoError(t, err)
	assert.True(t, l1.IsOpen())
	assert.EqualValues(t, 1, l1.Sequence())

	txn := tx.NewTransaction(m, x, 2500, 0, 1, 0, []byte("signed-1"))
	res, err := l1.ApplyTransaction(txn)
	assert.NoError(t, err)
	assert.Equal(t, SUCCESS, res)

	balM, err := l1.GetBalance(m)
	assert.NoError(t, err)
	assert.EqualValues(t, 97500, balM)

	balX, err := l1.GetBalance(x)
	assert.NoError(t, err)
	assert.EqualValues(t, 2500, balX)

	acctM, _, err := l1.GetAccountState(m)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, acctM.Sequence)

	acctX, _, err := l1.GetAccountState(x)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, acctX.Sequence)

	assert.EqualValues(t, 0, l1.FeeHeld())
}

func TestDuplicateRejection(t *testing.T) {
	m := acctID(0xAA)
	x := acctID(0xBB)
	genesis := mustGenesis(t, m, 100000)
	l1, _ := genesis.Close(0, nil, config.DefaultConfig())

	txn := tx.NewTransaction(m, x, 2500, 0, 1, 0, []byte("signed-1"))
	res, err := l1.ApplyTransaction(txn)
	assert.NoError(t, err)
	assert.Equal(t, SUCCESS, res)

	balBefore, _ := l1.GetBalance(m)

	res, err = l1.ApplyTransaction(txn)
	assert.NoError(t, err)
	assert.Equal(t, ALREADY, res)

	balAfter, _ := l1.GetBalance(m)
	assert.Equal(t, balBefore, balAfter)
}

func TestSequenceMismatch(t *testing.T) {
	m := acctID(0xAA)
	x := acctID(0xBB)
	genesis := mustGenesis(t, m, 100000)
	l1, _ := genesis.Close(0, nil, config.DefaultConfig())

	first := tx.NewTransaction(m, x, 2500, 0, 1, 0, []byte("signed-1"))
	res, err := l1.ApplyTransaction(first)
	assert.NoError(t, err)
	assert.Equal(t, SUCCESS, res)

	stale := tx.NewTransaction(m, x, 100, 0, 1, 0, []byte("signed-stale"))
	res, err = l1.ApplyTransaction(stale)
	assert.NoError(t, err)
	assert.Equal(t, PASTASEQ, res)

	ahead := tx.NewTransaction(m, x, 100, 0, 1, 2, []byte("signed-ahead"))
	res, err = l1.ApplyTransaction(ahead)
	assert.NoError(t, err)
	assert.Equal(t, PREASEQ, res)
}

func TestUnderflow(t *testing.T) {
	m := acctID(0xAA)
	x := acctID(0xBB)
	genesis := mustGenesis(t, m, 100000)
	l1, _ := genesis.Close(0, nil, config.DefaultConfig())

	before, _ := l1.GetBalance(m)

	huge := tx.NewTransaction(m, x, 1000000000, 0, 1, 0, []byte("signed-huge"))
	res, err := l1.ApplyTransaction(huge)
	assert.NoError(t, err)
	assert.Equal(t, INSUFF, res)

	after, _ := l1.GetBalance(m)
	assert.Equal(t, before, after)
}

func TestReverseRestoresState(t *testing.T) {
	m := acctID(0xAA)
	x := acctID(0xBB)
	genesis := mustGenesis(t, m, 100000)
	l1, _ := genesis.Close(0, nil, config.DefaultConfig())

	accountRootBefore := l1.accountTrie.RootHash()
	txRootBefore := l1.txTrie.RootHash()
	feeBefore := l1.FeeHeld()

	txn := tx.NewTransaction(m, x, 2500, 0, 1, 0, []byte("signed-1"))
	res, err := l1.ApplyTransaction(txn)
	assert.NoError(t, err)
	assert.Equal(t, SUCCESS, res)

	res, err = l1.RemoveTransaction(txn)
	assert.NoError(t, err)
	assert.Equal(t, SUCCESS, res)

	assert.Equal(t, accountRootBefore, l1.accountTrie.RootHash())
	assert.Equal(t, txRootBefore, l1.txTrie.RootHash())
	assert.Equal(t, feeBefore, l1.FeeHeld())

	balM, _ := l1.GetBalance(m)
	assert.EqualValues(t, 100000, balM)
}

func TestFeeConservationAcrossApplyAndRemove(t *testing.T) {
	m := acctID(0xAA)
	x := acctID(0xBB)
	genesis := mustGenesis(t, m, 100000)
	l1, _ := genesis.Close(0, nil, config.DefaultConfig())

	txn := tx.NewTransaction(m, x, 2500, 10, 1, 0, []byte("signed-fee"))
	res, err := l1.ApplyTransaction(txn)
	assert.NoError(t, err)
	assert.Equal(t, SUCCESS, res)
	assert.EqualValues(t, 10, l1.FeeHeld())

	balM, _ := l1.GetBalance(m)
	balX, _ := l1.GetBalance(x)
	assert.EqualValues(t, 100000-2500, balM)
	assert.EqualValues(t, 2490, balX)
	assert.EqualValues(t, 100000, balM+balX+l1.FeeHeld())

	res, err = l1.RemoveTransaction(txn)
	assert.NoError(t, err)
	assert.Equal(t, SUCCESS, res)
	assert.EqualValues(t, 0, l1.FeeHeld())

	balM, _ = l1.GetBalance(m)
	assert.EqualValues(t, 100000, balM)
}

func TestHasTransaction(t *testing.T) {
	m := acctID(0xAA)
	x := acctID(0xBB)
	genesis := mustGenesis(t, m, 100000)
	l1, _ := genesis.Close(0, nil, config.DefaultConfig())

	txn := tx.NewTransaction(m, x, 2500, 0, 1, 0, []byte("signed-1"))
	has, err := l1.HasTransaction(txn.ID)
	assert.NoError(t, err)
	assert.False(t, has)

	_, err = l1.ApplyTransaction(txn)
	assert.NoError(t, err)

	has, err = l1.HasTransaction(txn.ID)
	assert.NoError(t, err)
	assert.True(t, has)
}

func TestCloseOnNonOpenLedgerFails(t *testing.T) {
	m := acctID(0xAA)
	genesis := mustGenesis(t, m, 100000)
	l1, err := genesis.Close(0, nil, config.DefaultConfig())
	assert.NoError(t, err)

	_, err = genesis.Close(1, nil, config.DefaultConfig())
	assert.Error(t, err)

	assert.NotNil(t, l1)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.Open(dir, 0, 0)
	assert.NoError(t, err)
	defer store.Close()

	m := acctID(0xAA)
	genesis, err := Genesis(m, 100000, store, config.DefaultConfig())
	assert.NoError(t, err)

	l1, err := genesis.Close(42, store, config.DefaultConfig())
	assert.NoError(t, err)

	_, err = l1.Close(43, store, config.DefaultConfig())
	assert.NoError(t, err)

	err = l1.SaveAcceptedLedger(store, 64)
	assert.NoError(t, err)
	assert.True(t, l1.IsAccepted())

	loaded, err := LoadByHash(store, store, l1.Hash())
	assert.NoError(t, err)
	assert.Equal(t, l1.Hash(), loaded.Hash())
	assert.Equal(t, l1.accountTrie.RootHash(), loaded.accountTrie.RootHash())

	byIndex, err := LoadByIndex(store, store, l1.sequence)
	assert.NoError(t, err)
	assert.Equal(t, l1.Hash(), byIndex.Hash())
}

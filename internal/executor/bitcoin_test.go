package executor

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlement-core/pkg/chain"
)

func newTestBitcoinExecutor(t *testing.T, satPerByte int64) (*BitcoinExecutor, *btcec.PrivateKey, string) {
	t.Helper()
	keyBytes := make([]byte, 32)
	for i := range keyBytes {
		keyBytes[i] = byte(i + 1)
	}
	priv, pub := btcec.PrivKeyFromBytes(keyBytes)
	addr, err := btcutil.NewAddressPubKeyHash(
		btcutil.Hash160(pub.SerializeCompressed()), &chaincfg.MainNetParams)
	require.NoError(t, err)

	pool, err := NewEndpointPool(chain.Bitcoin, []string{"http://127.0.0.1:1"}, 0)
	require.NoError(t, err)
	return NewBitcoinExecutor(pool, chain.Mainnet, satPerByte), priv, addr.EncodeAddress()
}

func confirmedUTXO(txid string, vout uint32, value int64) esploraUTXO {
	u := esploraUTXO{TxID: txid, Vout: vout, Value: value}
	u.Status.Confirmed = true
	return u
}

const (
	txidA = "aa00000000000000000000000000000000000000000000000000000000000001"
	txidB = "aa00000000000000000000000000000000000000000000000000000000000002"
	txidC = "aa00000000000000000000000000000000000000000000000000000000000003"
)

func TestBuildTxFeeEqualsInputMinusOutput(t *testing.T) {
	e, _, fromAddr := newTestBitcoinExecutor(t, 10)
	req := &Request{
		From: fromAddr,
		Outputs: []Output{
			{To: fromAddr, Amount: big.NewInt(50_000), Kind: KindPayout},
			{To: fromAddr, Amount: big.NewInt(20_000), Kind: KindFee},
		},
	}
	utxos := []esploraUTXO{
		confirmedUTXO(txidA, 0, 100_000),
		confirmedUTXO(txidB, 1, 30_000),
	}

	tx, _, prevValues, err := e.buildTx(req, utxos)
	require.NoError(t, err)

	var in, out int64
	for _, v := range prevValues {
		in += v
	}
	for _, o := range tx.TxOut {
		out += o.Value
	}
	// 带找零时手续费严格等于估算值
	assert.Equal(t, e.estimateFee(len(tx.TxIn), len(req.Outputs)+1), in-out)
	assert.Len(t, tx.TxOut, 3) // 两笔出账加一笔找零
}

func TestBuildTxDustChangeAbsorbedIntoFee(t *testing.T) {
	e, _, fromAddr := newTestBitcoinExecutor(t, 10)
	fee := e.estimateFee(1, 2)
	// 刚好剩 100 聪找零, 低于 dust, 应并入手续费
	utxos := []esploraUTXO{confirmedUTXO(txidA, 0, 50_000+fee+100)}
	req := &Request{
		From:    fromAddr,
		Outputs: []Output{{To: fromAddr, Amount: big.NewInt(50_000), Kind: KindPayout}},
	}

	tx, _, prevValues, err := e.buildTx(req, utxos)
	require.NoError(t, err)
	assert.Len(t, tx.TxOut, 1)
	assert.Equal(t, prevValues[0]-tx.TxOut[0].Value, fee+100)
}

func TestBuildTxInsufficientFunds(t *testing.T) {
	e, _, fromAddr := newTestBitcoinExecutor(t, 10)
	req := &Request{
		From:    fromAddr,
		Outputs: []Output{{To: fromAddr, Amount: big.NewInt(1_000_000), Kind: KindPayout}},
	}
	utxos := []esploraUTXO{confirmedUTXO(txidA, 0, 10_000)}

	_, _, _, err := e.buildTx(req, utxos)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestBuildTxLargestFirstAndInputCap(t *testing.T) {
	e, _, fromAddr := newTestBitcoinExecutor(t, 10)

	utxos := make([]esploraUTXO, 0, 16)
	for i := 0; i < 15; i++ {
		utxos = append(utxos, confirmedUTXO(txidB, uint32(i), 10_000))
	}
	utxos = append(utxos, confirmedUTXO(txidA, 0, 500_000))

	req := &Request{
		From:    fromAddr,
		Outputs: []Output{{To: fromAddr, Amount: big.NewInt(100_000), Kind: KindPayout}},
	}
	tx, _, prevValues, err := e.buildTx(req, utxos)
	require.NoError(t, err)

	// 大额优先: 一个 500k 的 UTXO 即可覆盖
	assert.Len(t, tx.TxIn, 1)
	assert.Equal(t, int64(500_000), prevValues[0])
	assert.LessOrEqual(t, len(tx.TxIn), maxInputs)
}

func TestBuildTxSkipsUnconfirmed(t *testing.T) {
	e, _, fromAddr := newTestBitcoinExecutor(t, 10)

	unconfirmed := esploraUTXO{TxID: txidC, Vout: 0, Value: 1_000_000}
	utxos := []esploraUTXO{unconfirmed, confirmedUTXO(txidA, 0, 10_000)}

	req := &Request{
		From:    fromAddr,
		Outputs: []Output{{To: fromAddr, Amount: big.NewInt(500_000), Kind: KindPayout}},
	}
	_, _, _, err := e.buildTx(req, utxos)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSignAndVerifyAllInputs(t *testing.T) {
	e, priv, fromAddr := newTestBitcoinExecutor(t, 10)

	req := &Request{
		From: fromAddr,
		Outputs: []Output{
			{To: fromAddr, Amount: big.NewInt(30_000), Kind: KindPayout},
		},
	}
	utxos := []esploraUTXO{
		confirmedUTXO(txidA, 0, 25_000),
		confirmedUTXO(txidB, 0, 25_000),
	}
	tx, prevScripts, prevValues, err := e.buildTx(req, utxos)
	require.NoError(t, err)
	require.Len(t, tx.TxIn, 2)

	require.NoError(t, signAndVerify(tx, priv, prevScripts, prevValues))
	for _, in := range tx.TxIn {
		assert.NotEmpty(t, in.SignatureScript)
	}
}

func TestSignAndVerifyRejectsWrongKey(t *testing.T) {
	e, _, fromAddr := newTestBitcoinExecutor(t, 10)

	wrongBytes := make([]byte, 32)
	for i := range wrongBytes {
		wrongBytes[i] = byte(200 - i)
	}
	wrongKey, _ := btcec.PrivKeyFromBytes(wrongBytes)

	req := &Request{
		From:    fromAddr,
		Outputs: []Output{{To: fromAddr, Amount: big.NewInt(10_000), Kind: KindPayout}},
	}
	utxos := []esploraUTXO{confirmedUTXO(txidA, 0, 50_000)}
	tx, prevScripts, prevValues, err := e.buildTx(req, utxos)
	require.NoError(t, err)

	assert.Error(t, signAndVerify(tx, wrongKey, prevScripts, prevValues))
}

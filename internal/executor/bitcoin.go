package executor

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"

	"settlement-core/pkg/chain"
	"settlement-core/pkg/logger"
)

const (
	// dustLimit 低于此值的找零直接并入矿工费
	dustLimit = 546
	// maxInputs 单笔交易最多选用的 UTXO 数，控制体积和签名开销
	maxInputs = 10
)

// esploraUTXO Esplora /address/{addr}/utxo 返回项
type esploraUTXO struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  int64  `json:"value"`
	Status struct {
		Confirmed bool `json:"confirmed"`
	} `json:"status"`
}

// BitcoinExecutor 比特币执行器。
// 所有 Output 合并进一笔交易: 手续费腿和出账腿天然原子。
type BitcoinExecutor struct {
	pool       *EndpointPool
	params     *chaincfg.Params
	satPerByte int64
	httpc      *http.Client
}

func NewBitcoinExecutor(pool *EndpointPool, network chain.Network, satPerByte int64) *BitcoinExecutor {
	params := &chaincfg.MainNetParams
	if network == chain.Testnet {
		params = &chaincfg.TestNet3Params
	}
	if satPerByte <= 0 {
		satPerByte = 10
	}
	return &BitcoinExecutor{
		pool:       pool,
		params:     params,
		satPerByte: satPerByte,
		httpc:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (e *BitcoinExecutor) Chain() chain.Tag {
	return chain.Bitcoin
}

func (e *BitcoinExecutor) Transfer(ctx context.Context, req *Request) (*Receipt, error) {
	keyBytes, err := hex.DecodeString(strings.TrimPrefix(string(req.SigningMaterial), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: 解析私钥失败", ErrSubmissionFailed)
	}
	privKey, _ := btcec.PrivKeyFromBytes(keyBytes)

	var txHash string
	err = e.pool.Do(ctx, func(ctx context.Context, endpoint string) error {
		utxos, err := e.fetchUTXOs(ctx, endpoint, req.From)
		if err != nil {
			return err
		}

		tx, prevScripts, prevValues, err := e.buildTx(req, utxos)
		if err != nil {
			return err
		}

		if err := signAndVerify(tx, privKey, prevScripts, prevValues); err != nil {
			return fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
		}

		txHash, err = e.broadcast(ctx, endpoint, tx)
		return err
	})
	if err != nil {
		if errIsTerminal(err) {
			// 资金不足这类错误对所有出账生效
			results := make([]OutputResult, 0, len(req.Outputs))
			for _, out := range req.Outputs {
				results = append(results, failResult(out, err))
			}
			return &Receipt{Outputs: results}, nil
		}
		return nil, err
	}

	results := make([]OutputResult, 0, len(req.Outputs))
	for _, out := range req.Outputs {
		results = append(results, okResult(out, txHash, false))
	}
	return &Receipt{TxHash: txHash, Outputs: results}, nil
}

// buildTx 选币并构造未签名交易。
// 大额优先选币，上限 maxInputs; 找零低于 dust 并入手续费。
func (e *BitcoinExecutor) buildTx(req *Request, utxos []esploraUTXO) (*wire.MsgTx, [][]byte, []int64, error) {
	var totalOut int64
	for _, out := range req.Outputs {
		if !out.Amount.IsInt64() {
			return nil, nil, nil, fmt.Errorf("出账金额超出范围")
		}
		totalOut += out.Amount.Int64()
	}

	confirmed := utxos[:0]
	for _, u := range utxos {
		if u.Status.Confirmed {
			confirmed = append(confirmed, u)
		}
	}
	sort.Slice(confirmed, func(i, j int) bool { return confirmed[i].Value > confirmed[j].Value })

	fromAddr, err := btcutil.DecodeAddress(req.From, e.params)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: 无效的出账地址", ErrSubmissionFailed)
	}
	fromScript, err := txscript.PayToAddrScript(fromAddr)
	if err != nil {
		return nil, nil, nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	var (
		selected    int64
		prevScripts [][]byte
		prevValues  []int64
	)
	for _, u := range confirmed {
		if len(tx.TxIn) >= maxInputs {
			break
		}
		hash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			continue
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, u.Vout), nil, nil))
		prevScripts = append(prevScripts, fromScript)
		prevValues = append(prevValues, u.Value)
		selected += u.Value

		fee := e.estimateFee(len(tx.TxIn), len(req.Outputs)+1)
		if selected >= totalOut+fee {
			break
		}
	}

	fee := e.estimateFee(len(tx.TxIn), len(req.Outputs)+1)
	if selected < totalOut+fee {
		return nil, nil, nil, ErrInsufficientFunds
	}

	for _, out := range req.Outputs {
		addr, err := btcutil.DecodeAddress(out.To, e.params)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: 无效的收款地址 %s", ErrSubmissionFailed, out.To)
		}
		script, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, nil, nil, err
		}
		tx.AddTxOut(wire.NewTxOut(out.Amount.Int64(), script))
	}

	change := selected - totalOut - fee
	if change >= dustLimit {
		tx.AddTxOut(wire.NewTxOut(change, fromScript))
	}
	return tx, prevScripts, prevValues, nil
}

// signAndVerify 对每个输入签名，再用脚本引擎逐一校验。
// 任何一个输入校验不过就整笔放弃，绝不广播半签交易。
func signAndVerify(tx *wire.MsgTx, privKey *btcec.PrivateKey, prevScripts [][]byte, prevValues []int64) error {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i := range tx.TxIn {
		fetcher.AddPrevOut(tx.TxIn[i].PreviousOutPoint, wire.NewTxOut(prevValues[i], prevScripts[i]))
	}
	for i := range tx.TxIn {
		sigScript, err := txscript.SignatureScript(tx, i, prevScripts[i], txscript.SigHashAll, privKey, true)
		if err != nil {
			return fmt.Errorf("输入 %d 签名失败: %v", i, err)
		}
		tx.TxIn[i].SignatureScript = sigScript
	}
	for i := range tx.TxIn {
		vm, err := txscript.NewEngine(prevScripts[i], tx, i, txscript.StandardVerifyFlags, nil,
			txscript.NewTxSigHashes(tx, fetcher), prevValues[i], fetcher)
		if err != nil {
			return err
		}
		if err := vm.Execute(); err != nil {
			return fmt.Errorf("输入 %d 脚本校验失败: %v", i, err)
		}
	}
	return nil
}

// estimateFee 估算 P2PKH 交易手续费: 148*in + 34*out + 10
func (e *BitcoinExecutor) estimateFee(numIn, numOut int) int64 {
	size := int64(numIn)*148 + int64(numOut)*34 + 10
	return size * e.satPerByte
}

func (e *BitcoinExecutor) fetchUTXOs(ctx context.Context, endpoint, address string) ([]esploraUTXO, error) {
	url := fmt.Sprintf("%s/address/%s/utxo", strings.TrimRight(endpoint, "/"), address)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.httpc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("utxo 查询返回 %d", resp.StatusCode)
	}
	var utxos []esploraUTXO
	if err := json.NewDecoder(resp.Body).Decode(&utxos); err != nil {
		return nil, err
	}
	return utxos, nil
}

func (e *BitcoinExecutor) broadcast(ctx context.Context, endpoint string, tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", err
	}
	raw := hex.EncodeToString(buf.Bytes())

	url := strings.TrimRight(endpoint, "/") + "/tx"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(raw))
	if err != nil {
		return "", err
	}
	resp, err := e.httpc.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: 广播返回 %d: %s", ErrSubmissionFailed, resp.StatusCode, string(body))
	}
	txid := strings.TrimSpace(string(body))
	logger.Info("比特币交易已广播",
		zap.String("tx_hash", txid),
		zap.Int("inputs", len(tx.TxIn)),
		zap.Int("outputs", len(tx.TxOut)))
	return txid, nil
}

// errIsTerminal 区分 "换节点也没用" 的错误
func errIsTerminal(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrSubmissionFailed)
}

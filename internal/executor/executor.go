package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"settlement-core/pkg/chain"
)

// OutputKind 区分收款方出账和国库手续费出账
type OutputKind string

const (
	KindPayout OutputKind = "payout"
	KindFee    OutputKind = "fee"
)

// Output 一笔出账: 目标地址 + 最小单位金额
type Output struct {
	To     string
	Amount *big.Int // base units (wei / satoshi / lamport / stroop / planck)
	Kind   OutputKind
}

// OutputResult 单笔出账的结果
// Deferred 表示该笔出账被有意跳过 (例如国库账户在该网络上尚不存在)，
// 应保持 pending 等待后台补扫，而不是记为失败。
type OutputResult struct {
	Output
	Success   bool
	Deferred  bool
	TxHash    string
	Confirmed bool
	Err       string
}

// Receipt 一次 Transfer 调用的结果。
// TxHash 是主哈希 (单交易链上全部 Output 共享)；
// 多交易链 (EVM 逐笔出账) 以 Outputs[i].TxHash 为准。
type Receipt struct {
	TxHash  string
	Outputs []OutputResult
}

// Request 统一的转账请求
type Request struct {
	From            string
	SigningMaterial []byte // KeyVault 解密后的签名材料，严禁记录或落盘
	Outputs         []Output
	Token           string // 代币符号，空串表示原生币
}

// Executor 是每个链家族的转账策略。
// 实现负责 构造 -> 签名 -> 广播 -> 确认 全流程，
// 以及节点故障转移和确认超时的降级语义:
// 一旦拿到 txHash，确认等待失败只能上报 "已发送未确认"，绝不能当作失败。
type Executor interface {
	Chain() chain.Tag
	Transfer(ctx context.Context, req *Request) (*Receipt, error)
}

// 错误分类
// 签名前的失败可以安全重试; 广播后的失败只能跟踪，不能回滚。
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrProviderUnavailable = errors.New("all providers unavailable")
	ErrSubmissionFailed   = errors.New("transaction rejected by network")
	ErrConfirmationTimeout = errors.New("confirmation wait timed out") // 非致命，receipt 仍然返回
)

// Registry 链标识 -> 执行器 的分发表。
// 注册缺失是启动期配置错误，不在调用点做 nil 判断。
type Registry struct {
	executors map[chain.Tag]Executor
}

func NewRegistry(execs ...Executor) (*Registry, error) {
	r := &Registry{executors: make(map[chain.Tag]Executor, len(execs))}
	for _, e := range execs {
		if e == nil {
			return nil, fmt.Errorf("nil executor 不允许注册")
		}
		if _, dup := r.executors[e.Chain()]; dup {
			return nil, fmt.Errorf("链 %s 重复注册", e.Chain())
		}
		r.executors[e.Chain()] = e
	}
	return r, nil
}

// Get 返回链对应的执行器
func (r *Registry) Get(tag chain.Tag) (Executor, error) {
	e, ok := r.executors[tag]
	if !ok {
		return nil, fmt.Errorf("链 %s 未配置执行器", tag)
	}
	return e, nil
}

// Chains 返回已注册的链集合
func (r *Registry) Chains() []chain.Tag {
	tags := make([]chain.Tag, 0, len(r.executors))
	for t := range r.executors {
		tags = append(tags, t)
	}
	return tags
}

// okResult / failResult 构造器，减少各执行器的样板代码
func okResult(out Output, txHash string, confirmed bool) OutputResult {
	return OutputResult{Output: out, Success: true, TxHash: txHash, Confirmed: confirmed}
}

func failResult(out Output, err error) OutputResult {
	return OutputResult{Output: out, Err: err.Error()}
}

func deferredResult(out Output, reason string) OutputResult {
	return OutputResult{Output: out, Deferred: true, Err: reason}
}

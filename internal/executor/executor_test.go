package executor

import (
	"context"
	"errors"
	"math/big"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlement-core/pkg/chain"
)

type stubExecutor struct {
	tag chain.Tag
}

func (s *stubExecutor) Chain() chain.Tag { return s.tag }
func (s *stubExecutor) Transfer(ctx context.Context, req *Request) (*Receipt, error) {
	return &Receipt{}, nil
}

func TestRegistryLookup(t *testing.T) {
	reg, err := NewRegistry(
		&stubExecutor{tag: chain.Ethereum},
		&stubExecutor{tag: chain.Bitcoin},
	)
	require.NoError(t, err)

	exec, err := reg.Get(chain.Ethereum)
	require.NoError(t, err)
	assert.Equal(t, chain.Ethereum, exec.Chain())

	_, err = reg.Get(chain.Solana)
	assert.Error(t, err)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(
		&stubExecutor{tag: chain.Ethereum},
		&stubExecutor{tag: chain.Ethereum},
	)
	assert.Error(t, err)
}

func TestRegistryRejectsNil(t *testing.T) {
	_, err := NewRegistry(&stubExecutor{tag: chain.Ethereum}, nil)
	assert.Error(t, err)
}

func TestResultHelpers(t *testing.T) {
	out := Output{To: "addr", Amount: big.NewInt(100), Kind: KindPayout}

	ok := okResult(out, "0xabc", true)
	assert.True(t, ok.Success)
	assert.True(t, ok.Confirmed)
	assert.Equal(t, "0xabc", ok.TxHash)
	assert.Empty(t, ok.Err)

	fail := failResult(out, ErrInsufficientFunds)
	assert.False(t, fail.Success)
	assert.False(t, fail.Deferred)
	assert.NotEmpty(t, fail.Err)

	def := deferredResult(out, "treasury account not funded")
	assert.False(t, def.Success)
	assert.True(t, def.Deferred)
	assert.Equal(t, "treasury account not funded", def.Err)
}

func TestEndpointPoolRequiresEndpoints(t *testing.T) {
	_, err := NewEndpointPool(chain.Ethereum, nil, 0)
	assert.Error(t, err)
}

func TestEndpointPoolSkipsDeadNodes(t *testing.T) {
	pool, err := NewEndpointPool(chain.Ethereum, []string{
		"http://127.0.0.1:1", // 无人监听
		"http://127.0.0.1:2",
	}, 0)
	require.NoError(t, err)

	called := 0
	err = pool.Do(context.Background(), func(ctx context.Context, endpoint string) error {
		called++
		return nil
	})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Zero(t, called)
}

func TestEndpointPoolStopsOnTerminalError(t *testing.T) {
	ln1, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln1.Close()
	ln2, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln2.Close()

	pool, err := NewEndpointPool(chain.Bitcoin, []string{
		"http://" + ln1.Addr().String(),
		"http://" + ln2.Addr().String(),
	}, 0)
	require.NoError(t, err)

	// 余额不足换节点也没用，第二个节点不应被尝试
	called := 0
	err = pool.Do(context.Background(), func(ctx context.Context, endpoint string) error {
		called++
		return ErrInsufficientFunds
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 1, called)
}

func TestEndpointPoolFailsOver(t *testing.T) {
	ln1, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln1.Close()
	ln2, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln2.Close()

	pool, err := NewEndpointPool(chain.Ethereum, []string{
		"http://" + ln1.Addr().String(),
		"http://" + ln2.Addr().String(),
	}, 0)
	require.NoError(t, err)

	var tried []string
	err = pool.Do(context.Background(), func(ctx context.Context, endpoint string) error {
		tried = append(tried, endpoint)
		if len(tried) == 1 {
			return errors.New("rpc timeout")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, tried, 2)
}

package executor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"go.uber.org/zap"

	"settlement-core/pkg/chain"
	"settlement-core/pkg/logger"
	"settlement-core/pkg/monitor"
)

// EndpointPool 维护某条链的节点列表 (主节点 + 公共备用节点)。
// 所有节点都视为不可信且不可靠: 调用失败时按顺序转移到下一个节点，
// 全部耗尽才把错误抛给调用方。
type EndpointPool struct {
	tag           chain.Tag
	endpoints     []string
	healthTimeout time.Duration
}

func NewEndpointPool(tag chain.Tag, endpoints []string, healthTimeout time.Duration) (*EndpointPool, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("链 %s 未配置节点", tag)
	}
	if healthTimeout <= 0 {
		healthTimeout = 3 * time.Second
	}
	return &EndpointPool{tag: tag, endpoints: endpoints, healthTimeout: healthTimeout}, nil
}

// Primary 返回主节点 (给只需要一个 URL 的 SDK 客户端用)
func (p *EndpointPool) Primary() string {
	return p.endpoints[0]
}

// Do 依次在各节点上执行 fn，首个成功即返回。
// 跳过探活失败的节点，避免死节点的慢超时拖住整条故障转移链。
func (p *EndpointPool) Do(ctx context.Context, fn func(ctx context.Context, endpoint string) error) error {
	var lastErr error
	for i, ep := range p.endpoints {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i > 0 {
			monitor.Business.ProviderFailovers.WithLabelValues(string(p.tag)).Inc()
			logger.Warn("节点故障转移",
				zap.String("chain", string(p.tag)),
				zap.String("endpoint", ep),
				zap.NamedError("prev_error", lastErr))
		}
		if !p.reachable(ep) {
			lastErr = fmt.Errorf("节点 %s 探活失败", ep)
			continue
		}
		if err := fn(ctx, ep); err != nil {
			// 余额不足、签名失败这类错误换节点也没用，直接上抛
			if errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrSubmissionFailed) {
				return err
			}
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
}

// reachable 用短超时 TCP 拨号探活，不发起真实业务请求
func (p *EndpointPool) reachable(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https", "wss":
			host = net.JoinHostPort(u.Hostname(), "443")
		default:
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}
	conn, err := net.DialTimeout("tcp", host, p.healthTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

package worker

import (
	"context"

	"github.com/hibiken/asynq"

	"settlement-core/internal/worker/tasks"
)

// Client 封装 Asynq Client, 实现 service.FeeCollector
type Client struct {
	client *asynq.Client
}

func NewClient(addr string, password string, db int) *Client {
	c := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{client: c}
}

// EnqueueFeeTransfer 把一笔 pending 手续费推进归集队列
func (c *Client) EnqueueFeeTransfer(ctx context.Context, feeTxID uint64) error {
	task, err := tasks.NewFeeTransferTask(feeTxID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task)
	return err
}

func (c *Client) Close() error {
	return c.client.Close()
}

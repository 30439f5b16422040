package request

// CreateAddressRequest 生成出账地址请求
type CreateAddressRequest struct {
	UserID  uint64 `json:"user_id" binding:"required"`
	Chain   string `json:"chain" binding:"required,oneof=ethereum bitcoin solana starknet stellar polkadot"`
	Network string `json:"network"`
}

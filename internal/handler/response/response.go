package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"settlement-core/pkg/errno"
)

// Response 统一的 JSON 信封。HTTP 状态码恒为 200,
// 客户端只看 body 里的业务码。
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

// Success 带数据返回成功
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{} // 空对象, 不给前端 null
	}
	c.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Error 把错误解码成业务码返回。
// 未注册的错误由 errno.Decode 收敛成内部错误, 不把原始细节透给外部。
func Error(c *gin.Context, err error) {
	code, msg := errno.Decode(err)
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: msg,
		Data:    gin.H{},
	})
}

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"settlement-core/pkg/errno"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", HealthCheck)
	r.GET("/fees/quote", Fee.Quote)
	return r
}

func doGet(t *testing.T, r *gin.Engine, path string) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter()
	status, body := doGet(t, r, "/health")

	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, errno.OK.Code, body["code"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "UP", data["status"])
}

func TestFeeQuote(t *testing.T) {
	r := newTestRouter()
	status, body := doGet(t, r, "/fees/quote?amount_usd=75")

	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, errno.OK.Code, body["code"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "0.25", data["fee"])
	assert.Equal(t, "$51-$100", data["tier"])
	assert.Equal(t, "75", data["recipient_receives"])
}

func TestFeeQuoteRejectsGarbage(t *testing.T) {
	r := newTestRouter()

	status, body := doGet(t, r, "/fees/quote?amount_usd=abc")
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, errno.ErrInvalidAmount.Code, body["code"])

	status, body = doGet(t, r, "/fees/quote?amount_usd=-5")
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, errno.ErrInvalidAmount.Code, body["code"])
}

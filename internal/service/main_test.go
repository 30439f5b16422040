package service

import (
	"os"
	"testing"

	"settlement-core/pkg/monitor"
)

func TestMain(m *testing.M) {
	monitor.InitBusinessMetrics()
	os.Exit(m.Run())
}

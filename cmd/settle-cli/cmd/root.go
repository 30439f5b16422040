package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "settle-cli",
	Short: "结算系统运维工具",
	Long:  `离线运维工具: 手续费试算、国库地址检查、地址格式校验。不触碰链上资产。`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

package cmd

import (
	"fmt"
	"os"

	"settlement-core/internal/service"
	"settlement-core/pkg/chain"

	"github.com/spf13/cobra"
)

// validateCmd 校验地址格式
var validateCmd = &cobra.Command{
	Use:   "validate <chain> <address>",
	Short: "校验地址格式",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		tag, err := chain.FromString(args[0])
		if err != nil {
			fmt.Printf("不支持的链: %s\n", args[0])
			os.Exit(1)
		}
		if service.Treasury.ValidateAddress(tag, args[1]) {
			fmt.Println("✅ 地址格式正确")
			return
		}
		fmt.Println("❌ 地址格式不符合该链的形状")
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

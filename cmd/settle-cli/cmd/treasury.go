package cmd

import (
	"fmt"
	"os"

	"settlement-core/internal/service"
	"settlement-core/pkg/chain"
	"settlement-core/pkg/config"
	"settlement-core/pkg/logger"

	"github.com/spf13/cobra"
)

// treasuryCmd 检查各链国库地址的配置情况
var treasuryCmd = &cobra.Command{
	Use:   "treasury",
	Short: "检查国库地址配置",
	Long:  `逐链解析国库收款地址并做格式校验。上线前跑一遍，缺配置的链手续费会积压在补扫队列。`,
	Run: func(cmd *cobra.Command, args []string) {
		config.Init()
		logger.Init(config.Global.App.Env)
		defer logger.Sync()

		networkFlag, _ := cmd.Flags().GetString("network")
		network, err := chain.ParseNetwork(networkFlag)
		if err != nil {
			fmt.Printf("无效网络: %s\n", networkFlag)
			os.Exit(1)
		}

		missing := 0
		fmt.Printf("%-10s %-10s %s\n", "链", "网络", "国库地址")
		for _, tag := range chain.All() {
			addr, err := service.Treasury.Resolve(tag, network)
			if err != nil {
				fmt.Printf("%-10s %-10s (未配置)\n", tag, network)
				missing++
				continue
			}
			mark := ""
			if !service.Treasury.ValidateAddress(tag, addr) {
				mark = "  ⚠️ 格式可疑"
			}
			fmt.Printf("%-10s %-10s %s%s\n", tag, network, addr, mark)
		}

		if missing > 0 {
			fmt.Printf("\n%d 条链缺少国库地址, 这些链的手续费会延期归集。\n", missing)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(treasuryCmd)
	treasuryCmd.Flags().StringP("network", "n", "mainnet", "网络 (mainnet/testnet)")
}

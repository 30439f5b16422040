package cmd

import (
	"fmt"
	"os"

	"settlement-core/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// quoteCmd 手续费试算, 不依赖任何外部服务
var quoteCmd = &cobra.Command{
	Use:   "quote [amount_usd...]",
	Short: "按金额试算手续费",
	Long:  `对一个或多个 USD 金额计算手续费档位。收款方拿全额，手续费是平台加收的。`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		amounts := make([]decimal.Decimal, 0, len(args))
		for _, arg := range args {
			amount, err := decimal.NewFromString(arg)
			if err != nil {
				fmt.Printf("无效金额: %s\n", arg)
				os.Exit(1)
			}
			amounts = append(amounts, amount)
		}

		quotes, total, err := service.Fee.CalculateBatch(amounts)
		if err != nil {
			fmt.Printf("计算失败: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%-12s %-10s %-12s %s\n", "金额(USD)", "手续费", "档位", "收款方到账")
		for _, q := range quotes {
			fmt.Printf("%-12s %-10s %-12s %s\n",
				q.Amount.StringFixed(2), q.Fee.StringFixed(2), q.Tier, q.RecipientReceives.StringFixed(2))
		}
		fmt.Printf("\n合计手续费: $%s\n", total.StringFixed(2))
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulatePortalA float64
	simulatePortalB float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次价格比较并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePortalA <= 0 && simulatePortalB <= 0 {
			return errors.New("--portal-a 与 --portal-b 至少一个必须大于 0")
		}

		priceA := decimal.NewFromFloat(simulatePortalA)
		priceB := decimal.NewFromFloat(simulatePortalB)
		return getApp().SimulateAlert(cmd.Context(), priceA, priceB)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulatePortalA, "portal-a", 0, "门户 A 模拟价格 (EUR), 0 表示无票")
	simulateCmd.Flags().Float64Var(&simulatePortalB, "portal-b", 0, "门户 B 模拟价格 (EUR), 0 表示无票")
}

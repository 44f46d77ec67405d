// Package main provides ticketctl, a command line tool for pricing wagers offline.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/yourusername/trackside/internal/wager"
)

var (
	planFile   string
	jsonOutput bool
	boxType    string
	boxHorses  int
	boxAmount  string
)

func init() {
	priceCmd.Flags().StringVarP(&planFile, "file", "f", "", "Ticket plan JSON file (- for stdin)")
	priceCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the ticket summary as JSON")
	_ = priceCmd.MarkFlagRequired("file")

	boxCmd.Flags().StringVarP(&boxType, "bet-type", "t", "exacta", "Bet type to box")
	boxCmd.Flags().IntVarP(&boxHorses, "horses", "n", 3, "Number of horses in the box")
	boxCmd.Flags().StringVarP(&boxAmount, "amount", "a", "2", "Stake per combination")
}

var rootCmd = &cobra.Command{
	Use:          "ticketctl",
	Short:        "Price wager tickets offline",
	Long:         `Price box bets and whole tickets with the same rules the dashboard uses.`,
	SilenceUsage: true,
}

var boxCmd = &cobra.Command{
	Use:   "box",
	Short: "Price a box bet",
	RunE: func(cmd *cobra.Command, args []string) error {
		betType, err := wager.ParseBetType(boxType)
		if err != nil {
			return err
		}
		if err := wager.ValidateBoxSize(boxHorses); err != nil {
			return err
		}
		amount, err := decimal.NewFromString(boxAmount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", boxAmount, err)
		}

		cost := wager.BoxCost(boxHorses, betType, amount)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s box of %d at $%s: $%s\n", betType, boxHorses, amount.StringFixed(2), cost.StringFixed(2))
		fmt.Fprintf(out, "Each ticket line carries $%s\n", wager.BoxLineAmount(cost, boxHorses).StringFixed(2))
		return nil
	},
}

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Build and price a ticket from a plan file",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if planFile != "-" {
			f, err := os.Open(planFile)
			if err != nil {
				return fmt.Errorf("failed to open plan: %w", err)
			}
			defer f.Close()
			in = f
		}

		plan, err := readPlan(in)
		if err != nil {
			return err
		}
		summary, skipped, err := plan.Build()
		if err != nil {
			return err
		}
		for _, msg := range skipped {
			fmt.Fprintln(cmd.ErrOrStderr(), "skipped:", msg)
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}
		return printSummary(cmd, summary)
	},
}

var betTypesCmd = &cobra.Command{
	Use:   "bet-types",
	Short: "List the supported bet types",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tARITY\tBOX/KEY\tMULTI-RACE")
		for _, bt := range wager.AllBetTypes() {
			fmt.Fprintf(w, "%s\t%d\t%t\t%t\n", bt, bt.Arity(), bt.IsCombinatorial(), bt.IsMultiRace())
		}
		return w.Flush()
	},
}

func printSummary(cmd *cobra.Command, summary wager.Summary) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tRACE\tTYPE\tPP\tHORSE\tAMOUNT\t")
	for i, sel := range summary.Selections {
		flag := ""
		switch {
		case sel.IsBoxBet:
			flag = "box"
		case sel.IsKeyHorse:
			flag = "key"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\t$%s\t%s\n",
			i+1, sel.RaceNumber, sel.BetType, sel.PP, sel.HorseName, sel.Amount.StringFixed(2), flag)
	}
	fmt.Fprintf(w, "\t\t\t\tTotal\t$%s\t\n", summary.TotalCost.StringFixed(2))
	fmt.Fprintf(w, "\t\t\t\tEst. payout\t$%s - $%s\t\n",
		summary.Payout.Low.StringFixed(2), summary.Payout.High.StringFixed(2))
	return w.Flush()
}

func main() {
	rootCmd.AddCommand(boxCmd, priceCmd, betTypesCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mladen1312/nyx-light-racunovodja/internal/engines"
)

// engineCmd groups the deterministic accounting engines for direct
// scripting access (spec.md §4.3): every subcommand reads a JSON input
// file shaped like the engine's Input struct and prints the computed
// Result as JSON. These engines never call the LLM or the pipeline.
var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Run a deterministic accounting engine directly from a JSON input file",
}

func runEngine(inputPath string, input interface{}, compute func() interface{}) error {
	body, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}
	if err := json.Unmarshal(body, input); err != nil {
		return fmt.Errorf("parse input file: %w", err)
	}
	out, err := json.MarshalIndent(compute(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

var enginePayrollCmd = &cobra.Command{
	Use:   "payroll <input.json>",
	Short: "Compute gross-to-net payroll for one employee",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in engines.PayrollInput
		return runEngine(args[0], &in, func() interface{} { return engines.Payroll(in) })
	},
}

var engineVATCmd = &cobra.Command{
	Use:   "vat <input.json>",
	Short: "Compute a VAT return from a list of line items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in []engines.VATLineItem
		return runEngine(args[0], &in, func() interface{} { return engines.VATReturn(in) })
	},
}

var engineDepreciationCmd = &cobra.Command{
	Use:   "depreciation <input.json>",
	Short: "Classify and compute depreciation for one fixed asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in engines.DepreciationInput
		return runEngine(args[0], &in, func() interface{} { return engines.Depreciation(in) })
	},
}

var engineCorptaxCmd = &cobra.Command{
	Use:   "corptax <input.json>",
	Short: "Compute annual corporate tax liability",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in engines.CorporateTaxInput
		return runEngine(args[0], &in, func() interface{} { return engines.CorporateTax(in) })
	},
}

var enginePerdiemCmd = &cobra.Command{
	Use:   "perdiem <input.json>",
	Short: "Compute a travel order's per-diem, mileage and representation costs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in engines.TravelInput
		return runEngine(args[0], &in, func() interface{} { return engines.Travel(in) })
	},
}

var engineTillCmd = &cobra.Command{
	Use:   "till <input.json>",
	Short: "Validate a cash-register (blagajna) balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in engines.TillInput
		return runEngine(args[0], &in, func() interface{} { return engines.TillValidate(in) })
	},
}

func init() {
	engineCmd.AddCommand(
		enginePayrollCmd,
		engineVATCmd,
		engineDepreciationCmd,
		engineCorptaxCmd,
		enginePerdiemCmd,
		engineTillCmd,
	)
}

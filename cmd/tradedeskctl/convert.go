package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/tradedesk-backend/pkg/calculator"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
)

type convertOptions struct {
	category string
	field    string
	value    string
	ceiling  string
	mode     string
}

type convertOutput struct {
	Line        calculator.LineState `json:"line"`
	AltQuantity string               `json:"altQuantity"`
	BagCount    int                  `json:"bagCount"`
}

func newConvertCmd() *cobra.Command {
	opts := convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Apply one edit to an empty line and print the result",
		Example: `  # 2.5 mon of a KG product
  tradedeskctl convert --category KG --field displayQuantity --value 2.5

  # 3 bags keyed as a sum, capped by an 80 unit lot
  tradedeskctl convert --category BAG --field quantity --value 1+2 --ceiling 80`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := runConvert(opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&opts.category, "category", "", "unit category: KG, BAG or TRAY")
	cmd.Flags().StringVar(&opts.field, "field", "", "line field to edit, e.g. quantity or unitPriceMon")
	cmd.Flags().StringVar(&opts.value, "value", "", "value as typed by the operator")
	cmd.Flags().StringVar(&opts.ceiling, "ceiling", "", "pending lot quantity in base units")
	cmd.Flags().StringVar(&opts.mode, "mode", string(calculator.SplitPayment), "payment mode: split or single")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}

// runConvert fails on malformed input instead of printing an unchanged line.
func runConvert(opts convertOptions) (convertOutput, error) {
	category, err := enums.ParseUnitCategory(opts.category)
	if err != nil {
		return convertOutput{}, err
	}
	field, err := calculator.ParseField(opts.field)
	if err != nil {
		return convertOutput{}, err
	}
	mode := calculator.PaymentMode(strings.ToLower(strings.TrimSpace(opts.mode)))
	if mode != calculator.SplitPayment && mode != calculator.SinglePayment {
		return convertOutput{}, fmt.Errorf("invalid payment mode %q", opts.mode)
	}
	if !calculator.ValidEntry(opts.value, true) {
		return convertOutput{}, fmt.Errorf("value %q is not a number or sum", opts.value)
	}

	events := []calculator.Event{
		calculator.SelectProduct{Product: calculator.ProductRef{ID: "cli", Name: "cli", Category: category}},
	}
	if opts.ceiling != "" {
		pending, err := decimal.NewFromString(opts.ceiling)
		if err != nil || pending.IsNegative() {
			return convertOutput{}, fmt.Errorf("invalid ceiling %q", opts.ceiling)
		}
		events = append(events, calculator.SelectLot{Lot: calculator.LotRef{ID: "cli", Number: "cli", Pending: pending}})
	}
	events = append(events, calculator.Edit{Field: field, Value: opts.value})

	line := calculator.ReduceAll(calculator.NewLine(nil, mode), events...)
	return convertOutput{
		Line:        calculator.ToState(line),
		AltQuantity: line.AltQuantity(),
		BagCount:    line.BagCount(),
	}, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/axoncore/axoncore/internal/pricing"
	"github.com/axoncore/axoncore/internal/usage"
)

func newEstimateCmd(opts *options) *cobra.Command {
	var model, input, output string

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate tokens and cost of a chat turn locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := pricing.ModelID(model)
			_, fallback := pricing.RateFor(id)
			est := usage.EstimateUsage(input, output, id)

			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(usage.EstimateResponse{Estimate: est, DefaultRate: fallback})
			}

			if fallback {
				fmt.Fprintf(cmd.ErrOrStderr(), "unknown model %q, priced at %s rates\n", model, pricing.DefaultModel)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Input tokens\t%d\n", est.InputTokens)
			fmt.Fprintf(tw, "Output tokens\t%d\n", est.OutputTokens)
			fmt.Fprintf(tw, "Total tokens\t%d\n", est.TotalTokens)
			fmt.Fprintf(tw, "Estimated cost\t$%s\n", est.EstimatedCost.StringFixed(6))
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&model, "model", string(pricing.DefaultModel), "model id")
	cmd.Flags().StringVar(&input, "input", "", "prompt text")
	cmd.Flags().StringVar(&output, "output", "", "completion text")
	return cmd
}

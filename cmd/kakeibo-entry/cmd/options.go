package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"kakeibo/internal/core"
	"kakeibo/internal/form"
)

func OptionsCmd(s *Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Print the store and payment method suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := form.FetchOptions(cmd.Context(), s.httpClient(), s.ServerURL)
			if err != nil {
				return err
			}
			PrintOptions(cmd.OutOrStdout(), opts)
			return nil
		},
	}
}

func PrintOptions(w io.Writer, opts core.Options) {
	fmt.Fprintln(w, "store:")
	for _, o := range opts.StoreOptions {
		fmt.Fprintln(w, "  "+o)
	}
	fmt.Fprintln(w, "paymentMethod:")
	for _, o := range opts.PaymentMethodOptions {
		fmt.Fprintln(w, "  "+o)
	}
}

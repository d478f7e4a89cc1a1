package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doozitravel/gateway/pkg/normalize"
)

func newNormalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Run a single input through the normalizer",
	}

	var platform string
	link := &cobra.Command{
		Use:   "link <raw>",
		Short: "Turn a handle, @handle or partial URL into a profile URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := normalize.ParsePlatform(platform)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), normalize.SocialLink(p, args[0]))
			return nil
		},
	}
	link.Flags().StringVar(&platform, "platform", "tiktok", "tiktok or instagram")

	cmd.AddCommand(link,
		simple("followers <raw>", "Parse a follower count such as 10K or 1.5M", func(s string) string {
			return fmt.Sprint(normalize.ParseFollowerCount(s))
		}),
		simple("phone <raw>", "Strip characters a phone number cannot contain", normalize.SanitizePhone),
		simple("currency <raw>", "Strip characters a currency amount cannot contain", normalize.SanitizeCurrency),
		simple("text <raw>", "Strip markup from free text", normalize.Text),
	)
	return cmd
}

func simple(use, short string, fn func(string) string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), fn(args[0]))
		},
	}
}

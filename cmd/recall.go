package cmd

import (
	"fmt"

	"github.com/patrikhermansson/annprep/recall"
	"github.com/spf13/cobra"
)

func newRecallCommand(a *app) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "recall groundtruth-file result-file",
		Short: "Compute recall@k of search results against ground truth",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, used, err := recall.Files(args[0], args[1], k)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recall@%d: %.2f%%\n", used, r)
			return nil
		},
	}
	cmd.Flags().IntVar(&k, "k", 0, "neighbors compared per query (default all result columns)")
	return cmd
}

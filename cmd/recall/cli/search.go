package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/recall/internal/store"
)

var (
	searchLimit int
	searchType  string
	searchRegex bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the active session's messages",
	Long: `Search messages by meaning using the configured embedding provider, or by
regular expression with --regex. Semantic search requires an embedding
provider in the config; without one it reports no results.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		obs := newObserver()
		defer obs.Close()

		f := newFactory(obs)
		defer f.Close()

		ctx := context.Background()

		if searchRegex {
			result, err := f.Messages().SearchRegex(ctx, args[0], searchLimit, store.MessageType(searchType))
			if err != nil {
				obs.Log().Fatal().Err(err).Msg("Search failed")
			}
			printMessages(result)
			return
		}

		semantic, err := f.Semantic()
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to initialize repositories")
		}
		if !semantic.VectorSearchAvailable() {
			fmt.Fprintln(os.Stderr, "No embedding provider configured; use --regex or set embedding.provider in the config.")
			os.Exit(1)
		}

		result, err := semantic.SearchSimilar(ctx, args[0], searchLimit, store.MessageType(searchType))
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Search failed")
		}
		printMessages(result)
	},
}

func init() {
	RootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum results")
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "Only return messages of this type")
	searchCmd.Flags().BoolVarP(&searchRegex, "regex", "r", false, "Treat the query as a regular expression")
}

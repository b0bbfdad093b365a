package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/recall/internal/store"
)

var (
	historyLimit int
	historyType  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the active session's transcript",
	Run: func(cmd *cobra.Command, args []string) {
		obs := newObserver()
		defer obs.Close()

		f := newFactory(obs)
		defer f.Close()

		ctx := context.Background()
		messages := f.Messages()

		var (
			result []store.Message
			err    error
		)
		if historyType != "" {
			result, err = messages.ByType(ctx, store.MessageType(historyType), historyLimit)
		} else {
			result, err = messages.History(ctx, historyLimit)
		}
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to read history")
		}

		printMessages(result)
	},
}

func init() {
	RootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	historyCmd.Flags().StringVarP(&historyType, "type", "t", "", "Only show messages of this type")
}

func printMessages(msgs []store.Message) {
	if len(msgs) == 0 {
		fmt.Println("(no messages)")
		return
	}
	for _, m := range msgs {
		sender := m.Sender
		if sender == "" {
			sender = string(m.Type)
		}
		fmt.Printf("%s  [%s] %s: %s\n", m.Timestamp.Local().Format("2006-01-02 15:04:05"), m.Type, sender, m.Content)
	}
}

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/recall/internal/store"
)

var (
	addType   string
	addSender string
	addID     string
	addMeta   []string
)

var addCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Store a message in the active session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		obs := newObserver()
		defer obs.Close()

		f := newFactory(obs)
		defer f.Close()

		semantic, err := f.Semantic()
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to initialize repositories")
		}

		id := addID
		if id == "" {
			id = uuid.NewString()
		}

		m := store.Message{
			ID:        id,
			Type:      store.MessageType(addType),
			Content:   args[0],
			Sender:    addSender,
			Timestamp: time.Now().UTC(),
		}
		for _, pair := range addMeta {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				obs.Log().Fatal().Str("meta", pair).Msg("Metadata must be key=value")
			}
			if m.Metadata == nil {
				m.Metadata = make(map[string]string)
			}
			m.Metadata[key] = value
		}

		ctx := context.Background()
		if err := semantic.StoreMessage(ctx, m); err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to store message")
		}
		if err := f.Sessions().Touch(); err != nil {
			obs.Log().Warn().Err(err).Msg("Failed to refresh session activity")
		}

		fmt.Println(id)
	},
}

func init() {
	RootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addType, "type", "t", string(store.TypeUser), "Message type (user, agent, tool, error, summary)")
	addCmd.Flags().StringVarP(&addSender, "sender", "s", "", "Sender identifier")
	addCmd.Flags().StringVar(&addID, "id", "", "Message id (generated when empty)")
	addCmd.Flags().StringArrayVar(&addMeta, "meta", nil, "Metadata entry as key=value (repeatable)")
}

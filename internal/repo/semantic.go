package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/bolt/v3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/provider"
	"github.com/felixgeelhaar/recall/internal/store"
)

// defaultSearchLimit applies when a semantic search is requested without an
// explicit result bound.
const defaultSearchLimit = 10

// SemanticMessageRepository layers natural-language search on top of the
// message and vector repositories. Message persistence never depends on the
// embedder: when no provider is available the repository stores messages
// normally and semantic search degrades to empty results.
type SemanticMessageRepository struct {
	messages *MessageRepository
	vectors  *VectorRepository
	embedder provider.Embedder
	obs      *observe.Observer
	log      *bolt.Logger
}

func NewSemanticMessageRepository(messages *MessageRepository, vectors *VectorRepository, embedder provider.Embedder, obs *observe.Observer) *SemanticMessageRepository {
	return &SemanticMessageRepository{
		messages: messages,
		vectors:  vectors,
		embedder: embedder,
		obs:      obs,
		log:      obs.Log(),
	}
}

// VectorSearchAvailable reports whether semantic search can produce results.
func (r *SemanticMessageRepository) VectorSearchAvailable() bool {
	return r.embedder.Available()
}

// StoreMessage persists the message and, when an embedder is available,
// embeds its content and stores the vector under the message id. An
// embedding failure is reported but does not undo the message write.
func (r *SemanticMessageRepository) StoreMessage(ctx context.Context, m store.Message) error {
	if err := r.messages.StoreMessage(ctx, m); err != nil {
		return err
	}
	return r.embedAndStore(ctx, m)
}

// StoreMessages persists the batch, then embeds each message independently.
// One message's embedding failure never blocks the others; all failures are
// joined into the returned error.
func (r *SemanticMessageRepository) StoreMessages(ctx context.Context, msgs []store.Message) error {
	if err := r.messages.StoreMessages(ctx, msgs); err != nil {
		return err
	}
	if !r.embedder.Available() {
		return nil
	}

	var errs []error
	for _, m := range msgs {
		if err := r.embedAndStore(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *SemanticMessageRepository) embedAndStore(ctx context.Context, m store.Message) error {
	if !r.embedder.Available() || m.Content == "" {
		return nil
	}

	embedding, err := r.embedder.Embed(ctx, m.Content)
	if err != nil {
		return fmt.Errorf("embed message %s: %w", m.ID, err)
	}
	if err := r.vectors.StoreVector(ctx, m.ID, embedding); err != nil {
		return fmt.Errorf("store vector for message %s: %w", m.ID, err)
	}
	return nil
}

// SearchSimilar embeds the query, finds the nearest stored vectors, and
// hydrates the matching messages in similarity order. Matches whose message
// no longer resolves, or whose type does not match the optional filter, are
// dropped. Without an available embedder the result is empty and nil-error.
func (r *SemanticMessageRepository) SearchSimilar(ctx context.Context, query string, limit int, mt store.MessageType) ([]store.Message, error) {
	ctx, span := r.obs.StartSpan(ctx, "repo.SearchSimilar")
	defer span.End()

	if !r.embedder.Available() {
		r.log.Debug().Str("provider", r.embedder.Name()).Msg("semantic search skipped, no embedder available")
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	span.SetAttributes(
		attribute.String("embedder", r.embedder.Name()),
		attribute.Int("limit", limit),
	)

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := r.vectors.SearchSimilar(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	out := make([]store.Message, 0, len(matches))
	for _, match := range matches {
		m, err := r.messages.ByID(ctx, match.MessageID)
		if err != nil {
			return nil, fmt.Errorf("resolve message %s: %w", match.MessageID, err)
		}
		if m == nil {
			r.log.Debug().Str("message_id", match.MessageID).Msg("dropping vector match without message")
			continue
		}
		if mt != "" && m.Type != mt {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/chess-data-etl/internal/config"
	"github.com/couchcryptid/chess-data-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces normalized games to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured games topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes every game of the dataset and writes them in a single
// WriteMessages call. Messages are keyed by player so the hash balancer
// routes all games of one player to the same partition, in dataset order.
func (w *Writer) Publish(ctx context.Context, d domain.Dataset) error {
	if d.IsEmpty() {
		return nil
	}
	msgs := make([]kafkago.Message, len(d.Games))
	for i := range d.Games {
		msg, err := serializeToMessage(d.Player, d.Games[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Info("dataset published", "player", d.Player, "topic", w.writer.Topic, "games", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// gameMessage is the wire form of one published game.
type gameMessage struct {
	Player string `json:"player"`
	domain.NormalizedGame
}

// serializeToMessage marshals a normalized game into a Kafka message.
func serializeToMessage(player string, game domain.NormalizedGame) (kafkago.Message, error) {
	data, err := json.Marshal(gameMessage{Player: player, NormalizedGame: game})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize game %s: %w", game.GameID, err)
	}
	return kafkago.Message{
		Key:   []byte(player),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "player", Value: []byte(player)},
			{Key: "game_id", Value: []byte(game.GameID)},
			{Key: "player_result", Value: []byte(game.PlayerResult)},
			{Key: "time_class", Value: []byte(game.TimeClass)},
		},
	}, nil
}

// Package feed publishes newly observed trades to Kafka so other
// services can consume the stream instead of polling the exchange
// themselves.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/sonar/internal/bitpin"
)

// Publisher receives the trades of each freshly applied snapshot and
// is told when a market stops being watched.
type Publisher interface {
	PublishTrades(ctx context.Context, marketID int, trades []bitpin.Trade) error
	ForgetMarket(marketID int)
}

// messageWriter is the slice of kafka.Writer the publisher needs;
// tests substitute a fake.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TradeEvent is the wire format of one published trade.
type TradeEvent struct {
	MarketID    int    `json:"market_id"`
	MatchID     string `json:"match_id"`
	Price       string `json:"price"`
	Value       string `json:"value"`
	MatchAmount string `json:"match_amount"`
	Side        string `json:"side"`
	Time        int64  `json:"time"`
}

// KafkaPublisher writes deduplicated trade events to a Kafka topic.
type KafkaPublisher struct {
	writer  messageWriter
	logger  *logrus.Logger
	tracker *tradeTracker
}

func NewKafkaPublisher(broker, topic string, logger *logrus.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(broker),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &KafkaPublisher{
		writer:  writer,
		logger:  logger,
		tracker: newTradeTracker(),
	}
}

// PublishTrades sends the trades not yet seen for this market. Trades
// are marked seen only after a successful write so a failed batch is
// retried with the next snapshot.
func (p *KafkaPublisher) PublishTrades(ctx context.Context, marketID int, trades []bitpin.Trade) error {
	var (
		messages []kafka.Message
		fresh    []string
	)
	for _, trade := range trades {
		if p.tracker.Seen(marketID, trade.MatchID) {
			continue
		}

		payload, err := json.Marshal(TradeEvent{
			MarketID:    marketID,
			MatchID:     trade.MatchID,
			Price:       trade.Price,
			Value:       trade.Value,
			MatchAmount: trade.MatchAmount,
			Side:        trade.Side,
			Time:        trade.Time,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal trade %s: %w", trade.MatchID, err)
		}

		messages = append(messages, kafka.Message{
			Key:   []byte(strconv.Itoa(marketID)),
			Value: payload,
		})
		fresh = append(fresh, trade.MatchID)
	}

	if len(messages) == 0 {
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, messages...); err != nil {
		// Don't report an error if context was cancelled (shutdown in progress)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to send trades to Kafka: %w", err)
	}

	for _, matchID := range fresh {
		p.tracker.Mark(marketID, matchID)
	}

	p.logger.Debugf("published %d trades for market %d", len(messages), marketID)
	return nil
}

// ForgetMarket drops the dedup memory for a market, typically when it
// stops being watched.
func (p *KafkaPublisher) ForgetMarket(marketID int) {
	p.tracker.Forget(marketID)
}

func (p *KafkaPublisher) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.Errorf("Error closing Kafka producer: %v", err)
	} else {
		p.logger.Info("Kafka Producer closed")
	}
}

package kafkastream

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"walletlog/internal/domain"
	"walletlog/internal/infrastructure/telemetry"
	"walletlog/internal/streaming"
)

// Producer publishes history activity events to a kafka topic.
type Producer struct {
	writer *kafka.Writer
}

type Config struct {
	Brokers []string
	Topic   string
}

func NewProducer(cfg Config) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		cfg.Topic = "walletlog-activity"
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 500 * time.Millisecond,
	}
	return &Producer{writer: writer}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishRecord emits a record_added event for a newly tracked transaction.
func (p *Producer) PublishRecord(ctx context.Context, record domain.TransactionRecord) error {
	tracer := otel.Tracer("walletlog/kafka")
	ctx, span := tracer.Start(ctx, "activity.publish_record", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("tx.hash", record.Identifier),
		attribute.String("record.kind", string(record.Kind)),
		attribute.String("token.symbol", string(record.TokenSymbol)),
	)

	event := streaming.Event{
		Type:          streaming.EventTypeRecordAdded,
		TxHash:        record.Identifier,
		Kind:          string(record.Kind),
		TokenContract: record.TokenContractAddress,
		TokenSymbol:   string(record.TokenSymbol),
		Amount:        record.Amount,
		SubmittedAt:   record.SubmittedAt,
	}
	if spanCtx := span.SpanContext(); spanCtx.IsValid() {
		event.TraceID = spanCtx.TraceID().String()
	}
	payload, err := streaming.Encode(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	headers := make([]kafka.Header, 0, 2)
	telemetry.InjectKafkaHeaders(ctx, &headers)
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(record.Identifier),
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// PublishClear emits a history_cleared event.
func (p *Producer) PublishClear(ctx context.Context, count int) error {
	ctx, span := otel.Tracer("walletlog/kafka").Start(ctx, "activity.publish_clear", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(attribute.Int("cleared.count", count))

	payload, err := streaming.Encode(streaming.Event{
		Type:         streaming.EventTypeHistoryCleared,
		ClearedCount: count,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	headers := make([]kafka.Header, 0, 2)
	telemetry.InjectKafkaHeaders(ctx, &headers)
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte("clear"),
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

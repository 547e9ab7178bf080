package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// EventTypeLowStockAlert valor del header event_type.
const EventTypeLowStockAlert = "inventory.low_stock_alert.created"

var _ inventory.AlertNotifier = (*AlertNotifier)(nil)

// AlertNotifier publica AlertCreated en Kafka; los consumidores (email, SMS, dashboard)
// quedan fuera de este servicio.
type AlertNotifier struct {
	producer sarama.SyncProducer
	topic    string
	log      zerolog.Logger
}

// NewAlertNotifier crea el productor síncrono contra los brokers.
func NewAlertNotifier(brokers []string, topic string, logger zerolog.Logger) (*AlertNotifier, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("crear productor kafka: %w", err)
	}
	logger.Info().Strs("brokers", brokers).Str("topic", topic).Msg("notificador de alertas kafka listo")
	return NewAlertNotifierWithProducer(producer, topic, logger), nil
}

// NewAlertNotifierWithProducer usa un productor ya construido (p. ej. el mock de sarama en tests).
func NewAlertNotifierWithProducer(producer sarama.SyncProducer, topic string, logger zerolog.Logger) *AlertNotifier {
	return &AlertNotifier{producer: producer, topic: topic, log: logger}
}

// AlertCreated publica el evento con clave = línea de inventario (orden por línea dentro de la partición).
func (n *AlertNotifier) AlertCreated(ctx context.Context, evt inventory.AlertCreatedEvent) error {
	ctx, span := otel.Tracer("kafka-publisher").Start(ctx, "kafka.publish.low_stock_alert",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", n.topic),
			attribute.String("alert.id", evt.AlertID),
			attribute.String("inventory_line.id", evt.InventoryLineID),
		),
	)
	defer span.End()

	body, err := json.Marshal(evt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal")
		return fmt.Errorf("marshal alert event: %w", err)
	}

	// Propagar el contexto de traza en los headers
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(EventTypeLowStockAlert)},
		{Key: []byte("event_id"), Value: []byte(evt.AlertID)},
	}
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	partition, offset, err := n.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   n.topic,
		Key:     sarama.StringEncoder(evt.InventoryLineID),
		Value:   sarama.ByteEncoder(body),
		Headers: headers,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send")
		return fmt.Errorf("publish alert event: %w", err)
	}
	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	n.log.Debug().
		Str("alert_id", evt.AlertID).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("alerta publicada")
	return nil
}

// Close cierra el productor.
func (n *AlertNotifier) Close() error {
	if n.producer != nil {
		return n.producer.Close()
	}
	return nil
}

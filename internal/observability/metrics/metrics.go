package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	prebookingDecisions metric.Int64Counter
	gatepassesIssued    metric.Int64Counter
	notificationsSent   metric.Int64Counter
	gateActions         metric.Int64Counter
	gateRejections      metric.Int64Counter
	emailsSent          metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "visitgate"
	}
	meter := provider.Meter(name)

	prebookingDecisions, err := meter.Int64Counter("visitgate_prebooking_decisions_total")
	if err != nil {
		return nil, err
	}
	gatepassesIssued, err := meter.Int64Counter("visitgate_gatepasses_issued_total")
	if err != nil {
		return nil, err
	}
	notificationsSent, err := meter.Int64Counter("visitgate_notifications_published_total")
	if err != nil {
		return nil, err
	}
	gateActions, err := meter.Int64Counter("visitgate_gate_actions_total")
	if err != nil {
		return nil, err
	}
	gateRejections, err := meter.Int64Counter("visitgate_gate_rejections_total")
	if err != nil {
		return nil, err
	}
	emailsSent, err := meter.Int64Counter("visitgate_emails_sent_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		prebookingDecisions: prebookingDecisions,
		gatepassesIssued:    gatepassesIssued,
		notificationsSent:   notificationsSent,
		gateActions:         gateActions,
		gateRejections:      gateRejections,
		emailsSent:          emailsSent,
	}, nil
}

// RecordPrebookingDecision increments approval pipeline decision counts.
func (m *Metrics) RecordPrebookingDecision(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.prebookingDecisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGatepassIssued increments issued pass counts.
func (m *Metrics) RecordGatepassIssued(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.gatepassesIssued.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotificationPublished increments fan-out publish counts.
func (m *Metrics) RecordNotificationPublished(ctx context.Context, notifType, target string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("notif_type", strings.TrimSpace(notifType)),
		attribute.String("target", strings.TrimSpace(target)),
	)
	m.notificationsSent.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGateAction increments accepted gate movement counts.
func (m *Metrics) RecordGateAction(ctx context.Context, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("action", strings.TrimSpace(action)))
	m.gateActions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGateRejection increments rejected gate movement counts.
func (m *Metrics) RecordGateRejection(ctx context.Context, action, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("action", strings.TrimSpace(action)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.gateRejections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordEmailSent increments outbound mail counts.
func (m *Metrics) RecordEmailSent(ctx context.Context, kind, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.emailsSent.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"status":      {},
	"outcome":     {},
	"notif_type":  {},
	"target":      {},
	"action":      {},
	"reason":      {},
	"kind":        {},
	"method":      {},
	"route":       {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

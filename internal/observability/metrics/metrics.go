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
	llmRequests        metric.Int64Counter
	llmTokens          metric.Int64Counter
	quotaDenials       metric.Int64Counter
	fieldsSigned       metric.Int64Counter
	contractsCompleted metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
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
		name = "accordly"
	}
	meter := provider.Meter(name)

	llmRequests, err := meter.Int64Counter("accordly_llm_requests_total")
	if err != nil {
		return nil, err
	}
	llmTokens, err := meter.Int64Counter("accordly_llm_tokens_total")
	if err != nil {
		return nil, err
	}
	quotaDenials, err := meter.Int64Counter("accordly_quota_denials_total")
	if err != nil {
		return nil, err
	}
	fieldsSigned, err := meter.Int64Counter("accordly_contract_fields_signed_total")
	if err != nil {
		return nil, err
	}
	contractsCompleted, err := meter.Int64Counter("accordly_contracts_completed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("accordly_provider_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		llmRequests:        llmRequests,
		llmTokens:          llmTokens,
		quotaDenials:       quotaDenials,
		fieldsSigned:       fieldsSigned,
		contractsCompleted: contractsCompleted,
		rateLimitDenied:    rateLimitDenied,
	}, nil
}

// RecordLLMRequest counts one generation call by provider, feature and outcome.
func (m *Metrics) RecordLLMRequest(ctx context.Context, provider, feature, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("feature", strings.TrimSpace(feature)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.llmRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLLMTokens accumulates token spend by provider.
func (m *Metrics) RecordLLMTokens(ctx context.Context, provider string, tokens int64) {
	if m == nil || tokens <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("provider", strings.TrimSpace(provider)))
	m.llmTokens.Add(ctx, tokens, metric.WithAttributes(attrs...))
}

// RecordQuotaDenial counts quota gate denials by reason.
func (m *Metrics) RecordQuotaDenial(ctx context.Context, orgID, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("org_id", strings.TrimSpace(orgID)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.quotaDenials.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordFieldSigned counts signed contract fields by field type.
func (m *Metrics) RecordFieldSigned(ctx context.Context, fieldType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("field_type", strings.TrimSpace(fieldType)))
	m.fieldsSigned.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordContractCompleted counts contracts reaching the completed state.
func (m *Metrics) RecordContractCompleted(ctx context.Context, orgID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("org_id", strings.TrimSpace(orgID)))
	m.contractsCompleted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied counts provider rate-limit rejections.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("provider", strings.TrimSpace(provider)))
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"org_id":     {},
	"provider":   {},
	"feature":    {},
	"status":     {},
	"reason":     {},
	"field_type": {},
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

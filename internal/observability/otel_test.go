package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tbourn/go-contest-bot/internal/config"
)

func preserveOTelGlobals(t *testing.T) func() {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	return func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	}
}

func otelCfg(name string, insecure bool) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    insecure,
		Endpoint:    "localhost:4317",
		ServiceName: name,
		SampleRatio: 1.0,
	}
}

func TestSetupOTel_Disabled_LeavesGlobals(t *testing.T) {
	defer preserveOTelGlobals(t)()
	prevTP := otel.GetTracerProvider()

	cfg := otelCfg("contest-bot", true)
	cfg.Enabled = false
	shutdown, err := SetupOTel(context.Background(), cfg, "v0.0.0")
	if err != nil || shutdown == nil {
		t.Fatalf("disabled setup: shutdown=%v err=%v", shutdown != nil, err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown returned error: %v", err)
	}
	if otel.GetTracerProvider() != prevTP {
		t.Fatalf("disabled setup replaced the tracer provider")
	}
}

func TestSetupOTel_Enabled_InstallsProvider(t *testing.T) {
	for _, insecure := range []bool{true, false} {
		t.Run(map[bool]string{true: "insecure", false: "tls"}[insecure], func(t *testing.T) {
			defer preserveOTelGlobals(t)()

			shutdown, err := SetupOTel(context.Background(), otelCfg("contest-bot", insecure), "v1.2.3")
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
				t.Fatalf("expected *sdktrace.TracerProvider, got %T", otel.GetTracerProvider())
			}

			// W3C trace context travels through the installed propagator.
			ctx, span := otel.Tracer("conversation/Engine").Start(context.Background(), "Handle")
			carrier := propagation.MapCarrier{}
			otel.GetTextMapPropagator().Inject(ctx, carrier)
			span.End()
			if carrier.Get("traceparent") == "" {
				t.Fatalf("traceparent not injected: %v", carrier)
			}

			// Nothing listens on the endpoint; shutdown must still return in time.
			sctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
			defer cancel()
			_ = shutdown(sctx)
		})
	}
}

func TestSetupOTel_CanceledContext_StillSucceeds(t *testing.T) {
	defer preserveOTelGlobals(t)()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // the gRPC client connects lazily

	shutdown, err := SetupOTel(ctx, otelCfg("contest-bot", true), "v0")
	if err != nil {
		t.Fatalf("unexpected err with canceled ctx: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown without spans: %v", err)
	}
}

func TestSetupOTel_SeamErrors_KeepGlobals(t *testing.T) {
	origExp, origRes := newExporter, newResource
	t.Cleanup(func() { newExporter, newResource = origExp, origRes })

	cases := []struct {
		name  string
		patch func()
		want  string
	}{
		{
			name: "exporter",
			patch: func() {
				newExporter = func(context.Context, ...otlptracegrpc.Option) (*otlptrace.Exporter, error) {
					return nil, errors.New("boom-exporter")
				}
			},
			want: "boom-exporter",
		},
		{
			name: "resource",
			patch: func() {
				newResource = func(context.Context, string, string) (*resource.Resource, error) {
					return nil, errors.New("boom-resource")
				}
			},
			want: "boom-resource",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer preserveOTelGlobals(t)()
			newExporter, newResource = origExp, origRes
			tc.patch()

			prevTP := otel.GetTracerProvider()
			prevProp := otel.GetTextMapPropagator()

			_, err := SetupOTel(context.Background(), otelCfg("contest-bot", true), "v0")
			if err == nil || err.Error() != tc.want {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
			if otel.GetTracerProvider() != prevTP || otel.GetTextMapPropagator() != prevProp {
				t.Fatalf("globals changed on failure")
			}
		})
	}
}

func TestExporterOptions(t *testing.T) {
	if n := len(exporterOptions(otelCfg("x", true))); n != 2 {
		t.Fatalf("insecure options = %d; want 2", n)
	}
	if n := len(exporterOptions(otelCfg("x", false))); n != 2 {
		t.Fatalf("tls options = %d; want 2", n)
	}
}

func TestNewResource_CarriesServiceIdentity(t *testing.T) {
	res, err := newResource(context.Background(), "contest-bot", "v9")
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	got := map[string]string{}
	for _, kv := range res.Attributes() {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	if got["service.name"] != "contest-bot" || got["service.version"] != "v9" || got["service.namespace"] != "contest" {
		t.Fatalf("unexpected resource attributes: %v", got)
	}
}

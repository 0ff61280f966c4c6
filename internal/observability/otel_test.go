package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tbourn/noticeboard/internal/config"
)

// isolate restores the otel globals and test seams when t ends.
func isolate(t *testing.T) {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	dial, describe := dialExporter, describeService
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
		dialExporter, describeService = dial, describe
	})
}

// inMemory swaps the OTLP exporter for a recorder and returns it.
func inMemory(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	dialExporter = func(context.Context, ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
		return exp, nil
	}
	return exp
}

func enabled(name string, ratio float64) config.OTELConfig {
	return config.OTELConfig{Enabled: true, Insecure: true, Endpoint: "localhost:4317", ServiceName: name, SampleRatio: ratio}
}

func TestSetupOTel_Disabled_LeavesGlobals(t *testing.T) {
	isolate(t)
	before := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Endpoint: "ignored:4317"}, "v0")
	if err != nil || shutdown == nil {
		t.Fatalf("SetupOTel disabled = %v, %v", shutdown, err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatalf("disabled tracing replaced the provider")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}

func TestSetupOTel_ExportsSpansWithServiceResource(t *testing.T) {
	isolate(t)
	exp := inMemory(t)

	shutdown, err := SetupOTel(context.Background(), enabled("board-test", 1), "v1.2.3")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	if !ok {
		t.Fatalf("expected *sdktrace.TracerProvider, got %T", otel.GetTracerProvider())
	}
	defer func() { _ = shutdown(context.Background()) }()

	_, span := otel.Tracer("test").Start(context.Background(), "reaction.add")
	span.End()
	// The in-memory exporter drops its spans on Shutdown, so flush instead.
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "reaction.add" {
		t.Fatalf("exported spans = %+v", spans)
	}
	attrs := map[attribute.Key]string{}
	for _, kv := range spans[0].Resource.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	if attrs["service.name"] != "board-test" || attrs["service.version"] != "v1.2.3" {
		t.Fatalf("resource attributes = %v", attrs)
	}
}

func TestSetupOTel_PropagatesTraceContext(t *testing.T) {
	isolate(t)
	inMemory(t)

	shutdown, err := SetupOTel(context.Background(), enabled("svc", 1), "v1")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := otel.Tracer("test").Start(context.Background(), "outbound")
	defer span.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	tp := carrier.Get("traceparent")
	if !strings.Contains(tp, span.SpanContext().TraceID().String()) {
		t.Fatalf("traceparent %q does not carry trace id", tp)
	}
}

func TestSetupOTel_RealExporter_BothTransports(t *testing.T) {
	for _, insecure := range []bool{true, false} {
		t.Run(map[bool]string{true: "insecure", false: "tls"}[insecure], func(t *testing.T) {
			isolate(t)
			cfg := enabled("svc", 0.5)
			cfg.Insecure = insecure

			// The gRPC client connects lazily, so a canceled context is fine.
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			shutdown, err := SetupOTel(ctx, cfg, "v1")
			if err != nil {
				t.Fatalf("SetupOTel: %v", err)
			}
			sctx, done := context.WithTimeout(context.Background(), 250*time.Millisecond)
			defer done()
			_ = shutdown(sctx)
		})
	}
}

func TestSetupOTel_Failures_KeepGlobals(t *testing.T) {
	cases := map[string]func(){
		"exporter": func() {
			dialExporter = func(context.Context, ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
				return nil, errors.New("dial failed")
			}
		},
		"resource": func() {
			describeService = func(context.Context, string, string) (*resource.Resource, error) {
				return nil, errors.New("detect failed")
			}
		},
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			inMemory(t)
			breakIt()
			tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()

			if _, err := SetupOTel(context.Background(), enabled("svc", 1), "v0"); err == nil {
				t.Fatalf("expected error")
			}
			if otel.GetTracerProvider() != tp || otel.GetTextMapPropagator() != prop {
				t.Fatalf("globals changed on failure")
			}
		})
	}
}

func TestSetupOTel_BlankServiceName_UsesDefault(t *testing.T) {
	isolate(t)
	inMemory(t)

	var got string
	orig := describeService
	describeService = func(ctx context.Context, name, version string) (*resource.Resource, error) {
		got = name
		return orig(ctx, name, version)
	}

	shutdown, err := SetupOTel(context.Background(), enabled("  ", 1), "v1")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()
	if got != defaultServiceName {
		t.Fatalf("service name = %q; want %q", got, defaultServiceName)
	}
}

func TestExporterOptions(t *testing.T) {
	if n := len(exporterOptions(config.OTELConfig{Endpoint: "x:4317", Insecure: true})); n != 2 {
		t.Fatalf("insecure options = %d; want 2", n)
	}
	if n := len(exporterOptions(config.OTELConfig{Endpoint: "x:4317"})); n != 2 {
		t.Fatalf("tls options = %d; want 2", n)
	}
}

func TestSampler_Bounds(t *testing.T) {
	cases := []struct {
		ratio float64
		want  string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.5, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tc := range cases {
		desc := sampler(tc.ratio).Description()
		if !strings.HasPrefix(desc, "ParentBased{root:"+tc.want) {
			t.Fatalf("sampler(%v) = %q; want root %q", tc.ratio, desc, tc.want)
		}
	}
}

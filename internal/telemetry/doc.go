// Package telemetry provides OpenTelemetry instrumentation for gamesmith.
//
// # Usage
//
//	tel, err := telemetry.New(ctx, telemetry.ConfigFrom(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	tracer := tel.Tracer("github.com/fyrsmithlabs/gamesmith/internal/pipeline")
//	ctx, span := tracer.Start(ctx, "pipeline.run")
//	defer span.End()
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc        # or http/protobuf
//	  sample_rate: 1.0
//
// Telemetry is off by default. When enabled but the exporters cannot be
// created, the instance degrades to no-op providers and Health reports why.
//
// # Testing
//
//	tt := telemetry.NewTestTelemetry()
//	_, span := tt.Tracer("test").Start(ctx, "test-span")
//	span.End()
//	tt.AssertSpanExists(t, "test-span")
package telemetry

// Package telemetry provides OpenTelemetry tracing and metrics for assessd.
//
// Traces and metrics are exported over OTLP (gRPC or HTTP/protobuf) to a
// collector. When telemetry is disabled the package hands out the global
// no-op providers, so instrumented code never needs to nil-check.
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	tracer := tel.Tracer("assessd.importer")
//	meter := tel.Meter("assessd.answers")
//
// Telemetry failures never stop the service. Exporter setup errors mark the
// instance degraded and are reported through Health.
//
// Tests use NewTestTelemetry, which records spans in memory and collects
// metrics through a manual reader.
package telemetry

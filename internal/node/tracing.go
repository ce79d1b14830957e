// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
)

func (n *Node) setupTracing(ctx context.Context) error {
	var exporter trace.SpanExporter
	var err error
	if n.config.tracingStdout {
		exporter, err = stdouttrace.New(
			stdouttrace.WithWriter(os.Stdout),
		)
	} else {
		var opts []otlptracehttp.Option
		if n.config.otlpEndpoint != "" {
			opts = append(
				opts,
				otlptracehttp.WithEndpointURL(n.config.otlpEndpoint),
			)
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	n.shutdownFuncs = append(n.shutdownFuncs, tp.Shutdown)
	n.config.logger.Info("tracing enabled", "component", "node")
	return nil
}

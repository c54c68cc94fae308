package pipeline

import "go.opentelemetry.io/otel"

const scopeName = "github.com/Vovarama1992/kisan_voice/internal/pipeline"

var tracer = otel.Tracer(scopeName)

package logging

import (
	"github.com/klothoplatform/platform/pkg/construct"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type componentField struct {
	urn  string
	kind string
}

func (f componentField) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("urn", f.urn)
	enc.AddString("type", f.kind)
	return nil
}

// ComponentField identifies the component a log line is about.
func ComponentField(urn, kind string) zap.Field {
	return zap.Object("component", componentField{urn: urn, kind: kind})
}

type resourceField struct {
	id   construct.ResourceId
	deps int
}

func (f resourceField) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", f.id.String())
	if f.deps > 0 {
		enc.AddInt("dependencies", f.deps)
	}
	return nil
}

func ResourceField(r *construct.Resource) zap.Field {
	return zap.Object("resource", resourceField{id: r.ID, deps: len(r.Dependencies())})
}

func ResourceIdField(id construct.ResourceId) zap.Field {
	return zap.Stringer("resource", id)
}

package blob

import (
	"bytes"
	"context"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/compression"
	"github.com/ajitpratap0/launchpad/pkg/connector/base"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/formats"
)

// Sink writes frames or raw bytes to an object
type Sink struct {
	*base.BaseConnector

	object   Object
	dtypes   Object
	layout   Layout
	settings settings
}

// NewSink creates a sink over object. When dtypes is not nil the column
// types of every written frame are stored there.
func NewSink(spec core.Spec, layout Layout, object, dtypes Object) (*Sink, error) {
	s := &Sink{
		BaseConnector: base.NewBaseConnector(spec, core.ConnectorTypeSink),
		object:        object,
		dtypes:        dtypes,
		layout:        layout,
	}

	settings, err := newSettings(s.BaseConnector, object.String())
	if err != nil {
		_ = s.Close(context.Background())
		return nil, err
	}
	s.settings = settings
	return s, nil
}

// Layout returns how the object is written
func (s *Sink) Layout() Layout {
	return s.layout
}

// PutFrame encodes frame and replaces the object with it
func (s *Sink) PutFrame(ctx context.Context, frame *core.Frame, params core.Params) error {
	if err := s.check(params); err != nil {
		return err
	}
	if !s.layout.Tabular() {
		return s.Unsupported("frame writes", "use raw writes for "+s.layout.String()+" data")
	}
	if frame == nil {
		return errors.New(errors.ErrorTypeValidation, "frame is nil").WithDetail("connector", s.Name())
	}

	return s.Trace(ctx, "put_frame", func(ctx context.Context) error {
		if s.dtypes != nil {
			if err := s.writeDtypes(ctx, frame); err != nil {
				return err
			}
		}

		var buf bytes.Buffer
		opts := formats.WriteOptions{
			Separator: s.settings.separator,
			Name:      s.Name(),
			Codec:     s.settings.avroCodec,
		}
		if err := formats.Encode(s.layout.Format, &buf, frame, opts); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to encode "+s.layout.String()).
				WithDetail("connector", s.Name())
		}

		if err := s.write(ctx, buf.Bytes()); err != nil {
			return err
		}
		s.GetLogger().Debug("frame stored",
			zap.String("location", s.object.String()),
			zap.Int("rows", frame.Len()))
		return nil
	}, attribute.String("location", s.object.String()))
}

// PutRaw replaces the object with data
func (s *Sink) PutRaw(ctx context.Context, data []byte, params core.Params) error {
	if err := s.check(params); err != nil {
		return err
	}
	if s.layout.Tabular() {
		return s.Unsupported("raw writes", "use frame writes for "+s.layout.String()+" data")
	}
	if s.layout.Text && !utf8.Valid(data) {
		return errors.New(errors.ErrorTypeValidation, "text data is not valid UTF-8").
			WithDetail("connector", s.Name())
	}

	return s.Trace(ctx, "put_raw", func(ctx context.Context) error {
		return s.write(ctx, data)
	}, attribute.String("location", s.object.String()))
}

func (s *Sink) check(params core.Params) error {
	if err := s.EnsureOpen(); err != nil {
		return err
	}
	return s.RejectParams(params)
}

func (s *Sink) write(ctx context.Context, data []byte) error {
	compressed, err := compression.Compress(s.settings.compression, data)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to compress "+string(s.settings.compression)).
			WithDetail("connector", s.Name())
	}
	return s.object.Write(ctx, compressed)
}

func (s *Sink) writeDtypes(ctx context.Context, frame *core.Frame) error {
	var buf bytes.Buffer
	if err := formats.WriteDtypes(&buf, formats.Fields(frame)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode dtypes").
			WithDetail("connector", s.Name())
	}
	return s.dtypes.Write(ctx, buf.Bytes())
}

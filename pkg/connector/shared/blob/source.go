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

// Source reads frames or raw bytes from an object
type Source struct {
	*base.BaseConnector

	object   Object
	dtypes   Object
	layout   Layout
	settings settings
}

// NewSource creates a source over object. dtypes locates the column type
// description applied to csv data and may be nil.
func NewSource(spec core.Spec, layout Layout, object, dtypes Object) (*Source, error) {
	s := &Source{
		BaseConnector: base.NewBaseConnector(spec, core.ConnectorTypeSource),
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

// Layout returns how the object is interpreted
func (s *Source) Layout() Layout {
	return s.layout
}

// GetFrame reads and decodes the object
func (s *Source) GetFrame(ctx context.Context, params core.Params) (*core.Frame, error) {
	if err := s.check(params); err != nil {
		return nil, err
	}
	if !s.layout.Tabular() {
		return nil, s.Unsupported("frame reads", "use raw reads for "+s.layout.String()+" data")
	}

	var frame *core.Frame
	err := s.Trace(ctx, "get_frame", func(ctx context.Context) error {
		data, err := s.read(ctx)
		if err != nil {
			return err
		}

		opts := formats.ReadOptions{Separator: s.settings.separator}
		if s.dtypes != nil {
			if opts.Dtypes, err = s.readDtypes(ctx); err != nil {
				return err
			}
		}

		frame, err = formats.Decode(s.layout.Format, bytes.NewReader(data), opts)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to decode "+s.layout.String()).
				WithDetail("connector", s.Name()).
				WithDetail("location", s.object.String())
		}
		return nil
	}, attribute.String("location", s.object.String()))
	if err != nil {
		return nil, err
	}

	s.GetLogger().Debug("frame loaded",
		zap.String("location", s.object.String()),
		zap.Int("rows", frame.Len()))
	return frame, nil
}

// GetRaw returns the object's bytes, decompressed
func (s *Source) GetRaw(ctx context.Context, params core.Params) ([]byte, error) {
	if err := s.check(params); err != nil {
		return nil, err
	}
	if s.layout.Tabular() {
		return nil, s.Unsupported("raw reads", "use frame reads for "+s.layout.String()+" data")
	}

	var data []byte
	err := s.Trace(ctx, "get_raw", func(ctx context.Context) error {
		var err error
		if data, err = s.read(ctx); err != nil {
			return err
		}
		if s.layout.Text && !utf8.Valid(data) {
			return errors.New(errors.ErrorTypeData, "text file is not valid UTF-8").
				WithDetail("connector", s.Name()).
				WithDetail("location", s.object.String())
		}
		return nil
	}, attribute.String("location", s.object.String()))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Health checks that the object can be reached
func (s *Source) Health(ctx context.Context) error {
	if err := s.EnsureOpen(); err != nil {
		return err
	}
	return s.object.Stat(ctx)
}

func (s *Source) check(params core.Params) error {
	if err := s.EnsureOpen(); err != nil {
		return err
	}
	return s.RejectParams(params)
}

func (s *Source) read(ctx context.Context) ([]byte, error) {
	data, err := s.object.Read(ctx)
	if err != nil {
		return nil, err
	}
	plain, err := compression.Decompress(s.settings.compression, data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decompress "+string(s.settings.compression)).
			WithDetail("connector", s.Name()).
			WithDetail("location", s.object.String())
	}
	return plain, nil
}

func (s *Source) readDtypes(ctx context.Context) ([]core.Field, error) {
	data, err := s.dtypes.Read(ctx)
	if err != nil {
		return nil, err
	}
	fields, err := formats.ReadDtypes(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid dtypes file").
			WithDetail("connector", s.Name()).
			WithDetail("location", s.dtypes.String())
	}
	return fields, nil
}

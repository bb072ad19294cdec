package blob

import (
	"context"
	"net/url"
	"strings"

	"github.com/ajitpratap0/launchpad/pkg/connector/base"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// ParseLocation splits "<scheme>://<bucket>/<key>" into bucket and key. The
// scheme must be one of schemes.
func ParseLocation(location string, schemes ...string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", errors.Wrap(err, errors.ErrorTypeConfig, "invalid location").WithDetail("location", location)
	}

	valid := false
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			valid = true
			break
		}
	}
	if !valid {
		return "", "", errors.Newf(errors.ErrorTypeConfig, "location '%s' must use scheme %s", location, strings.Join(schemes, " or ")).
			WithDetail("location", location)
	}

	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", errors.Newf(errors.ErrorTypeConfig, "location '%s' must name a bucket and an object", location).
			WithDetail("location", location)
	}
	return u.Host, key, nil
}

// IsRemote reports whether location is a URL rather than a local path
func IsRemote(location string) bool {
	return strings.Contains(location, "://")
}

// Backend opens objects by location
type Backend interface {
	Open(location string) (Object, error)
	Close(ctx context.Context) error
}

// Local opens files relative to BaseDir
type Local struct {
	BaseDir string
}

var _ Backend = Local{}

// Open returns the local file at p
func (l Local) Open(p string) (Object, error) {
	if IsRemote(p) {
		return nil, errors.Newf(errors.ErrorTypeConfig, "'%s' is not a local path", p).WithDetail("location", p)
	}
	return NewFile(base.ResolvePath(l.BaseDir, p)), nil
}

// Close is a no-op
func (Local) Close(ctx context.Context) error {
	return nil
}

// Open resolves the data object of a connector and its dtypes object, nil
// when dtypes_path is not configured. A local dtypes_path is allowed with
// remote backends.
func Open(b Backend, spec core.Spec) (data, dtypes Object, err error) {
	cfg := spec.Connector
	if cfg.Path == "" {
		return nil, nil, errors.Newf(errors.ErrorTypeConfig, "connector '%s' of type '%s' requires 'path'", cfg.Name, cfg.Type).
			WithDetail("connector", cfg.Name)
	}

	if data, err = b.Open(cfg.Path); err != nil {
		return nil, nil, err
	}

	switch {
	case cfg.DtypesPath == "":
	case IsRemote(cfg.DtypesPath):
		dtypes, err = b.Open(cfg.DtypesPath)
	default:
		dtypes, err = Local{BaseDir: spec.BaseDir}.Open(cfg.DtypesPath)
	}
	if err != nil {
		return nil, nil, err
	}
	return data, dtypes, nil
}

// FileLayout returns the layout of a local file connector type
func FileLayout(typ string) (Layout, error) {
	l, ok := FileTypes[typ]
	if !ok {
		return Layout{}, errors.Newf(errors.ErrorTypeConfig, "'%s' is not a file connector type", typ).
			WithDetail("type", typ)
	}
	return l, nil
}

// OpenSource builds a source over backend b. The backend is closed with the
// source, or immediately when construction fails.
func OpenSource(ctx context.Context, spec core.Spec, layout Layout, b Backend) (*Source, error) {
	data, dtypes, err := Open(b, spec)
	if err != nil {
		_ = b.Close(ctx)
		return nil, err
	}
	src, err := NewSource(spec, layout, data, dtypes)
	if err != nil {
		_ = b.Close(ctx)
		return nil, err
	}
	src.OnClose(b.Close)
	return src, nil
}

// OpenSink builds a sink over backend b. The backend is closed with the
// sink, or immediately when construction fails.
func OpenSink(ctx context.Context, spec core.Spec, layout Layout, b Backend) (*Sink, error) {
	data, dtypes, err := Open(b, spec)
	if err != nil {
		_ = b.Close(ctx)
		return nil, err
	}
	sink, err := NewSink(spec, layout, data, dtypes)
	if err != nil {
		_ = b.Close(ctx)
		return nil, err
	}
	sink.OnClose(b.Close)
	return sink, nil
}

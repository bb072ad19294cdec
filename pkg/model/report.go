package model

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/formats"
	"github.com/ajitpratap0/launchpad/pkg/logger"
)

// Report collects information about a training run. It is stored with the
// model's metadata.
type Report struct {
	values map[string]interface{}
	mu     sync.Mutex
}

// NewReport creates an empty report
func NewReport() *Report {
	return &Report{values: make(map[string]interface{})}
}

// Add records value under name. Frames are summarized instead of stored:
// row and column counts, column names and column types end up under
// "data.<name>".
func (r *Report) Add(name string, value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if frame, ok := value.(*core.Frame); ok {
		data, _ := r.values["data"].(map[string]interface{})
		if data == nil {
			data = make(map[string]interface{})
		}
		data[name] = summarize(frame)
		r.values["data"] = data
		logger.Info("train report data", zap.String("name", name), zap.Int("rows", frame.Len()))
		return
	}
	r.values[name] = value
	logger.Info("train report", zap.String("name", name), zap.Any("value", value))
}

// Values returns a copy of the recorded values
func (r *Report) Values() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]interface{}, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

func summarize(frame *core.Frame) map[string]interface{} {
	s := map[string]interface{}{
		"nrows":    frame.Len(),
		"ncols":    len(frame.Columns),
		"colnames": frame.Columns,
	}
	dtypes := make([]string, 0, len(frame.Columns))
	for _, f := range formats.Fields(frame) {
		dtypes = append(dtypes, formats.DtypeName(f.Type))
	}
	s["dtypes"] = dtypes
	return s
}

type reportKey struct{}

// WithReport returns a context carrying r
func WithReport(ctx context.Context, r *Report) context.Context {
	return context.WithValue(ctx, reportKey{}, r)
}

// AddToReport records value in the report carried by ctx. Outside of
// training there is no report and the call only logs.
func AddToReport(ctx context.Context, name string, value interface{}) {
	r, ok := ctx.Value(reportKey{}).(*Report)
	if !ok {
		logger.Info("ignoring train report entry outside of training", zap.String("name", name))
		return
	}
	r.Add(name, value)
}

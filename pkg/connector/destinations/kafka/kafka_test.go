package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

func spec(path string, options map[string]interface{}) core.Spec {
	return core.Spec{Connector: config.ConnectorConfig{Name: "scores", Type: Type, Path: path, Options: options}}
}

func withMock(t *testing.T) *mocks.SyncProducer {
	producer := mocks.NewSyncProducer(t, nil)
	orig := newSyncProducer
	newSyncProducer = func(addrs []string, cfg *sarama.Config) (sarama.SyncProducer, error) {
		return producer, nil
	}
	t.Cleanup(func() { newSyncProducer = orig })
	return producer
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		options map[string]interface{}
		brokers []string
		wantErr bool
	}{
		{name: "path brokers", path: "a:9092, b:9092", options: map[string]interface{}{"topic": "t"}, brokers: []string{"a:9092", "b:9092"}},
		{name: "option brokers", options: map[string]interface{}{"brokers": "a:9092", "topic": "t"}, brokers: []string{"a:9092"}},
		{name: "no brokers", options: map[string]interface{}{"topic": "t"}, wantErr: true},
		{name: "no topic", path: "a:9092", wantErr: true},
		{name: "bad acks", path: "a:9092", options: map[string]interface{}{"topic": "t", "acks": "some"}, wantErr: true},
		{name: "bad compression", path: "a:9092", options: map[string]interface{}{"topic": "t", "compression": "brotli"}, wantErr: true},
		{name: "zstd", path: "a:9092", options: map[string]interface{}{"topic": "t", "compression": "zstd"}, brokers: []string{"a:9092"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseOptions(spec(tt.path, tt.options))
			if tt.wantErr {
				assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.brokers, opts.brokers)
			assert.Equal(t, "t", opts.topic)
		})
	}
}

func TestPutFrame(t *testing.T) {
	ctx := context.Background()
	producer := withMock(t)

	var values []string
	for i := 0; i < 2; i++ {
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			values = append(values, string(val))
			return nil
		})
	}

	sink, err := NewSink(ctx, spec("localhost:9092", map[string]interface{}{"topic": "scores", "key": "id"}))
	require.NoError(t, err)
	defer sink.Close(ctx)

	frame := core.NewFrame("id", "score")
	require.NoError(t, frame.Append(int64(1), 0.5))
	require.NoError(t, frame.Append(int64(2), 0.75))

	require.NoError(t, sink.PutFrame(ctx, frame, core.Params{"run": "nightly"}))
	assert.Equal(t, []string{`{"id":1,"score":0.5}`, `{"id":2,"score":0.75}`}, values)
}

func TestPutFrameMissingKeyColumn(t *testing.T) {
	ctx := context.Background()
	withMock(t)

	sink, err := NewSink(ctx, spec("localhost:9092", map[string]interface{}{"topic": "scores", "key": "id"}))
	require.NoError(t, err)
	defer sink.Close(ctx)

	err = sink.PutFrame(ctx, core.NewFrame("score"), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestPutRawFailure(t *testing.T) {
	ctx := context.Background()
	producer := withMock(t)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink, err := NewSink(ctx, spec("localhost:9092", map[string]interface{}{"topic": "scores"}))
	require.NoError(t, err)
	defer sink.Close(ctx)

	err = sink.PutRaw(ctx, []byte("payload"), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}

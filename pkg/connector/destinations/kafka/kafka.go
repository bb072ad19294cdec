// Package kafka provides the Kafka datasink, connector type "kafka". Frames
// are published one JSON message per row; raw data is published as a single
// message. Call parameters are attached to every message as headers.
//
//	datasinks:
//	  scores:
//	    type: kafka
//	    path: broker-1:9092,broker-2:9092
//	    options:
//	      topic: iris.scores
//	      key: id
//	      acks: all
//	      compression: lz4
//	    tags: [predict]
package kafka

import (
	"context"
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/spf13/cast"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/connector/base"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// Type is the connector type served by this package
const Type = "kafka"

// newSyncProducer is replaced in tests
var newSyncProducer = sarama.NewSyncProducer

// Sink publishes messages to one topic
type Sink struct {
	*base.BaseConnector
	producer sarama.SyncProducer
	topic    string
	key      string
}

// NewSink creates a Kafka datasink. Brokers come from "path" or the
// "brokers" option as a comma separated list.
func NewSink(ctx context.Context, spec core.Spec) (core.DataSink, error) {
	opts, err := parseOptions(spec)
	if err != nil {
		return nil, err
	}

	producer, err := newSyncProducer(opts.brokers, opts.config)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create Kafka producer").
			WithDetail("connector", spec.Name()).
			WithDetail("brokers", strings.Join(opts.brokers, ","))
	}

	s := &Sink{
		BaseConnector: base.NewBaseConnector(spec, core.ConnectorTypeSink),
		producer:      producer,
		topic:         opts.topic,
		key:           opts.key,
	}
	s.OnClose(func(ctx context.Context) error { return producer.Close() })

	s.GetLogger().Info("connected to Kafka",
		zap.Strings("brokers", opts.brokers),
		zap.String("topic", opts.topic))
	return s, nil
}

type sinkOptions struct {
	brokers []string
	topic   string
	key     string
	config  *sarama.Config
}

func parseOptions(spec core.Spec) (*sinkOptions, error) {
	c := spec.Connector
	invalid := func(err error, key string) error {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid option '"+key+"'").WithDetail("connector", spec.Name())
	}

	brokerList := c.Path
	if brokerList == "" {
		v, err := c.OptionString("brokers", "")
		if err != nil {
			return nil, invalid(err, "brokers")
		}
		brokerList = v
	}
	var brokers []string
	for _, b := range strings.Split(brokerList, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.Newf(errors.ErrorTypeConfig, "connector '%s' requires brokers in 'path' or the 'brokers' option", spec.Name()).
			WithDetail("connector", spec.Name())
	}

	topic, err := c.OptionString("topic", c.Table)
	if err != nil {
		return nil, invalid(err, "topic")
	}
	if topic == "" {
		return nil, errors.Newf(errors.ErrorTypeConfig, "connector '%s' requires the 'topic' option", spec.Name()).
			WithDetail("connector", spec.Name())
	}
	key, err := c.OptionString("key", "")
	if err != nil {
		return nil, invalid(err, "key")
	}

	config := sarama.NewConfig()
	config.ClientID = "launchpad"
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	acks, err := c.OptionString("acks", "all")
	if err != nil {
		return nil, invalid(err, "acks")
	}
	switch acks {
	case "all", "-1":
		config.Producer.RequiredAcks = sarama.WaitForAll
	case "1":
		config.Producer.RequiredAcks = sarama.WaitForLocal
	case "0":
		config.Producer.RequiredAcks = sarama.NoResponse
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "acks must be all, 1 or 0, got %q", acks).WithDetail("connector", spec.Name())
	}

	retries, err := c.OptionInt("retries", 3)
	if err != nil {
		return nil, invalid(err, "retries")
	}
	config.Producer.Retry.Max = retries

	compression, err := c.OptionString("compression", "none")
	if err != nil {
		return nil, invalid(err, "compression")
	}
	switch compression {
	case "none", "":
		config.Producer.Compression = sarama.CompressionNone
	case "gzip":
		config.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		config.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		config.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		config.Producer.Compression = sarama.CompressionZSTD
		config.Version = sarama.V2_1_0_0
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression %q", compression).WithDetail("connector", spec.Name())
	}

	timeout, err := c.OptionInt("timeout_ms", 10000)
	if err != nil {
		return nil, invalid(err, "timeout_ms")
	}
	config.Net.DialTimeout = time.Duration(timeout) * time.Millisecond
	config.Producer.Timeout = time.Duration(timeout) * time.Millisecond

	useTLS, err := c.OptionBool("tls", false)
	if err != nil {
		return nil, invalid(err, "tls")
	}
	if useTLS {
		config.Net.TLS.Enable = true
		config.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	mechanism, err := c.OptionString("sasl_mechanism", "")
	if err != nil {
		return nil, invalid(err, "sasl_mechanism")
	}
	if mechanism != "" {
		config.Net.SASL.Enable = true
		switch mechanism {
		case "PLAIN":
			config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		default:
			return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported sasl_mechanism %q", mechanism).WithDetail("connector", spec.Name())
		}
		userVar, _ := c.OptionString("sasl_user_var", "KAFKA_USER")
		pwVar, _ := c.OptionString("sasl_password_var", "KAFKA_PW")
		config.Net.SASL.User = os.Getenv(userVar)
		config.Net.SASL.Password = os.Getenv(pwVar)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid Kafka producer configuration").WithDetail("connector", spec.Name())
	}

	return &sinkOptions{brokers: brokers, topic: topic, key: key, config: config}, nil
}

// PutFrame publishes one JSON message per row. With the "key" option set,
// the named column becomes the message key.
func (s *Sink) PutFrame(ctx context.Context, frame *core.Frame, params core.Params) error {
	if err := s.EnsureOpen(); err != nil {
		return err
	}
	if frame == nil {
		return errors.New(errors.ErrorTypeValidation, "frame is nil").WithDetail("connector", s.Name())
	}
	keyIdx := -1
	if s.key != "" {
		if keyIdx = frame.ColumnIndex(s.key); keyIdx < 0 {
			return errors.Newf(errors.ErrorTypeValidation, "key column '%s' not in frame", s.key).WithDetail("connector", s.Name())
		}
	}

	headers := s.headers(params)
	msgs := make([]*sarama.ProducerMessage, 0, frame.Len())
	for i, rec := range frame.Records() {
		value, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to encode row").WithDetail("row", i)
		}
		msg := &sarama.ProducerMessage{Topic: s.topic, Value: sarama.ByteEncoder(value), Headers: headers}
		if keyIdx >= 0 {
			if k := frame.Rows[i][keyIdx]; k != nil {
				msg.Key = sarama.StringEncoder(cast.ToString(k))
			}
		}
		msgs = append(msgs, msg)
	}
	return s.send(ctx, msgs)
}

// PutRaw publishes data as a single message
func (s *Sink) PutRaw(ctx context.Context, data []byte, params core.Params) error {
	if err := s.EnsureOpen(); err != nil {
		return err
	}
	return s.send(ctx, []*sarama.ProducerMessage{{
		Topic:   s.topic,
		Value:   sarama.ByteEncoder(data),
		Headers: s.headers(params),
	}})
}

func (s *Sink) headers(params core.Params) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("connector"), Value: []byte(s.Name())},
	}
	for k, v := range params {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(cast.ToString(v))})
	}
	return headers
}

func (s *Sink) send(ctx context.Context, msgs []*sarama.ProducerMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	err := s.Trace(ctx, "produce", func(ctx context.Context) error {
		return s.producer.SendMessages(msgs)
	}, attribute.String("messaging.system", "kafka"), attribute.String("messaging.destination", s.topic))
	if err != nil {
		return s.Annotate(err, errors.ErrorTypeConnection, "failed to publish messages")
	}
	s.GetLogger().Debug("messages published", zap.String("topic", s.topic), zap.Int("count", len(msgs)))
	return nil
}

package blob

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// GCSClient opens objects in Google Cloud Storage.
//
// Connector options:
//
//	credentials_file  service account key file, defaults to application default credentials
//	endpoint          custom endpoint URL, e.g. an emulator
type GCSClient struct {
	client *storage.Client
}

var _ Backend = (*GCSClient)(nil)

// NewGCSClient creates a client from the connector's options
func NewGCSClient(ctx context.Context, cfg config.ConnectorConfig) (*GCSClient, error) {
	credentialsFile, err := cfg.OptionString("credentials_file", "")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid 'credentials_file' option").WithDetail("connector", cfg.Name)
	}
	endpoint, err := cfg.OptionString("endpoint", "")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid 'endpoint' option").WithDetail("connector", cfg.Name)
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "failed to create GCS client").
			WithDetail("connector", cfg.Name)
	}
	return &GCSClient{client: client}, nil
}

// Close releases the client
func (c *GCSClient) Close(ctx context.Context) error {
	return c.client.Close()
}

// Open returns the object at "gs://bucket/name"
func (c *GCSClient) Open(location string) (Object, error) {
	bucket, name, err := ParseLocation(location, "gs", "gcs")
	if err != nil {
		return nil, err
	}
	return &GCSObject{handle: c.client.Bucket(bucket).Object(name), bucket: bucket, name: name}, nil
}

// GCSObject is an Object stored in Google Cloud Storage
type GCSObject struct {
	handle *storage.ObjectHandle
	bucket string
	name   string
}

// Read downloads the object
func (o *GCSObject) Read(ctx context.Context) ([]byte, error) {
	r, err := o.handle.NewReader(ctx)
	if err != nil {
		return nil, o.wrap(err, "failed to open GCS object")
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read GCS object").WithDetail("location", o.String())
	}
	return data, nil
}

// Write uploads data, replacing the object
func (o *GCSObject) Write(ctx context.Context, data []byte) error {
	w := o.handle.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to write GCS object").WithDetail("location", o.String())
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to finalize GCS object").WithDetail("location", o.String())
	}
	return nil
}

// Stat checks that the object exists
func (o *GCSObject) Stat(ctx context.Context) error {
	if _, err := o.handle.Attrs(ctx); err != nil {
		return o.wrap(err, "GCS object not accessible")
	}
	return nil
}

func (o *GCSObject) String() string {
	return "gs://" + o.bucket + "/" + o.name
}

func (o *GCSObject) wrap(err error, msg string) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return errors.Wrap(err, errors.ErrorTypeNotFound, msg).WithDetail("location", o.String())
	}
	return errors.Wrap(err, errors.ErrorTypeConnection, msg).WithDetail("location", o.String())
}

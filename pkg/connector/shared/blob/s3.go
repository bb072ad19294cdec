package blob

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// S3Client opens objects in Amazon S3 or an S3 compatible store.
//
// Connector options:
//
//	region          AWS region, defaults to the environment's
//	profile         shared config profile
//	endpoint        custom endpoint URL, e.g. a MinIO server
//	use_path_style  address buckets by path instead of virtual host
type S3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
}

var _ Backend = (*S3Client)(nil)

// NewS3Client creates a client from the connector's options and the default
// AWS credential chain
func NewS3Client(ctx context.Context, cfg config.ConnectorConfig) (*S3Client, error) {
	region, err := cfg.OptionString("region", "")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid 'region' option").WithDetail("connector", cfg.Name)
	}
	profile, err := cfg.OptionString("profile", "")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid 'profile' option").WithDetail("connector", cfg.Name)
	}
	endpoint, err := cfg.OptionString("endpoint", "")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid 'endpoint' option").WithDetail("connector", cfg.Name)
	}
	pathStyle, err := cfg.OptionBool("use_path_style", false)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid 'use_path_style' option").WithDetail("connector", cfg.Name)
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "failed to load AWS configuration").
			WithDetail("connector", cfg.Name)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = pathStyle
	})

	return &S3Client{
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// Open returns the object at "s3://bucket/key"
func (c *S3Client) Open(location string) (Object, error) {
	bucket, key, err := ParseLocation(location, "s3")
	if err != nil {
		return nil, err
	}
	return &S3Object{client: c, bucket: bucket, key: key}, nil
}

// Close is a no-op, S3 clients hold no resources
func (c *S3Client) Close(ctx context.Context) error {
	return nil
}

// S3Object is an Object stored in S3
type S3Object struct {
	client *S3Client
	bucket string
	key    string
}

// Read downloads the object
func (o *S3Object) Read(ctx context.Context) ([]byte, error) {
	out, err := o.client.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		return nil, o.wrap(err, "failed to get S3 object")
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read S3 object").WithDetail("location", o.String())
	}
	return data, nil
}

// Write uploads data, replacing the object
func (o *S3Object) Write(ctx context.Context, data []byte) error {
	_, err := o.client.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to upload to S3").WithDetail("location", o.String())
	}
	return nil
}

// Stat checks that the object exists
func (o *S3Object) Stat(ctx context.Context) error {
	_, err := o.client.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		return o.wrap(err, "S3 object not accessible")
	}
	return nil
}

func (o *S3Object) String() string {
	return "s3://" + o.bucket + "/" + o.key
}

func (o *S3Object) wrap(err error, msg string) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return errors.Wrap(err, errors.ErrorTypeNotFound, msg).WithDetail("location", o.String())
	}
	return errors.Wrap(err, errors.ErrorTypeConnection, msg).WithDetail("location", o.String())
}

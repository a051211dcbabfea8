package storage

import (
	"context"
	"errors"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/transport/http"
	"k8s.io/utils/pointer"
)

type S3Options struct {
	URL       string `yaml:"url,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	AccessKey string `yaml:"accessKey,omitempty"`
	SecretKey string `yaml:"secretKey,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	PathStyle bool   `yaml:"pathStyle,omitempty"`
}

func NewDefaultS3Options() *S3Options {
	return &S3Options{
		Bucket:    "uploads",
		Prefix:    "uploads",
		PathStyle: true,
	}
}

var _ Store = &S3Store{}

type S3Store struct {
	Bucket string
	Client *s3.Client
	Prefix string
}

func NewS3Store(ctx context.Context, options *S3Options) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(options.AccessKey, options.SecretKey, ""),
		),
		config.WithRegion(options.Region),
		config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{URL: options.URL}, nil
				},
			),
		),
	)
	if err != nil {
		return nil, err
	}
	s3cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = options.PathStyle
	})
	return &S3Store{
		Bucket: options.Bucket,
		Client: s3cli,
		Prefix: options.Prefix,
	}, nil
}

func (m *S3Store) Put(ctx context.Context, key string, content Content) error {
	uploadobj := &s3.PutObjectInput{
		Bucket:        aws.String(m.Bucket),
		Key:           m.prefixedKey(key),
		Body:          content.Content,
		ContentLength: content.ContentLength,
	}
	if content.ContentType != "" {
		uploadobj.ContentType = aws.String(content.ContentType)
	}
	_, err := manager.NewUploader(m.Client).Upload(ctx, uploadobj)
	return err
}

func (m *S3Store) Get(ctx context.Context, key string) (*Object, error) {
	out, err := m.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.Bucket),
		Key:    m.prefixedKey(key),
	})
	if err != nil {
		return nil, err
	}
	return &Object{
		ReadCloser:    out.Body,
		ContentType:   pointer.StringDeref(out.ContentType, ""),
		ContentLength: out.ContentLength,
	}, nil
}

func (m *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.Bucket),
		Key:    m.prefixedKey(key),
	})
	if err != nil {
		if IsS3NotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *S3Store) Remove(ctx context.Context, key string) error {
	_, err := m.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.Bucket),
		Key:    m.prefixedKey(key),
	})
	return err
}

func IsS3NotFound(err error) bool {
	var apie *http.ResponseError
	if errors.As(err, &apie) {
		return apie.HTTPStatusCode() == 404
	}
	return false
}

func (m *S3Store) prefixedKey(key string) *string {
	return aws.String(path.Join(m.Prefix, key))
}

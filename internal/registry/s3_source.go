package registry

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fiberui-dev/fiberui/internal/errors"
)

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a registry from an S3 bucket:
//
//	s3://bucket/prefix/registry.yaml
//	s3://bucket/prefix/files/components/button.tsx
type S3Source struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Source creates an S3 registry source.
func NewS3Source(client S3API, bucket, prefix string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ParseS3URL splits s3://bucket/prefix into bucket and prefix.
func ParseS3URL(raw string) (bucket, prefix string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", errors.New(errors.CodeRegistryUnavail).
			WithDetail("Invalid S3 registry URL " + raw).
			WithExample("s3://my-bucket/fiberui")
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

// NewS3Client builds an S3 client without the shared AWS config loader.
// Credentials come from AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY when set;
// otherwise requests are anonymous, which suits public registry buckets.
func NewS3Client(region, endpoint string) *s3.Client {
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:      region,
		Credentials: envCredentials(),
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func envCredentials() aws.CredentialsProvider {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	return aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "EnvironmentVariables",
		}, nil
	}))
}

// Location implements Source.
func (s *S3Source) Location() string {
	if s.prefix == "" {
		return "s3://" + s.bucket
	}
	return "s3://" + s.bucket + "/" + s.prefix
}

// ReadManifest implements Source.
func (s *S3Source) ReadManifest(ctx context.Context) ([]byte, string, error) {
	for _, name := range ManifestNames {
		body, err := s.get(ctx, s.key(name))
		if err != nil {
			if isNoSuchKey(err) {
				continue
			}
			return nil, "", errors.New(errors.CodeRegistryUnavail).
				WithDetail("Could not read " + s.Location() + ": " + err.Error()).
				Wrap(err)
		}
		origin := s.Location() + "/" + name
		data, err := readManifest(body, origin)
		body.Close()
		if err != nil {
			return nil, "", err
		}
		return data, origin, nil
	}
	return nil, "", errors.New(errors.CodeRegistryUnavail).
		WithDetail("No registry.yaml or registry.json found in " + s.Location())
}

// Open implements Source.
func (s *S3Source) Open(ctx context.Context, file string) (io.ReadCloser, error) {
	if err := ValidatePath(file); err != nil {
		return nil, missingFile(file, s.Location(), err)
	}
	body, err := s.get(ctx, s.key(path.Join(FilesDir, path.Clean(file))))
	if err != nil {
		if isNoSuchKey(err) {
			return nil, missingFile(file, s.Location(), fs.ErrNotExist)
		}
		return nil, errors.New(errors.CodeRegistryUnavail).Wrap(err)
	}
	return body, nil
}

func (s *S3Source) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3Source) get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	return stderrors.As(err, &nsk)
}

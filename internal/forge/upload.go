package forge

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArtifactStore wraps an S3-compatible bucket holding distribution
// archives, typically a CI artifact mirror.
type ArtifactStore struct {
	Client *s3.Client
	Bucket string
}

// NewArtifactStore initializes the store from configuration values.
func NewArtifactStore(cfg *Config) (*ArtifactStore, error) {
	endpoint := cfg.Values["SWIFTFORGE_S3_ENDPOINT"]
	accessKey := cfg.Values["SWIFTFORGE_S3_ACCESS_KEY"]
	secretKey := cfg.Values["SWIFTFORGE_S3_SECRET_KEY"]
	bucket := cfg.Values["SWIFTFORGE_S3_BUCKET"]
	region := cfg.Values["SWIFTFORGE_S3_REGION"]
	if region == "" {
		region = "auto"
	}

	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, fmt.Errorf("artifact store credentials missing in configuration (SWIFTFORGE_S3_ENDPOINT, SWIFTFORGE_S3_ACCESS_KEY, SWIFTFORGE_S3_SECRET_KEY, SWIFTFORGE_S3_BUCKET)")
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: endpoint}, nil
	})

	options := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithRegion(region),
	}
	if Debug {
		options = append(options, awsconfig.WithClientLogMode(aws.LogSigning|aws.LogRetries|aws.LogRequest|aws.LogResponse))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact store config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &ArtifactStore{Client: client, Bucket: bucket}, nil
}

// UploadLocalFile uploads an archive from disk under the given key.
func (a *ArtifactStore) UploadLocalFile(ctx context.Context, key, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(key, ".zst"):
		contentType = "application/zstd"
	case strings.HasSuffix(key, ".gz"):
		contentType = "application/gzip"
	}

	_, err = a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.Bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String(contentType),
	})
	return err
}

// StoredArtifact is metadata for one object in the store.
type StoredArtifact struct {
	Key  string
	Size int64
}

// List returns the archives under a key prefix.
func (a *ArtifactStore) List(ctx context.Context, prefix string) ([]StoredArtifact, error) {
	var objects []StoredArtifact
	paginator := s3.NewListObjectsV2Paginator(a.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.Bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			objects = append(objects, StoredArtifact{Key: *obj.Key, Size: *obj.Size})
		}
	}
	return objects, nil
}

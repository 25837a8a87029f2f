package snapshot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Publisher 主文件写入成功后的镜像目标，失败只记录日志
type Publisher interface {
	Name() string
	Publish(ctx context.Context, doc *Document, data []byte) error
}

const (
	s3ObjectName   = "latest.json"
	s3CacheControl = "max-age=60"
)

// S3Config 为空的字段走 AWS 默认配置链
type S3Config struct {
	Bucket       string
	Region       string
	Prefix       string
	UsePathStyle bool
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher 把快照镜像到 <prefix>latest.json
type S3Publisher struct {
	client objectPutter
	bucket string
	key    string
}

func NewS3Publisher(ctx context.Context, cfg S3Config) (*S3Publisher, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Publisher(c, cfg.Bucket, cfg.Prefix), nil
}

func newS3Publisher(client objectPutter, bucket, prefix string) *S3Publisher {
	return &S3Publisher{client: client, bucket: bucket, key: prefix + s3ObjectName}
}

func (p *S3Publisher) Name() string { return "s3" }

func (p *S3Publisher) Publish(ctx context.Context, _ *Document, data []byte) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(p.key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String(s3CacheControl),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", p.bucket, p.key, err)
	}
	return nil
}

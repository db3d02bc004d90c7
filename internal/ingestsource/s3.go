// Package ingestsource provides alternative input sources for the Input
// Normalizer beyond the local filesystem. Local directory listing remains
// the default and the only source exercised by the deterministic
// conversation-ordering invariant; S3 listing is additive since
// ListObjectsV2 already returns keys in lexicographic order, preserving
// that same guarantee.
package ingestsource

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ckexporter/internal/config"
	"ckexporter/internal/conversation"
	"ckexporter/internal/normalize"
)

// S3Source lists and downloads export files from an S3 (or S3-compatible)
// bucket prefix, handing each object to the same extension-based
// shape-detection logic the local directory source uses.
type S3Source struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Source builds an S3Source from cfg. An empty bucket is a
// configuration error, not a disabled-feature signal, since callers only
// construct this source when they've chosen S3 as their input.
func NewS3Source(ctx context.Context, cfg config.S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var awsOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	return &S3Source{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: strings.TrimSuffix(cfg.Prefix, "/"),
	}, nil
}

// Load lists every object under the configured prefix, downloads each, and
// normalizes it via the same extension dispatch LoadFile uses, returning
// conversations in the lexicographic key order S3 already lists in.
func (s *S3Source) Load(ctx context.Context) ([]*conversation.Conversation, error) {
	keys, err := s.listKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list s3 objects: %w", err)
	}
	sort.Strings(keys)

	var out []*conversation.Conversation
	for _, key := range keys {
		data, err := s.getObject(ctx, key)
		if err != nil {
			continue
		}
		stem, ext := splitStemExt(key)
		convs, err := normalize.LoadBytes(data, stem, ext, "s3://"+s.bucket+"/"+key)
		if err != nil {
			continue
		}
		out = append(out, convs...)
	}
	return out, nil
}

func (s *S3Source) listKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var token *string
	for {
		input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
		if s.prefix != "" {
			input.Prefix = aws.String(s.prefix + "/")
		}
		if token != nil {
			input.ContinuationToken = token
		}
		page, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		token = page.NextContinuationToken
	}
	return keys, nil
}

func (s *S3Source) getObject(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()
	return io.ReadAll(result.Body)
}

func splitStemExt(key string) (stem, ext string) {
	base := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		base = key[idx+1:]
	}
	dot := strings.LastIndex(base, ".")
	if dot < 0 {
		return base, ""
	}
	return base[:dot], base[dot:]
}

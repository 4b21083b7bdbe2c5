// Package s3 provides the S3 flavor of backing store identity and a
// directory lister used to prime the metadata cache from a live bucket.
package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/metacache/pkg/pathmeta"
	"github.com/marmos91/metacache/pkg/pathmeta/errors"
)

// Config holds configuration for the S3 backing store.
type Config struct {
	// Bucket is the S3 bucket name; it doubles as the URI authority.
	Bucket string `mapstructure:"bucket" yaml:"bucket" validate:"required"`

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible
	// services).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ForcePathStyle forces path-style addressing (required for
	// Localstack/MinIO).
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style"`

	// Scheme is the URI scheme for canonical keys. Defaults to "s3".
	Scheme string `mapstructure:"scheme" yaml:"scheme"`

	// BlockSize is stamped onto primed file entries; S3 has no native
	// block size.
	BlockSize int64 `mapstructure:"block_size" yaml:"block_size"`
}

// listObjectsAPI is the slice of the S3 client ListDirectory needs.
type listObjectsAPI interface {
	ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
}

// Backing is an S3-backed implementation of backing.Identity that can also
// enumerate bucket directories.
type Backing struct {
	client listObjectsAPI
	cfg    Config
}

// New creates an S3 backing with an existing client.
func New(client *awss3.Client, cfg Config) *Backing {
	if cfg.Scheme == "" {
		cfg.Scheme = "s3"
	}
	return &Backing{client: client, cfg: cfg}
}

// NewFromConfig creates an S3 backing by building an S3 client from config.
// This is the preferred constructor when you don't have an existing client.
func NewFromConfig(ctx context.Context, cfg Config) (*Backing, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	return New(awss3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// Scheme returns the URI scheme for canonical keys.
func (b *Backing) Scheme() string {
	return b.cfg.Scheme
}

// Authority returns the bucket name.
func (b *Backing) Authority() string {
	return b.cfg.Bucket
}

// ListDirectory enumerates the direct children of dirPath in the bucket and
// returns them as an authoritative listing: a delimited ListObjectsV2 scan
// is by definition the complete set of direct children. The listing is
// ready to hand to MetadataStore.PutListing.
//
// dirPath is a slash path within the bucket ("/" for the bucket root).
// Objects map to file entries, common prefixes to directory entries.
func (b *Backing) ListDirectory(ctx context.Context, dirPath string) (*pathmeta.DirListing, error) {
	prefix := objectPrefix(dirPath)

	var entries []pathmeta.PathEntry
	var continuation *string
	for {
		out, err := b.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
			Bucket:            aws.String(b.cfg.Bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, errors.NewBackingStoreError("list objects", err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				// The directory marker object, not a child.
				continue
			}
			entry := pathmeta.PathEntry{
				Path:      "/" + key,
				Length:    aws.ToInt64(obj.Size),
				BlockSize: b.cfg.BlockSize,
			}
			if obj.LastModified != nil {
				entry.ModTime = *obj.LastModified
				entry.AccessTime = *obj.LastModified
			}
			entries = append(entries, entry)
		}
		for _, cp := range out.CommonPrefixes {
			key := strings.TrimSuffix(aws.ToString(cp.Prefix), "/")
			entries = append(entries, pathmeta.PathEntry{
				Path:  "/" + key,
				IsDir: true,
			})
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		continuation = out.NextContinuationToken
	}

	return &pathmeta.DirListing{
		Path:          dirSlashPath(dirPath),
		Entries:       entries,
		Authoritative: true,
	}, nil
}

// objectPrefix converts a slash path into the S3 key prefix for its direct
// children: "/a/b" -> "a/b/", "/" -> "".
func objectPrefix(dirPath string) string {
	trimmed := strings.Trim(dirPath, "/")
	if trimmed == "" {
		return ""
	}
	return trimmed + "/"
}

// dirSlashPath normalizes the listing path spelling: "a/b" -> "/a/b".
func dirSlashPath(dirPath string) string {
	trimmed := strings.Trim(dirPath, "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed
}

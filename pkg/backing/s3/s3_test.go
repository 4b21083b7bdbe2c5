package s3

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLister serves canned ListObjectsV2 pages and records the requests.
type fakeLister struct {
	pages    []*awss3.ListObjectsV2Output
	requests []*awss3.ListObjectsV2Input
}

func (f *fakeLister) ListObjectsV2(_ context.Context, params *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	f.requests = append(f.requests, params)
	page := f.pages[len(f.requests)-1]
	return page, nil
}

func newTestBacking(pages ...*awss3.ListObjectsV2Output) (*Backing, *fakeLister) {
	fake := &fakeLister{pages: pages}
	b := &Backing{
		client: fake,
		cfg: Config{
			Bucket:    "test-bucket",
			Scheme:    "s3",
			BlockSize: 4 * 1024 * 1024,
		},
	}
	return b, fake
}

func TestIdentity(t *testing.T) {
	b, _ := newTestBacking()
	assert.Equal(t, "s3", b.Scheme())
	assert.Equal(t, "test-bucket", b.Authority())
}

func TestListDirectory(t *testing.T) {
	mod := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b, fake := newTestBacking(&awss3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("data/reports/"), Size: aws.Int64(0)},
			{Key: aws.String("data/reports/jan.csv"), Size: aws.Int64(1234), LastModified: aws.Time(mod)},
			{Key: aws.String("data/reports/feb.csv"), Size: aws.Int64(5678), LastModified: aws.Time(mod)},
		},
		CommonPrefixes: []types.CommonPrefix{
			{Prefix: aws.String("data/reports/archive/")},
		},
		IsTruncated: aws.Bool(false),
	})

	listing, err := b.ListDirectory(t.Context(), "/data/reports")
	require.NoError(t, err)

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "data/reports/", aws.ToString(fake.requests[0].Prefix))
	assert.Equal(t, "/", aws.ToString(fake.requests[0].Delimiter))

	assert.Equal(t, "/data/reports", listing.Path)
	assert.True(t, listing.Authoritative)
	require.Len(t, listing.Entries, 3)

	byPath := map[string]int{}
	for i, e := range listing.Entries {
		byPath[e.Path] = i
	}

	jan := listing.Entries[byPath["/data/reports/jan.csv"]]
	assert.False(t, jan.IsDir)
	assert.Equal(t, int64(1234), jan.Length)
	assert.Equal(t, int64(4*1024*1024), jan.BlockSize)
	assert.True(t, jan.ModTime.Equal(mod))

	archive := listing.Entries[byPath["/data/reports/archive"]]
	assert.True(t, archive.IsDir)
}

func TestListDirectoryRoot(t *testing.T) {
	b, fake := newTestBacking(&awss3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("top.txt"), Size: aws.Int64(1)},
		},
		IsTruncated: aws.Bool(false),
	})

	listing, err := b.ListDirectory(t.Context(), "/")
	require.NoError(t, err)

	assert.Equal(t, "", aws.ToString(fake.requests[0].Prefix))
	assert.Equal(t, "/", listing.Path)
	require.Len(t, listing.Entries, 1)
	assert.Equal(t, "/top.txt", listing.Entries[0].Path)
}

func TestListDirectoryPaginates(t *testing.T) {
	b, fake := newTestBacking(
		&awss3.ListObjectsV2Output{
			Contents: []types.Object{
				{Key: aws.String("d/a.txt"), Size: aws.Int64(1)},
			},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("token-1"),
		},
		&awss3.ListObjectsV2Output{
			Contents: []types.Object{
				{Key: aws.String("d/b.txt"), Size: aws.Int64(2)},
			},
			IsTruncated: aws.Bool(false),
		},
	)

	listing, err := b.ListDirectory(t.Context(), "/d")
	require.NoError(t, err)

	require.Len(t, fake.requests, 2)
	assert.Nil(t, fake.requests[0].ContinuationToken)
	assert.Equal(t, "token-1", aws.ToString(fake.requests[1].ContinuationToken))
	assert.Len(t, listing.Entries, 2)
}

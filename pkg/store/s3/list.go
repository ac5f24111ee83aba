package s3

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/blobfs/pkg/store"
	"golang.org/x/sync/errgroup"
)

// maxHeadConcurrency bounds the HeadObject calls issued to fill in metadata.
const maxHeadConcurrency = 16

// List fetches one ListObjectsV2 page. The continuation token is the
// service's own token.
//
// The snapshot namespace is filtered out after MaxKeys is applied, so a
// page may come back empty yet carry a token. With Include.Snapshots every
// object is preceded by its snapshots, so a page may hold more than
// MaxResults entries.
func (s *S3Store) List(ctx context.Context, opts store.ListOptions) (*store.ListPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix + opts.Prefix),
	}
	if opts.Delimiter != "" {
		input.Delimiter = aws.String(opts.Delimiter)
	}
	if opts.Token != "" {
		input.ContinuationToken = aws.String(opts.Token)
	}
	if opts.MaxResults > 0 {
		input.MaxKeys = aws.Int32(int32(opts.MaxResults))
	}

	resp, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, mapError("list", opts.Prefix, err)
	}

	page := &store.ListPage{}
	if aws.ToBool(resp.IsTruncated) {
		page.Token = aws.ToString(resp.NextContinuationToken)
	}

	if opts.Kind != store.ListObjects {
		for _, p := range resp.CommonPrefixes {
			name := strings.TrimPrefix(aws.ToString(p.Prefix), s.keyPrefix)
			if name == "" || s.reserved(name) {
				continue
			}
			page.Prefixes = append(page.Prefixes, name)
		}
	}

	if opts.Kind == store.ListPrefixes {
		return page, nil
	}

	for _, obj := range resp.Contents {
		name := strings.TrimPrefix(aws.ToString(obj.Key), s.keyPrefix)
		if name == "" || s.reserved(name) {
			continue
		}

		if opts.Include.Snapshots {
			snapshots, err := s.snapshotEntries(ctx, name)
			if err != nil {
				return nil, err
			}
			page.Objects = append(page.Objects, snapshots...)
		}
		page.Objects = append(page.Objects, objectEntry(name, obj))
	}

	if opts.Include.Metadata {
		if err := s.fillMetadata(ctx, page.Objects); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// snapshotEntries lists the snapshots of key, oldest first.
func (s *S3Store) snapshotEntries(ctx context.Context, key string) ([]store.ObjectEntry, error) {
	prefix := s.snapshotListPrefix(key)

	var out []store.ObjectEntry
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError("list snapshots", key, err)
		}
		for _, obj := range page.Contents {
			id := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if id == "" || strings.Contains(id, "/") {
				continue
			}
			e := objectEntry(key, obj)
			e.Snapshot = id
			out = append(out, e)
		}
	}
	return out, nil
}

// fillMetadata heads every entry to load its user metadata and content
// settings, which ListObjectsV2 does not return.
func (s *S3Store) fillMetadata(ctx context.Context, entries []store.ObjectEntry) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxHeadConcurrency)

	for i := range entries {
		g.Go(func() error {
			e := entries[i]
			out, err := s.head(ctx, e.Name, e.Snapshot)
			if err != nil {
				return err
			}
			metadata, modified := splitMetadata(out.Metadata)

			entries[i].Metadata = metadata
			entries[i].ContentSettings = headContentSettings(out)
			if !modified.IsZero() {
				entries[i].LastModified = modified
			}
			return nil
		})
	}
	return g.Wait()
}

func objectEntry(name string, obj types.Object) store.ObjectEntry {
	return store.ObjectEntry{
		Name:         name,
		Size:         aws.ToInt64(obj.Size),
		LastModified: aws.ToTime(obj.LastModified),
	}
}

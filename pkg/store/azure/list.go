package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/marmos91/blobfs/pkg/store"
)

// List fetches one page from the Blob service. The continuation token is the
// service's own marker.
func (s *AzureStore) List(ctx context.Context, opts store.ListOptions) (*store.ListPage, error) {
	include := container.ListBlobsInclude{
		Snapshots: opts.Include.Snapshots,
		Metadata:  opts.Include.Metadata,
	}

	var (
		prefix     *string
		marker     *string
		maxResults *int32
	)
	if opts.Prefix != "" {
		prefix = to.Ptr(opts.Prefix)
	}
	if opts.Token != "" {
		marker = to.Ptr(opts.Token)
	}
	if opts.MaxResults > 0 {
		maxResults = to.Ptr(int32(opts.MaxResults))
	}

	page := &store.ListPage{}

	if opts.Delimiter == "" {
		pager := s.client.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
			Include:    include,
			Prefix:     prefix,
			Marker:     marker,
			MaxResults: maxResults,
		})
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, mapError("list", opts.Prefix, err)
		}
		if opts.Kind != store.ListPrefixes && resp.Segment != nil {
			page.Objects = entries(resp.Segment.BlobItems, opts.Include.Metadata)
		}
		page.Token = deref(resp.NextMarker)
		return page, nil
	}

	pager := s.client.NewListBlobsHierarchyPager(opts.Delimiter, &container.ListBlobsHierarchyOptions{
		Include:    include,
		Prefix:     prefix,
		Marker:     marker,
		MaxResults: maxResults,
	})
	resp, err := pager.NextPage(ctx)
	if err != nil {
		return nil, mapError("list", opts.Prefix, err)
	}
	if resp.Segment != nil {
		if opts.Kind != store.ListObjects {
			for _, p := range resp.Segment.BlobPrefixes {
				if p.Name != nil {
					page.Prefixes = append(page.Prefixes, *p.Name)
				}
			}
		}
		if opts.Kind != store.ListPrefixes {
			page.Objects = entries(resp.Segment.BlobItems, opts.Include.Metadata)
		}
	}
	page.Token = deref(resp.NextMarker)
	return page, nil
}

func entries(items []*container.BlobItem, withMetadata bool) []store.ObjectEntry {
	out := make([]store.ObjectEntry, 0, len(items))
	for _, item := range items {
		if item == nil || item.Name == nil {
			continue
		}

		e := store.ObjectEntry{
			Name:     *item.Name,
			Snapshot: deref(item.Snapshot),
		}
		if p := item.Properties; p != nil {
			e.Size = deref(p.ContentLength)
			e.LastModified = deref(p.LastModified)
			e.ContentSettings = store.ContentSettings{
				ContentType:        deref(p.ContentType),
				ContentEncoding:    deref(p.ContentEncoding),
				ContentLanguage:    deref(p.ContentLanguage),
				ContentDisposition: deref(p.ContentDisposition),
				CacheControl:       deref(p.CacheControl),
				ContentMD5:         p.ContentMD5,
			}
		}
		if withMetadata {
			e.Metadata = fromAzureMetadata(item.Metadata)
		}
		out = append(out, e)
	}
	return out
}

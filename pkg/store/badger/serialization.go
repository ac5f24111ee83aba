package badger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/marmos91/blobfs/pkg/store"
)

// record is the stored representation of one object version. Content lives
// under the matching data key.
type record struct {
	Size            int64                 `json:"size"`
	LastModified    time.Time             `json:"last_modified"`
	ETag            string                `json:"etag"`
	ContentSettings store.ContentSettings `json:"content_settings"`
	Metadata        map[string]string     `json:"metadata,omitempty"`
	CopyID          string                `json:"copy_id,omitempty"`
	CopyStatus      store.CopyStatus      `json:"copy_status,omitempty"`
}

type containerRecord struct {
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

func encodeRecord(r *record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*record, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &r, nil
}

func (r *record) properties(key, snapshot string) *store.ObjectProperties {
	return &store.ObjectProperties{
		Key:             key,
		Snapshot:        snapshot,
		Size:            r.Size,
		LastModified:    r.LastModified,
		ETag:            r.ETag,
		ContentSettings: r.ContentSettings,
		Metadata:        r.Metadata,
		CopyID:          r.CopyID,
		CopyStatus:      r.CopyStatus,
	}
}

func (r *record) entry(key, snapshot string, withMetadata bool) store.ObjectEntry {
	e := store.ObjectEntry{
		Name:            key,
		Snapshot:        snapshot,
		Size:            r.Size,
		LastModified:    r.LastModified,
		ContentSettings: r.ContentSettings,
	}
	if withMetadata {
		e.Metadata = r.Metadata
	}
	return e
}

func encodeContainer(c *containerRecord) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode container: %w", err)
	}
	return data, nil
}

func decodeContainer(data []byte) (*containerRecord, error) {
	var c containerRecord
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode container: %w", err)
	}
	return &c, nil
}

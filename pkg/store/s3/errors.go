package s3

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/marmos91/blobfs/pkg/store"
)

// mapError converts an S3 error into the store's error vocabulary. The
// original error stays in the chain.
func mapError(op, key string, err error) error {
	if err == nil {
		return nil
	}

	var (
		noSuchKey *types.NoSuchKey
		notFound  *types.NotFound
		noBucket  *types.NoSuchBucket
	)
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound), errors.As(err, &noBucket):
		return wrap(op, key, store.ErrObjectNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return wrap(op, key, store.ErrObjectNotFound, err)
		case "PreconditionFailed", "ConditionalRequestConflict":
			return wrap(op, key, store.ErrObjectExists, err)
		case "NotImplemented":
			return wrap(op, key, store.ErrNotSupported, err)
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return wrap(op, key, store.ErrObjectNotFound, err)
		case http.StatusPreconditionFailed:
			return wrap(op, key, store.ErrObjectExists, err)
		case http.StatusNotImplemented:
			return wrap(op, key, store.ErrNotSupported, err)
		}
	}

	return fmt.Errorf("s3 %s %s: %w", op, key, err)
}

func wrap(op, key string, sentinel, err error) error {
	return fmt.Errorf("s3 %s %s: %w", op, key, errors.Join(sentinel, err))
}

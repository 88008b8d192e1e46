package newline

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// objReader reads a stream that may be gzipped
type objReader struct {
	rdr   io.Reader
	gzRdr *gzip.Reader

	// client is closed with the reader when OpenObject created it
	client *storage.Client
}

func (z *objReader) Read(p []byte) (n int, err error) {
	if z.gzRdr != nil {
		return z.gzRdr.Read(p)
	}
	return z.rdr.Read(p)
}

func (z *objReader) Close() error {
	err := z.closeStream()
	if z.client != nil {
		clientErr := z.client.Close()
		z.client = nil
		if err == nil {
			err = clientErr
		}
	}
	return err
}

func (z *objReader) closeStream() error {
	var err error
	if z.gzRdr != nil {
		err = z.gzRdr.Close()
	}
	if z.rdr == nil {
		return err
	}
	if rdr, ok := z.rdr.(io.Closer); ok {
		rdrErr := rdr.Close()
		if rdrErr != nil {
			return rdrErr
		}
	}
	return err
}

func (z *objReader) Reset(r io.Reader, gzipped bool) error {
	err := z.closeStream()
	if err != nil {
		return err
	}
	z.rdr = r
	if !gzipped {
		z.gzRdr = nil
		return nil
	}
	if z.gzRdr == nil {
		z.gzRdr, err = gzip.NewReader(r)
		return err
	}
	return z.gzRdr.Reset(r)
}

func isGzipName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".gz")
}

// OpenStream returns a Reader over rc. When name ends in ".gz" the stream is decompressed. Closing
// the Reader closes rc.
func OpenStream(rc io.ReadCloser, name string, opts *Options) (*Reader, error) {
	return openStream(rc, name, opts.withDefaults(), nil)
}

func openStream(rc io.ReadCloser, name string, opts *Options, client *storage.Client) (*Reader, error) {
	obj := new(objReader)
	err := obj.Reset(rc, isGzipName(name))
	if err != nil {
		_ = rc.Close() //nolint:errcheck // already failing
		return nil, errors.Wrapf(err, "opening %s", name)
	}
	obj.client = client
	return NewReaderSize(obj, opts.BufferSize), nil
}

var newStorageClient = func(ctx context.Context) (*storage.Client, error) {
	return storage.NewClient(ctx, option.WithoutAuthentication())
}

// OpenObject returns a Reader over a cloud storage object, decompressing it when the object name
// ends in ".gz". Without opts.StorageClient it creates an unauthenticated client that is closed
// along with the Reader. Share a client through opts when opening many objects.
func OpenObject(ctx context.Context, bucket, object string, opts *Options) (*Reader, error) {
	opts = opts.withDefaults()
	client := opts.StorageClient
	var owned *storage.Client
	if client == nil {
		var err error
		client, err = newStorageClient(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "creating storage client")
		}
		owned = client
	}
	opts.Logger.Debug("opening object", zap.String("bucket", bucket), zap.String("object", object))
	rdr, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if owned != nil {
			_ = owned.Close() //nolint:errcheck // already failing
		}
		return nil, errors.Wrapf(err, "opening gs://%s/%s", bucket, object)
	}
	r, err := openStream(rdr, object, opts, owned)
	if err != nil && owned != nil {
		_ = owned.Close() //nolint:errcheck // already failing
	}
	return r, err
}

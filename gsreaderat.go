package dicomframes

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"google.golang.org/api/iterator"
)

// ReaderAtCloser is satisfied by local files and by Google Storage objects
// wrapped in GSReaderAtCloser.
type ReaderAtCloser interface {
	io.Reader
	io.ReaderAt
	io.Closer
}

// MaybeOpenFromGoogleStorage opens path for reading and reports its size.
// Paths carrying the gs:// prefix are opened from Google Storage via client;
// anything else is opened from the local filesystem.
func MaybeOpenFromGoogleStorage(path string, client *storage.Client) (ReaderAtCloser, int64, error) {
	if strings.HasPrefix(path, "gs://") {
		bucketName, objectName, err := splitGooglePath(path)
		if err != nil {
			return nil, 0, err
		}

		// Open the bucket with default credentials
		bkt := client.Bucket(bucketName)
		handle := bkt.Object(objectName)

		wrappedHandle := &GSReaderAtCloser{
			ObjectHandle: handle,
			Context:      context.Background(),
		}

		// Make a hard call to get the filesize
		attrs, err := wrappedHandle.ObjectHandle.Attrs(wrappedHandle.Context)
		if err == storage.ErrObjectNotExist {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		if err != nil {
			return nil, 0, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}

		return wrappedHandle, attrs.Size, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return f, 0, err
	}
	fstat, err := f.Stat()
	if err != nil {
		return f, 0, err
	}

	return f, fstat.Size(), nil
}

// ListDicomsFromGoogleStorage lists the .dcm objects sitting directly under
// a gs:// folder, sorted by name. Objects in nested folders are not listed.
func ListDicomsFromGoogleStorage(path string, client *storage.Client) ([]string, error) {
	bucketName, prefix, err := splitGooglePath(strings.TrimSuffix(path, "/") + "/")
	if err != nil {
		return nil, err
	}

	bkt := client.Bucket(bucketName)
	it := bkt.Objects(context.Background(), &storage.Query{
		Prefix:    prefix,
		Delimiter: "/",
	})

	var names []string
	for {
		objAttrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, pfx.Err(err)
		}

		// Delimited listings emit synthetic entries for nested folders, which
		// carry a Prefix but no Name
		if objAttrs.Name == "" {
			continue
		}

		if !strings.HasSuffix(strings.ToLower(objAttrs.Name), ".dcm") {
			continue
		}

		names = append(names, "gs://"+bucketName+"/"+objAttrs.Name)
	}

	sort.Strings(names)

	return names, nil
}

func splitGooglePath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// GSReaderAtCloser decorates a Google Storage object handle with ReadAt
type GSReaderAtCloser struct {
	*storage.ObjectHandle
	Context context.Context
	Closer  *func() error
	Reader  *storage.Reader
}

func (o *GSReaderAtCloser) Read(p []byte) (n int, err error) {
	if o.Reader == nil {
		o.Reader, err = o.NewReader(o.Context)
		if err != nil {
			return 0, err
		}
	}

	return o.Reader.Read(p)
}

// ReadAt satisfies io.ReaderAt. Note that this is dependent upon making p a
// buffer of the desired length to be read by NewRangeReader.
func (o *GSReaderAtCloser) ReadAt(p []byte, offset int64) (n int, err error) {
	rdr, err := o.NewRangeReader(o.Context, offset, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rdr.Close()

	return rdr.Read(p)
}

// Close satisfies io.Closer. If o.Closer is not set, this is a nop.
func (o *GSReaderAtCloser) Close() error {
	var err error

	if o.Closer != nil {
		err = (*o.Closer)()
	}

	return err
}

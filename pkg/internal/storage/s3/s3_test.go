package s3_test

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/storage/s3"
)

const testBucket = "studio-media"

type listContents struct {
	Key          string `xml:"Key"`
	Size         int64  `xml:"Size"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
}

type listResult struct {
	XMLName               xml.Name       `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListBucketResult"`
	Name                  string         `xml:"Name"`
	KeyCount              int            `xml:"KeyCount"`
	MaxKeys               int            `xml:"MaxKeys"`
	IsTruncated           bool           `xml:"IsTruncated"`
	NextContinuationToken string         `xml:"NextContinuationToken,omitempty"`
	Contents              []listContents `xml:"Contents"`
}

// fakeBucket 只实现 HEAD bucket 与 ListObjectsV2，足够驱动 Client.ListObjects.
type fakeBucket struct {
	objects map[string]int64
	denied  atomic.Bool
	lists   atomic.Int32
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.Trim(r.URL.Path, "/") != testBucket {
		w.WriteHeader(http.StatusNotFound)

		return
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)

		return
	}

	q := r.URL.Query()
	if q.Get("list-type") != "2" {
		w.WriteHeader(http.StatusNotImplemented)

		return
	}

	f.lists.Add(1)

	if f.denied.Load() {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`))

		return
	}

	after := q.Get("start-after")
	if token := q.Get("continuation-token"); token != "" {
		after = token
	}

	maxKeys, _ := strconv.Atoi(q.Get("max-keys"))
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if k > after && strings.HasPrefix(k, q.Get("prefix")) {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	res := listResult{Name: testBucket, MaxKeys: maxKeys}
	if len(keys) > maxKeys {
		keys = keys[:maxKeys]
		res.IsTruncated = true
		res.NextContinuationToken = keys[len(keys)-1]
	}

	for _, k := range keys {
		res.Contents = append(res.Contents, listContents{
			Key:          k,
			Size:         f.objects[k],
			LastModified: "2026-01-01T00:00:00.000Z",
			ETag:         `"etag"`,
		})
	}

	res.KeyCount = len(res.Contents)

	w.Header().Set("Content-Type", "application/xml")
	_ = xml.NewEncoder(w).Encode(res)
}

func newClient(t *testing.T, bucket *fakeBucket) *s3.Client {
	t.Helper()

	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cli, err := s3.New(ctx, &configs.S3Config{
		Endpoint:        srv.URL,
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		BucketName:      testBucket,
		Region:          configs.DefaultS3Region,
	})
	require.NoError(t, err)

	return cli
}

func TestListObjectsPagesWithStartAfter(t *testing.T) {
	cli := newClient(t, &fakeBucket{objects: map[string]int64{
		"gallery/a.jpg": 10,
		"gallery/b.jpg": 20,
		"gallery/c.jpg": 30,
		"photo/d.jpg":   40,
		"photo/e.jpg":   50,
	}})

	ctx := context.Background()

	first, err := cli.ListObjects(ctx, "", "", 2)
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "gallery/a.jpg", first.Items[0].Path)
	assert.Equal(t, int64(20), first.Items[1].SizeBytes)
	assert.Equal(t, "gallery/b.jpg", first.NextPageToken)

	second, err := cli.ListObjects(ctx, "", first.NextPageToken, 2)
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, "photo/d.jpg", second.NextPageToken)

	last, err := cli.ListObjects(ctx, "", second.NextPageToken, 2)
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "photo/e.jpg", last.Items[0].Path)
	assert.Empty(t, last.NextPageToken)
}

func TestListObjectsShortPageHasNoToken(t *testing.T) {
	cli := newClient(t, &fakeBucket{objects: map[string]int64{
		"gallery/a.jpg": 10,
		"photo/d.jpg":   40,
	}})

	page, err := cli.ListObjects(context.Background(), "photo/", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "photo/d.jpg", page.Items[0].Path)
	assert.Empty(t, page.NextPageToken)
}

func TestListObjectsReturnsListingError(t *testing.T) {
	bucket := &fakeBucket{objects: map[string]int64{"gallery/a.jpg": 10}}
	cli := newClient(t, bucket)

	bucket.denied.Store(true)

	_, err := cli.ListObjects(context.Background(), "", "", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list objects")
	assert.Positive(t, bucket.lists.Load())
}

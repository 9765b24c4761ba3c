package resource

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func TestRouterHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("a,b\n1,2\n"))
	}))
	defer srv.Close()

	router := NewRouter(5*time.Second, nil)
	data, err := router.Fetch(context.Background(), srv.URL+"/orders.csv")
	if err != nil || string(data) != "a,b\n1,2\n" {
		t.Fatalf("unexpected fetch result %q, %v", data, err)
	}

	_, err = router.Fetch(context.Background(), srv.URL+"/missing.csv")
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected UnavailableError, got %v", err)
	}
	if unavailable.URL != srv.URL+"/missing.csv" {
		t.Errorf("unexpected url %s", unavailable.URL)
	}
}

func TestRouterFileDecompression(t *testing.T) {
	dir := t.TempDir()
	want := []byte("customer_unique_id,geolocation_lat,geolocation_lng\n")

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write(want)
	zw.Close()
	gzPath := filepath.Join(dir, "geo.csv.gz")
	os.WriteFile(gzPath, gz.Bytes(), 0o644)

	enc, _ := zstd.NewWriter(nil)
	zstPath := filepath.Join(dir, "geo.csv.zst")
	os.WriteFile(zstPath, enc.EncodeAll(want, nil), 0o644)
	enc.Close()

	router := NewRouter(time.Second, nil)
	for _, path := range []string{gzPath, "file://" + zstPath} {
		data, err := router.Fetch(context.Background(), path)
		if err != nil {
			t.Fatalf("Fetch(%s): %v", path, err)
		}
		if !bytes.Equal(data, want) {
			t.Errorf("Fetch(%s): got %q", path, data)
		}
	}
}

func TestRouterErrors(t *testing.T) {
	router := NewRouter(time.Second, nil)
	cases := []string{
		"s3://bucket/key.csv",
		"ftp://host/file",
		filepath.Join(t.TempDir(), "nope.csv"),
	}
	for _, u := range cases {
		_, err := router.Fetch(context.Background(), u)
		var unavailable *UnavailableError
		if !errors.As(err, &unavailable) {
			t.Errorf("%s: expected UnavailableError, got %v", u, err)
		}
	}

	_, err := router.Fetch(context.Background(), "s3://bucket/key.csv")
	if !errors.Is(err, errNoS3) {
		t.Errorf("Expected errNoS3 to unwrap, got %v", err)
	}
}

type fakeS3 struct {
	objects map[string]string
	lastKey string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := *in.Bucket + "/" + *in.Key
	f.lastKey = key
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(body)))}, nil
}

func TestS3Provider(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"olist/data/all_df.csv": "order_id\n"}}
	router := &Router{S3: &S3Provider{client: fake}}

	data, err := router.Fetch(context.Background(), "s3://olist/data/all_df.csv")
	if err != nil || string(data) != "order_id\n" {
		t.Fatalf("unexpected result %q, %v", data, err)
	}
	if fake.lastKey != "olist/data/all_df.csv" {
		t.Errorf("unexpected key %s", fake.lastKey)
	}

	if _, err := router.Fetch(context.Background(), "s3://olist/missing"); err == nil {
		t.Fatal("Expected error for missing object")
	}
	if _, _, err := parseS3URL("s3://bucket/"); err == nil {
		t.Error("Expected error for missing key")
	}
}

func TestLoadImage(t *testing.T) {
	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 5)))
	path := filepath.Join(t.TempDir(), "map.png")
	os.WriteFile(path, buf.Bytes(), 0o644)

	img, err := LoadImage(context.Background(), FileProvider{}, path)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if b := img.Image().Bounds(); b.Dx() != 8 || b.Dy() != 5 || img.Format() != "png" {
		t.Errorf("unexpected image %v %s", b, img.Format())
	}

	bad := filepath.Join(t.TempDir(), "map.jpg")
	os.WriteFile(bad, []byte("not an image"), 0o644)
	_, err = LoadImage(context.Background(), FileProvider{}, bad)
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected UnavailableError for undecodable image, got %v", err)
	}
}

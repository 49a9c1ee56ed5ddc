package ingest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"testing"

	"golang.org/x/image/tiff"
)

// encodeImage produces a small raster in the requested format.
func encodeImage(t *testing.T, mimeType string, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	var buf bytes.Buffer
	var err error
	switch mimeType {
	case MimePNG:
		err = png.Encode(&buf, img)
	case MimeJPEG:
		err = jpeg.Encode(&buf, img, nil)
	case MimeTIFF:
		err = tiff.Encode(&buf, img, nil)
	default:
		t.Fatalf("no encoder for %s", mimeType)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", mimeType, err)
	}
	return buf.Bytes()
}

func TestIngestRaster(t *testing.T) {
	ing := New(Config{}, nil)

	for _, mime := range []string{MimePNG, MimeJPEG, MimeTIFF} {
		t.Run(mime, func(t *testing.T) {
			outDir := t.TempDir()
			doc, err := ing.Ingest(context.Background(), encodeImage(t, mime, 640, 480), mime, outDir)
			if err != nil {
				t.Fatalf("Ingest: %v", err)
			}
			if len(doc.Pages) != 1 {
				t.Fatalf("pages = %d, want 1", len(doc.Pages))
			}
			page := doc.Pages[0]
			if page.Number != 1 {
				t.Errorf("page number = %d, want 1", page.Number)
			}
			if page.Bounds.W != 640 || page.Bounds.H != 480 {
				t.Errorf("bounds = %+v, want 640x480", page.Bounds)
			}
			if len(page.VectorRuns) != 0 {
				t.Errorf("raster page carries %d vector runs", len(page.VectorRuns))
			}
			// Output is always PNG, whatever came in.
			data, err := os.ReadFile(page.ImagePath)
			if err != nil {
				t.Fatalf("read page image: %v", err)
			}
			if _, err := png.Decode(bytes.NewReader(data)); err != nil {
				t.Errorf("page image is not a valid png: %v", err)
			}
		})
	}
}

func TestIngestUnsupportedFormat(t *testing.T) {
	ing := New(Config{}, nil)
	_, err := ing.Ingest(context.Background(), []byte("GIF89a"), "image/gif", t.TempDir())
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestIngestCorruptFile(t *testing.T) {
	ing := New(Config{}, nil)

	t.Run("garbage bytes", func(t *testing.T) {
		_, err := ing.Ingest(context.Background(), []byte("not a png"), MimePNG, t.TempDir())
		if !errors.Is(err, ErrCorruptFile) {
			t.Errorf("err = %v, want ErrCorruptFile", err)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := ing.Ingest(context.Background(), nil, MimePNG, t.TempDir())
		if !errors.Is(err, ErrCorruptFile) {
			t.Errorf("err = %v, want ErrCorruptFile", err)
		}
	})

	t.Run("truncated png", func(t *testing.T) {
		data := encodeImage(t, MimePNG, 100, 100)
		_, err := ing.Ingest(context.Background(), data[:40], MimePNG, t.TempDir())
		if !errors.Is(err, ErrCorruptFile) {
			t.Errorf("err = %v, want ErrCorruptFile", err)
		}
	})
}

func TestIngestSizeLimits(t *testing.T) {
	t.Run("payload bytes", func(t *testing.T) {
		ing := New(Config{MaxBytes: 64}, nil)
		data := encodeImage(t, MimePNG, 100, 100)
		_, err := ing.Ingest(context.Background(), data, MimePNG, t.TempDir())
		if !errors.Is(err, ErrSizeLimit) {
			t.Errorf("err = %v, want ErrSizeLimit", err)
		}
	})

	t.Run("decoded pixels", func(t *testing.T) {
		ing := New(Config{MaxPixels: 1000}, nil)
		data := encodeImage(t, MimePNG, 100, 100)
		_, err := ing.Ingest(context.Background(), data, MimePNG, t.TempDir())
		if !errors.Is(err, ErrSizeLimit) {
			t.Errorf("err = %v, want ErrSizeLimit", err)
		}
	})
}

func TestIngestCancelled(t *testing.T) {
	ing := New(Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data := encodeImage(t, MimePNG, 100, 100)
	if _, err := ing.Ingest(ctx, data, MimePNG, t.TempDir()); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}

func TestPngBounds(t *testing.T) {
	data := encodeImage(t, MimePNG, 320, 200)
	bounds, err := pngBounds(data)
	if err != nil {
		t.Fatalf("pngBounds: %v", err)
	}
	if bounds.W != 320 || bounds.H != 200 {
		t.Errorf("bounds = %+v, want 320x200", bounds)
	}
}

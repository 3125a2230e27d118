// Package storage is the object store for user-uploaded images.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"inkd/internal/config"
	"inkd/internal/models"
	"inkd/internal/observability"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultDir         = "/tmp/inkd/storage"
	DefaultMaxUploadMB = 10
	ThumbnailMaxSize   = 640
	WebPQuality        = 70
	thumbSuffix        = ".thumb.webp"
)

// Bucket names a top-level storage namespace.
type Bucket string

const (
	BucketPosts     Bucket = "posts"
	BucketPortfolio Bucket = "portfolio"
	BucketAvatars   Bucket = "avatars"
)

// Valid reports whether b is a known bucket.
func (b Bucket) Valid() bool {
	switch b {
	case BucketPosts, BucketPortfolio, BucketAvatars:
		return true
	}
	return false
}

// UploadInput describes a file to store.
type UploadInput struct {
	Bucket   Bucket
	UserID   string
	Folder   string
	Filename string
	Content  []byte
}

// Object is a stored file.
type Object struct {
	Bucket       Bucket `json:"bucket"`
	Path         string `json:"path"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size"`
}

// Storage is what the containers and handlers need from an object store.
type Storage interface {
	Upload(ctx context.Context, in UploadInput) (*Object, error)
	Remove(ctx context.Context, bucket Bucket, paths ...string) error
	PublicURL(bucket Bucket, objectPath string) string
	Open(bucket Bucket, objectPath string) (io.ReadCloser, error)
}

// Disk stores objects under a local directory, one subdirectory per bucket.
type Disk struct {
	root       string
	publicBase string
	maxBytes   int64
	now        func() time.Time
}

// NewDisk builds a Disk store from config, applying defaults for empty values.
func NewDisk(cfg *config.Config) *Disk {
	root := DefaultDir
	publicBase := ""
	maxMB := DefaultMaxUploadMB
	if cfg != nil {
		if cfg.StorageDir != "" {
			root = cfg.StorageDir
		}
		publicBase = cfg.StoragePublicURL
		if cfg.StorageMaxUploadMB > 0 {
			maxMB = cfg.StorageMaxUploadMB
		}
	}
	return &Disk{
		root:       root,
		publicBase: strings.TrimRight(publicBase, "/"),
		maxBytes:   int64(maxMB) * 1024 * 1024,
		now:        time.Now,
	}
}

// Root is the directory objects are written under.
func (d *Disk) Root() string {
	return d.root
}

// Upload writes the content at <user>/<folder?>/<unix-ms>.<ext>. Existing objects
// are never overwritten; a clash moves the timestamp forward.
func (d *Disk) Upload(ctx context.Context, in UploadInput) (*Object, error) {
	ctx, span := observability.StartSpan(ctx, "storage", "upload")
	obj, err := d.upload(ctx, in)
	span.End(err)
	return obj, err
}

func (d *Disk) upload(ctx context.Context, in UploadInput) (*Object, error) {
	if !in.Bucket.Valid() {
		return nil, models.NewValidationError("Unknown bucket")
	}
	if !validSegment(in.UserID) {
		return nil, models.NewValidationError("Invalid user")
	}
	if in.Folder != "" && !validSegment(in.Folder) {
		return nil, models.NewValidationError("Invalid folder")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > d.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", d.maxBytes/(1024*1024)))
	}

	contentType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(contentType) {
		return nil, models.NewValidationError("Invalid image type")
	}
	ext := extensionFor(in.Filename, contentType)

	dir := in.UserID
	if in.Folder != "" {
		dir = path.Join(in.UserID, in.Folder)
	}

	ms := d.now().UnixMilli()
	var objectPath string
	for {
		if err := ctx.Err(); err != nil {
			return nil, models.NewNetworkError(err)
		}
		objectPath = path.Join(dir, strconv.FormatInt(ms, 10)+"."+ext)
		err := writeExclusive(d.fullPath(in.Bucket, objectPath), in.Content)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, models.NewInternalError(err)
		}
		ms++
	}
	observability.StorageBytes.WithLabelValues(string(in.Bucket)).Add(float64(len(in.Content)))

	obj := &Object{
		Bucket:      in.Bucket,
		Path:        objectPath,
		URL:         d.PublicURL(in.Bucket, objectPath),
		ContentType: contentType,
		Size:        int64(len(in.Content)),
	}

	if thumb, err := thumbnail(in.Content); err == nil {
		thumbPath := objectPath + thumbSuffix
		if werr := writeExclusive(d.fullPath(in.Bucket, thumbPath), thumb); werr == nil {
			obj.ThumbnailURL = d.PublicURL(in.Bucket, thumbPath)
			observability.StorageBytes.WithLabelValues(string(in.Bucket)).Add(float64(len(thumb)))
		}
	}
	return obj, nil
}

// Remove deletes objects and their thumbnails. Missing objects are ignored.
func (d *Disk) Remove(_ context.Context, bucket Bucket, paths ...string) error {
	if !bucket.Valid() {
		return models.NewValidationError("Unknown bucket")
	}
	for _, p := range paths {
		clean, ok := cleanObjectPath(p)
		if !ok {
			return models.NewValidationError("Invalid object path")
		}
		for _, target := range []string{clean, clean + thumbSuffix} {
			if err := os.Remove(d.fullPath(bucket, target)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return models.NewInternalError(err)
			}
		}
	}
	return nil
}

// PublicURL is <public_base>/<bucket>/<path>.
func (d *Disk) PublicURL(bucket Bucket, objectPath string) string {
	return d.publicBase + "/" + string(bucket) + "/" + strings.TrimPrefix(objectPath, "/")
}

// Open returns the object's content for serving.
func (d *Disk) Open(bucket Bucket, objectPath string) (io.ReadCloser, error) {
	if !bucket.Valid() {
		return nil, models.NewNotFoundError("Bucket", bucket)
	}
	clean, ok := cleanObjectPath(objectPath)
	if !ok {
		return nil, models.NewValidationError("Invalid object path")
	}
	// #nosec G304: path is confined to the bucket directory by cleanObjectPath
	f, err := os.Open(d.fullPath(bucket, clean))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.NewNotFoundError("Object", objectPath)
		}
		return nil, models.NewInternalError(err)
	}
	return f, nil
}

func (d *Disk) fullPath(bucket Bucket, objectPath string) string {
	return filepath.Join(d.root, string(bucket), filepath.FromSlash(objectPath))
}

// cleanObjectPath rejects absolute paths and any ".." segment. Object paths
// are always built from validated segments, so none can legitimately climb.
func cleanObjectPath(p string) (string, bool) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", false
		}
	}
	clean := path.Clean(p)
	if clean == "." {
		return "", false
	}
	return clean, true
}

// OwnedBy reports whether objectPath is a valid path inside userID's prefix.
// The check runs on the cleaned path, the same one Remove and Open act on.
func OwnedBy(userID, objectPath string) bool {
	if !validSegment(userID) {
		return false
	}
	clean, ok := cleanObjectPath(objectPath)
	return ok && strings.HasPrefix(clean, userID+"/")
}

func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." || len(s) > 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

func writeExclusive(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	// #nosec G304: p is built from validated segments
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return err
	}
	return f.Close()
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

// extensionFor keeps the original extension when it agrees with the sniffed type.
func extensionFor(filename, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch contentType {
	case "image/jpeg":
		if ext == "jpg" || ext == "jpeg" {
			return ext
		}
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	}
	return "bin"
}

// thumbnail decodes content and encodes a WebP no larger than ThumbnailMaxSize.
func thumbnail(content []byte) ([]byte, error) {
	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	resized := resizeToFit(decoded, ThumbnailMaxSize, ThumbnailMaxSize)
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, resized, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

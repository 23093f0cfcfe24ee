package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"quill/internal/config"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaRoot            = "media"
	DefaultImageMaxUploadSizeMB = 10
	// PostImageDir is the media-relative directory of post images.
	PostImageDir    = "posts"
	ThumbnailWidth  = 960
	ThumbnailHeight = 339
	WebPQuality     = 70
	suffixLength    = 7
)

// ErrInvalidImage is returned for uploads that are not a decodable GIF, PNG, JPEG or WEBP.
var ErrInvalidImage = errors.New("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")

var unsafeFilenameChars = regexp.MustCompile(`[^-\w.]`)

// ImageUpload is a file received from a form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// StoredImage describes a saved post image by media-relative paths.
type StoredImage struct {
	Path      string
	Thumbnail string
	Width     int
	Height    int
}

// ImageStore saves post images. PostService depends on this instead of the filesystem.
type ImageStore interface {
	Check(content []byte) error
	Save(ctx context.Context, in ImageUpload) (*StoredImage, error)
	Remove(ctx context.Context, stored *StoredImage) error
}

type ImageService struct {
	mediaRoot          string
	maxUploadSizeBytes int64
	suffix             func() string
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaRoot := DefaultMediaRoot
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.MediaRoot != "" {
			mediaRoot = cfg.MediaRoot
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &ImageService{
		mediaRoot:          mediaRoot,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		suffix:             randomSuffix,
	}
}

// MediaRoot returns the directory uploaded files live under.
func (s *ImageService) MediaRoot() string {
	return s.mediaRoot
}

// MaxUploadSize returns the upload limit in bytes.
func (s *ImageService) MaxUploadSize() int64 {
	return s.maxUploadSizeBytes
}

// Check validates content by sniffing and decoding it.
func (s *ImageService) Check(content []byte) error {
	_, _, err := s.decode(content)
	return err
}

func (s *ImageService) decode(content []byte) (image.Image, string, error) {
	if len(content) == 0 {
		return nil, "", ErrInvalidImage
	}
	if int64(len(content)) > s.maxUploadSizeBytes {
		return nil, "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}
	if !isAllowedImageMIME(http.DetectContentType(content)) {
		return nil, "", ErrInvalidImage
	}
	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil || !isSupportedDecodedFormat(format) {
		return nil, "", ErrInvalidImage
	}
	return decoded, format, nil
}

// Save writes the upload under MEDIA_ROOT/posts and a webp thumbnail under posts/thumbs.
func (s *ImageService) Save(ctx context.Context, in ImageUpload) (*StoredImage, error) {
	span, ctx := observability.NewSpan(ctx, "ImageService.Save", attribute.Int("image.bytes", len(in.Content)))
	defer span.End()

	decoded, format, err := s.decode(in.Content)
	if err != nil {
		span.SetError(err)
		if errors.Is(err, ErrInvalidImage) {
			return nil, models.NewValidationError(err.Error())
		}
		return nil, err
	}
	span.AddAttributes(attribute.String("image.format", format))

	name := SanitizeFilename(in.Filename, format)
	rel, err := s.reserve(name, in.Content)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}

	thumb, err := encodeWebP(cropFill(decoded, ThumbnailWidth, ThumbnailHeight), WebPQuality)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "Thumbnail encoding failed", "image", rel, "error", err)
		return &StoredImage{Path: rel, Width: decoded.Bounds().Dx(), Height: decoded.Bounds().Dy()}, nil
	}
	thumbRel := models.ThumbnailPathFor(rel)
	if err := writeBytesToFile(s.abs(thumbRel), thumb); err != nil {
		middleware.Logger.WarnContext(ctx, "Thumbnail write failed", "image", rel, "error", err)
		thumbRel = ""
	}

	b := decoded.Bounds()
	return &StoredImage{Path: rel, Thumbnail: thumbRel, Width: b.Dx(), Height: b.Dy()}, nil
}

// Remove deletes a saved image and its thumbnail. Files that are already gone are ignored.
func (s *ImageService) Remove(ctx context.Context, stored *StoredImage) error {
	if stored == nil {
		return nil
	}
	var errs []error
	for _, rel := range []string{stored.Path, stored.Thumbnail} {
		if rel == "" {
			continue
		}
		if err := os.Remove(s.abs(rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		middleware.Logger.WarnContext(ctx, "Failed to remove stored image", "image", stored.Path, "error", err)
		return err
	}
	return nil
}

// reserve writes content to posts/<name>, picking a suffixed name if it is taken.
func (s *ImageService) reserve(name string, content []byte) (string, error) {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for attempt := 0; attempt < 10; attempt++ {
		rel := path.Join(PostImageDir, candidate)
		err := writeNewFile(s.abs(rel), content)
		if err == nil {
			return rel, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
		candidate = stem + "_" + s.suffix() + ext
	}
	return "", fmt.Errorf("no free file name for %s", name)
}

func (s *ImageService) abs(rel string) string {
	return filepath.Join(s.mediaRoot, filepath.FromSlash(rel))
}

// SanitizeFilename keeps the base name, replaces spaces with underscores and drops anything
// outside [-\w.]. A name without a usable extension gets one from the decoded format.
func SanitizeFilename(filename, format string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "image"
	}
	if path.Ext(name) == "" {
		name += "." + extensionFor(format)
	}
	return name
}

func extensionFor(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "jpg"
	case "":
		return "img"
	default:
		return strings.ToLower(format)
	}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLength]
}

// cropFill scales src to cover w x h and crops the center.
func cropFill(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw <= 0 || sh <= 0 {
		return src
	}
	scale := float64(w) / float64(sw)
	if s := float64(h) / float64(sh); s > scale {
		scale = s
	}
	scaledW := max(int(float64(sw)*scale+0.5), w)
	scaledH := max(int(float64(sh)*scale+0.5), h)

	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, b, xdraw.Over, nil)
	return cropToRect(scaled, (scaledW-w)/2, (scaledH-h)/2, w, h)
}

func cropToRect(src image.Image, x, y, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// writeNewFile fails with fs.ErrExist instead of overwriting.
func writeNewFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	// #nosec G304: path is built from a sanitized file name under the media root
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}


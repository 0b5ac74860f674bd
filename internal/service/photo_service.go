package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"skillswap/internal/featureflags"
	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
	"skillswap/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	DefaultPhotoMaxUploadMB = 5
	PhotoSize               = 512
	PhotoWebPQuality        = 80
)

// PhotoUploadInput is one multipart profile photo.
type PhotoUploadInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// PhotoService normalizes profile photos and keeps user.profile_photo in sync with the store.
type PhotoService struct {
	users    repository.UserRepository
	store    storage.PhotoStore
	flags    *featureflags.Manager
	maxBytes int64
}

func NewPhotoService(users repository.UserRepository, store storage.PhotoStore, flags *featureflags.Manager, maxUploadMB int) *PhotoService {
	if maxUploadMB <= 0 {
		maxUploadMB = DefaultPhotoMaxUploadMB
	}
	return &PhotoService{
		users:    users,
		store:    store,
		flags:    flags,
		maxBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// MaxBytes is the largest accepted upload.
func (s *PhotoService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload stores a square WebP rendition and points the user's profile at it.
func (s *PhotoService) Upload(ctx context.Context, userID uint, in PhotoUploadInput) (user *models.User, err error) {
	result := "error"
	defer func() {
		if err == nil {
			result = "ok"
		}
		observability.PhotoUploads.WithLabelValues(s.store.Name(), result).Inc()
	}()

	if s.flags != nil {
		if err := s.flags.Require(featureflags.PhotoUpload, userID); err != nil {
			result = "disabled"
			return nil, err
		}
	}

	encoded, err := s.normalize(in)
	if err != nil {
		result = "rejected"
		return nil, err
	}

	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := photoKey(userID, encoded)
	url, err := s.store.Put(ctx, key, encoded, "image/webp")
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{"profile_photo": url}); err != nil {
		_ = s.store.Delete(ctx, key)
		return nil, err
	}

	if current.ProfilePhoto != nil && *current.ProfilePhoto != url {
		s.deleteObject(ctx, *current.ProfilePhoto)
	}
	current.ProfilePhoto = &url
	return current, nil
}

// Remove deletes the stored photo and clears the field.
func (s *PhotoService) Remove(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ProfilePhoto == nil {
		return nil, models.NewNotFoundMessage("Profile photo not found")
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{"profile_photo": nil}); err != nil {
		return nil, err
	}
	s.deleteObject(ctx, *user.ProfilePhoto)
	user.ProfilePhoto = nil
	return user, nil
}

// deleteObject removes a previous upload. Foreign URLs and store failures are logged, not returned.
func (s *PhotoService) deleteObject(ctx context.Context, url string) {
	key, ok := s.store.KeyFromURL(url)
	if !ok {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to delete previous profile photo",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PhotoService) normalize(in PhotoUploadInput) ([]byte, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	detected := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detected) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") &&
		!isMatchingContentType(provided, decodedFormatToMime(format)) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	square := resizeSquare(cropCenterSquare(decoded), PhotoSize)
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, square, &webp.Options{Quality: PhotoWebPQuality}); err != nil {
		return nil, models.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

func photoKey(userID uint, content []byte) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf("profiles/%d/%s.webp", userID, hex.EncodeToString(sum[:16]))
}

func cropCenterSquare(src image.Image) image.Image {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	if side <= 0 {
		return src
	}
	origin := image.Point{X: b.Min.X + (b.Dx()-side)/2, Y: b.Min.Y + (b.Dy()-side)/2}
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(dst, dst.Bounds(), src, origin, draw.Src)
	return dst
}

// resizeSquare scales down to size; smaller images are kept as is.
func resizeSquare(src image.Image, size int) image.Image {
	b := src.Bounds()
	if b.Dx() <= size {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
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

func isMatchingContentType(provided, detected string) bool {
	if provided == detected {
		return true
	}
	return (provided == "image/jpg" && detected == "image/jpeg") || (provided == "image/jpeg" && detected == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

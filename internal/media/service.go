package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/bookedbarber/bookedbarber-api/internal/config"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
)

const (
	maxUploadBytes = 5 << 20 // 5 MiB
	maxDimension   = 512
	webpQuality    = 85
)

// Service normalizes uploaded images (shop logos, barber avatars) into
// bounded webp files on S3. Everything is re-encoded; we never store client
// bytes as-is.
type Service struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

func NewService(ctx context.Context, cfg config.MediaConfig) (*Service, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("media: aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true // minio and friends
		}
	})

	publicBase := cfg.PublicBase
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	}

	return &Service{
		client:     client,
		bucket:     cfg.S3Bucket,
		publicBase: publicBase,
	}, nil
}

// Upload reads, bounds, re-encodes and stores one image. The key is
// namespaced per shop so a tenant export can prefix-list its files.
func (s *Service) Upload(ctx context.Context, barbershopID uint, kind string, r io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxUploadBytes+1))
	if err != nil {
		return "", err
	}
	if len(raw) > maxUploadBytes {
		return "", httperr.ErrBusiness("image_too_large")
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", httperr.ErrBusiness("unsupported_image")
	}

	resized := bound(src, maxDimension)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, resized, &webp.Options{Quality: webpQuality}); err != nil {
		return "", fmt.Errorf("media: webp encode: %w", err)
	}

	key := fmt.Sprintf("shops/%d/%s/%s.webp", barbershopID, kind, uuid.NewString())

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(buf.Bytes()),
		ContentType:  aws.String("image/webp"),
		CacheControl: aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", fmt.Errorf("media: put object: %w", err)
	}

	return fmt.Sprintf("%s/%s", s.publicBase, key), nil
}

// bound scales the image down so neither side exceeds max, preserving the
// aspect ratio. Images already inside the box pass through untouched.
func bound(src image.Image, max int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return src
	}

	ratio := float64(max) / float64(w)
	if h > w {
		ratio = float64(max) / float64(h)
	}
	nw := int(float64(w) * ratio)
	nh := int(float64(h) * ratio)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxAudioFileSize is the largest voice note accepted (25MB).
	MaxAudioFileSize = 25 * 1024 * 1024
	// FolderAudio is the S3 prefix for voice notes.
	FolderAudio = "audio"
)

// ErrUnsupportedAudio is returned for files that are not a known audio type.
var ErrUnsupportedAudio = errors.New("unsupported audio file type")

// Allowed audio MIME types and extensions.
var (
	AllowedAudioTypes = map[string]string{
		"audio/mpeg":  ".mp3",
		"audio/mp4":   ".m4a",
		"audio/x-m4a": ".m4a",
		"audio/aac":   ".aac",
		"audio/wav":   ".wav",
		"audio/x-wav": ".wav",
		"audio/webm":  ".webm",
		"audio/ogg":   ".ogg",
	}
	AllowedAudioExtensions = map[string]string{
		".mp3":  "audio/mpeg",
		".m4a":  "audio/mp4",
		".aac":  "audio/aac",
		".wav":  "audio/wav",
		".webm": "audio/webm",
		".ogg":  "audio/ogg",
	}
)

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	AudioBucket          string
	PresignExpireMinutes int
}

// S3 stores lead voice notes and signs download URLs for them.
type S3 struct {
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config, the environment
// or the default credential chain.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AudioBucket == "" {
		return nil, errors.New("audio bucket is not configured")
	}
	accessKey, secretKey := cfg.AccessKeyID, cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	} else {
		logger.Warn("S3 client using default credential chain")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	logger.Info("audio storage ready", zap.String("region", cfg.Region), zap.String("bucket", cfg.AudioBucket))
	return &S3{
		client:  client,
		presign: s3.NewPresignClient(client),
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = 5 * 1024 * 1024
		}),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// ValidateAudioFileType reports whether the content type or extension is an allowed audio type.
func ValidateAudioFileType(contentType, filename string) bool {
	if ct := strings.ToLower(strings.TrimSpace(contentType)); ct != "" {
		if i := strings.IndexByte(ct, ';'); i >= 0 {
			ct = strings.TrimSpace(ct[:i])
		}
		if _, ok := AllowedAudioTypes[ct]; ok {
			return true
		}
	}
	_, ok := AllowedAudioExtensions[strings.ToLower(path.Ext(filename))]
	return ok
}

// ContentTypeForFilename returns the MIME type for an audio filename.
func ContentTypeForFilename(filename string) string {
	if ct, ok := AllowedAudioExtensions[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// AudioKey returns the object key audio/{company_id}/{lead_id}/{file}.
func AudioKey(companyID, leadID, file string) string {
	return path.Join(FolderAudio, companyID, leadID, path.Base(file))
}

// IsAudioKey reports whether uri is an object key in the audio folder rather
// than an external URL or a device-local path.
func IsAudioKey(uri string) bool {
	return strings.HasPrefix(uri, FolderAudio+"/") && !strings.Contains(uri, "..")
}

// UploadAudio stores a voice note for the lead and returns its object key.
// The stored file name is random; only the extension of filename is kept.
func (s *S3) UploadAudio(ctx context.Context, companyID, leadID, filename, contentType string, body io.Reader, size int64) (string, error) {
	if !ValidateAudioFileType(contentType, filename) {
		return "", ErrUnsupportedAudio
	}
	if size > MaxAudioFileSize {
		return "", fmt.Errorf("audio file is larger than %d bytes", MaxAudioFileSize)
	}
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := AllowedAudioExtensions[ext]; !ok {
		ext = AllowedAudioTypes[strings.ToLower(contentType)]
	}
	if contentType == "" {
		contentType = ContentTypeForFilename(filename)
	}
	key := AudioKey(companyID, leadID, uuid.NewString()+ext)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AudioBucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	s.logger.Debug("audio uploaded", zap.String("key", key), zap.Int64("size", size))
	return key, nil
}

// PresignAudio returns a time-limited GET URL for key.
func (s *S3) PresignAudio(ctx context.Context, key string) (string, error) {
	if !IsAudioKey(key) {
		return "", fmt.Errorf("not an audio object key: %q", key)
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.AudioBucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.PresignExpire()
	})
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// DeleteAudio removes a voice note.
func (s *S3) DeleteAudio(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.AudioBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete audio: %w", err)
	}
	return nil
}

// PresignExpire returns the configured presign duration.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

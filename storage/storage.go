// Package storage implements liftcheck.FileStorage on local disk and S3.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dukerupert/liftcheck"
)

// New creates a file storage instance based on the provider configuration.
func New(ctx context.Context, logger *slog.Logger, cfg liftcheck.StorageConfig) (liftcheck.FileStorage, error) {
	switch cfg.Provider {
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires a bucket")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		logger.Info("initialized S3 storage",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region))
		return NewS3(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Region, cfg.S3BaseURL), nil
	case "local", "":
		s, err := NewLocal(cfg.LocalPath, cfg.LocalURL)
		if err != nil {
			return nil, err
		}
		logger.Info("initialized local storage",
			slog.String("path", cfg.LocalPath),
			slog.String("url", cfg.LocalURL))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// cleanKey normalizes a storage key and rejects keys that escape the root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return k, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

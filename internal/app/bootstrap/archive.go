package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/intake-ai-platform/internal/archive"
	appconfig "github.com/wolfman30/intake-ai-platform/internal/config"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

// BuildArchiver returns an S3-backed transcript archiver, or a disabled one without ARCHIVE_BUCKET.
func BuildArchiver(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) *archive.Archiver {
	bucket := strings.TrimSpace(cfg.ArchiveBucket)
	if bucket == "" {
		logger.Info("ARCHIVE_BUCKET not set; transcript archival disabled")
		return archive.NewArchiver(nil, logger)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// LocalStack and MinIO only serve path-style requests.
		o.UsePathStyle = strings.TrimSpace(cfg.AWSEndpointOverride) != ""
	})
	logger.Info("transcript archival enabled", "bucket", bucket)
	return archive.NewArchiver(archive.NewStore(client, bucket, logger), logger)
}

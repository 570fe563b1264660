package vendors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/config"
	"github.com/Octopus-Moneycoach/coaching-ai/log"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
)

// CaseCheckSchemaVersion is the version segment of archived object names
const CaseCheckSchemaVersion = "1.2"

var (
	ossArchiver     *OSSArchiver
	ossArchiverOnce sync.Once
	ossLogger       = log.GetLogger("OSS")
)

// OSSArchiver stores finished case checks in an Aliyun OSS bucket
type OSSArchiver struct {
	client *oss.Client
	bucket string
	prefix string
}

// GetOSSArchiver returns the singleton archiver, or nil when credentials are missing
func GetOSSArchiver() *OSSArchiver {
	ossArchiverOnce.Do(func() {
		cfg := config.Get()
		if cfg.OSSBucket == "" || cfg.OSSAccessKeyID == "" || cfg.OSSAccessKeySecret == "" {
			ossLogger.Warn().Msg("OSS credentials not configured, archiving disabled")
			return
		}

		region := cfg.OSSRegion
		if region == "" {
			region = "cn-beijing"
		}

		credProvider := credentials.NewStaticCredentialsProvider(cfg.OSSAccessKeyID, cfg.OSSAccessKeySecret)
		ossCfg := oss.LoadDefaultConfig().
			WithCredentialsProvider(credProvider).
			WithRegion(region)

		ossArchiver = &OSSArchiver{
			client: oss.NewClient(ossCfg),
			bucket: cfg.OSSBucket,
			prefix: cfg.OSSPrefix,
		}
		ossLogger.Info().Str("region", region).Str("bucket", cfg.OSSBucket).Msg("OSS initialized")
	})

	return ossArchiver
}

// ArchiveKey returns {prefix}/{yyyy}/{mm}/{meetingId}/case_check.v{version}.json
func ArchiveKey(prefix, meetingID string, at time.Time) string {
	at = at.UTC()
	return path.Join(
		prefix,
		fmt.Sprintf("%04d", at.Year()),
		fmt.Sprintf("%02d", int(at.Month())),
		meetingID,
		"case_check.v"+CaseCheckSchemaVersion+".json",
	)
}

// Archive uploads doc as JSON and returns the object key
func (a *OSSArchiver) Archive(ctx context.Context, meetingID string, at time.Time, doc any) (string, error) {
	if a == nil {
		return "", ErrDisabled
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal case check: %w", err)
	}

	key := ArchiveKey(a.prefix, meetingID, at)
	_, err = a.client.PutObject(ctx, &oss.PutObjectRequest{
		Bucket:      oss.Ptr(a.bucket),
		Key:         oss.Ptr(key),
		ContentType: oss.Ptr("application/json"),
		Body:        bytes.NewReader(body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to OSS: %w", err)
	}

	ossLogger.Info().Str("meetingId", meetingID).Str("key", key).Msg("archived case check")
	return key, nil
}

// Fetch downloads an archived object
func (a *OSSArchiver) Fetch(ctx context.Context, key string) ([]byte, error) {
	if a == nil {
		return nil, ErrDisabled
	}

	result, err := a.client.GetObject(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(a.bucket),
		Key:    oss.Ptr(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from OSS: %w", err)
	}
	defer result.Body.Close()

	return io.ReadAll(result.Body)
}

// Package storage 提供了与对象存储服务（MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"swiftshare-go/internal/config"
	"swiftshare-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// simulatedContent 是上传时写入对象存储的占位内容。
// 本服务只负责元数据与分享生命周期，真实的字节级传输不在范围内。
var simulatedContent = []byte("Simulated file content")

// presignExpiry 是下载链接的有效期。
const presignExpiry = time.Hour

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(cfg config.MinIOConfig) {
	var err error

	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatal("初始化 MinIO 客户端失败", err)
	}

	log.Info("MinIO 客户端初始化成功")

	ctx := context.Background()
	bucketName := cfg.BucketName
	exists, err := MinioClient.BucketExists(ctx, bucketName)
	if err != nil {
		log.Fatal("检查 MinIO 存储桶失败", err)
	}

	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", bucketName)
		err = MinioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
		if err != nil {
			log.Fatal("创建 MinIO 存储桶失败", err)
		}
		log.Infof("存储桶 '%s' 创建成功", bucketName)
	} else {
		log.Infof("存储桶 '%s' 已存在", bucketName)
	}
}

// ContentStore 基于 MinIO 实现内容存取：上传时写入占位对象，
// 下载时签发临时 URL，由浏览器直接从对象存储取回字节。
type ContentStore struct {
	bucket string
}

// NewContentStore 创建一个绑定到指定存储桶的 ContentStore。
func NewContentStore(cfg config.MinIOConfig) *ContentStore {
	return &ContentStore{bucket: cfg.BucketName}
}

// objectName 将记录中的 filePath（形如 /uploads/<slug>_<name>）转换为对象键。
func objectName(filePath string) string {
	return strings.TrimPrefix(filePath, "/")
}

// Put 在 filePath 处写入模拟内容对象，并携带原始文件的内容类型。
func (s *ContentStore) Put(ctx context.Context, filePath, fileName, fileType string) error {
	opts := minio.PutObjectOptions{ContentType: fileType}
	if fileType == "" {
		opts.ContentType = "application/octet-stream"
	}
	_, err := MinioClient.PutObject(ctx, s.bucket, objectName(filePath),
		bytes.NewReader(simulatedContent), int64(len(simulatedContent)), opts)
	return err
}

// PresignDownloadURL 为 filePath 对应的对象签发下载 URL，
// 带 Content-Disposition 让浏览器以原始文件名保存。
func (s *ContentStore) PresignDownloadURL(ctx context.Context, filePath, fileName string) (string, error) {
	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	presignedURL, err := MinioClient.PresignedGetObject(ctx, s.bucket, objectName(filePath), presignExpiry, reqParams)
	if err != nil {
		log.Errorf("生成预签名下载 URL 失败: %s", err)
		return "", err
	}
	return presignedURL.String(), nil
}

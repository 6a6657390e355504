package uploader

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"sofra_market/internal/pkg/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
)

type Uploader interface {
	UploadFile(file *multipart.FileHeader) (string, error)
}

// AliyunOSSUploader 菜品图片、头像等静态资源上传到 OSS
type AliyunOSSUploader struct {
	client *oss.Client
	bucket *oss.Bucket
	config config.OSSConfig
}

func NewAliyunOSSUploader() (*AliyunOSSUploader, error) {
	cfg := config.GlobalConfig.OSS
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, err
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, err
	}

	return &AliyunOSSUploader{
		client: client,
		bucket: bucket,
		config: cfg,
	}, nil
}

func (u *AliyunOSSUploader) UploadFile(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	// 对象键: market/YYYYMM/uuid.ext，按月归档
	ext := filepath.Ext(file.Filename)
	key := fmt.Sprintf("market/%s/%s%s", time.Now().Format("200601"), uuid.NewString(), ext)

	if err := u.bucket.PutObject(key, src); err != nil {
		return "", err
	}

	// Bucket 为公共读，直接拼外链；私有桶需要改成签名 URL
	url := fmt.Sprintf("https://%s.%s/%s", u.config.BucketName, u.config.Endpoint, key)
	return url, nil
}

// GlobalUploader instance
var GlobalUploader Uploader

func InitUploader() error {
	uploader, err := NewAliyunOSSUploader()
	if err != nil {
		return err
	}
	GlobalUploader = uploader
	return nil
}

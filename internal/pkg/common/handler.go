package common

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"sofra_market/internal/pkg/uploader"
	"sofra_market/pkg/response"

	"github.com/gin-gonic/gin"
)

// 菜品/作品图片上传限制
const (
	maxUploadFiles    = 6
	maxUploadSize     = 5 << 20 // 5MB
	uploadConcurrency = 5
)

var allowedImageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UploadImages 上传图片 (支持批量，菜品图/作品集)
// @Summary 上传图片到 OSS (支持批量)
// @Tags Common
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Image files"
// @Success 200 {object} response.Response{data=[]string} "URLs"
// @Router /upload [post]
func UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "invalid form data")
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "no files uploaded")
		return
	}
	if len(files) > maxUploadFiles {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "too many files")
		return
	}
	for _, f := range files {
		if f.Size > maxUploadSize {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "file too large: "+f.Filename)
			return
		}
		ext := strings.ToLower(filepath.Ext(f.Filename))
		if !allowedImageExt[ext] {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "unsupported file type: "+f.Filename)
			return
		}
	}

	if uploader.GlobalUploader == nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "uploader not initialized")
		return
	}

	// 按索引写入保证返回顺序与上传顺序一致
	urls := make([]string, len(files))

	var wg sync.WaitGroup
	var errOnce sync.Once
	var uploadErr error

	sem := make(chan struct{}, uploadConcurrency)

	for i, file := range files {
		wg.Add(1)
		go func(index int, f *multipart.FileHeader) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if uploadErr != nil {
				return
			}

			url, err := uploader.GlobalUploader.UploadFile(f)
			if err != nil {
				errOnce.Do(func() {
					uploadErr = err
				})
				return
			}

			urls[index] = url
		}(i, file)
	}

	wg.Wait()

	if uploadErr != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "upload failed: "+uploadErr.Error())
		return
	}

	response.Success(c, urls)
}

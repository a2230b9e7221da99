package handle

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/studiovault/pkg/internal/model"
	"github.com/yeisme/studiovault/pkg/internal/service"
	"github.com/yeisme/studiovault/pkg/internal/types"
	"github.com/yeisme/studiovault/pkg/middleware"
)

// UploadMedia multipart 上传，表单字段: file, kind, folder.
//
//	@Summary		上传媒体文件
//	@Description	预检配额后写入对象存储并记账；记账失败时删除已写入的对象
//	@Tags			媒体
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file						true	"媒体文件"
//	@Param			kind	formData	string						true	"用途: profile, gallery, photo, film, testimonial, about"
//	@Param			folder	formData	string						false	"子目录"
//	@Success		201		{object}	types.UploadMediaResponse	"上传结果"
//	@Failure		400		{object}	map[string]any				"参数错误或不支持的媒体类型"
//	@Failure		413		{object}	map[string]string			"文件过大"
//	@Failure		429		{object}	types.QuotaErrorResponse	"当日上传次数已满"
//	@Failure		507		{object}	types.QuotaErrorResponse	"存储空间不足"
//	@Router			/api/v1/media/upload [post]
func UploadMedia(c *gin.Context) {
	var req types.UploadMediaRequest
	if !bind(c, &req) {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		respondUploadFormError(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	resp, err := service.NewMediaService(c.Request.Context()).Upload(c.Request.Context(), service.UploadInput{
		Kind:   model.AssetKind(req.Kind),
		Folder: req.Folder,
		Source: service.Source{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func respondUploadFormError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		respondError(c, err)
		return
	}

	msg := "file is required"
	if !errors.Is(err, http.ErrMissingFile) {
		msg = "multipart form with a file field is required"
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// DeleteMedia 删除单个对象，账本扣减失败时仍返回 200，ledger_updated=false.
//
//	@Summary	删除媒体文件
//	@Tags		媒体
//	@Produce	json
//	@Param		key	query		string						true	"对象键"
//	@Success	200	{object}	types.DeleteMediaResponse	"删除结果"
//	@Failure	400	{object}	map[string]any				"参数错误"
//	@Failure	404	{object}	map[string]string			"对象不存在"
//	@Router		/api/v1/media [delete]
func DeleteMedia(c *gin.Context) {
	var req types.DeleteMediaRequest
	if !bind(c, &req) {
		return
	}

	resp, err := service.NewMediaService(c.Request.Context()).Delete(c.Request.Context(), req.Key)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteMediaFolder 删除前缀下全部对象.
//
//	@Summary	按前缀删除
//	@Tags		媒体
//	@Produce	json
//	@Param		prefix	query		string						true	"对象键前缀"
//	@Success	200		{object}	types.DeleteFolderResponse	"删除结果"
//	@Success	207		{object}	map[string]any				"部分删除，result 为已删除部分"
//	@Failure	400		{object}	map[string]any				"参数错误"
//	@Router		/api/v1/media/folder [delete]
func DeleteMediaFolder(c *gin.Context) {
	var req types.DeleteFolderRequest
	if !bind(c, &req) {
		return
	}

	resp, err := service.NewMediaService(c.Request.Context()).DeleteFolder(c.Request.Context(), req.Prefix)
	if err != nil {
		if resp != nil && resp.Deleted > 0 {
			// 部分删除：已删除部分已经记账
			c.JSON(http.StatusMultiStatus, gin.H{"result": resp, "error": err.Error()})
			return
		}

		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// MediaURL 获取预签名读取链接.
//
//	@Summary	获取读取链接
//	@Tags		媒体
//	@Produce	json
//	@Param		key		query		string					true	"对象键"
//	@Param		expiry	query		string					false	"有效期，如 15m"
//	@Success	200		{object}	types.MediaURLResponse	"读取链接"
//	@Failure	400		{object}	map[string]any			"参数错误"
//	@Failure	404		{object}	map[string]string		"对象不存在"
//	@Router		/api/v1/media/url [get]
func MediaURL(c *gin.Context) {
	var req types.MediaURLRequest
	if !bind(c, &req) {
		return
	}

	var expiry time.Duration

	if req.Expiry != "" {
		d, err := time.ParseDuration(req.Expiry)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expiry, use a duration such as 15m"})
			return
		}

		expiry = d
	}

	resp, err := service.NewMediaService(c.Request.Context()).ReadURL(c.Request.Context(), req.Key, expiry)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

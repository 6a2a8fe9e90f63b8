package routes

import (
	"errors"
	"net/http"
	"strings"

	"manuals-backend/internal/logger"
	"manuals-backend/middleware"
	"manuals-backend/services"
	"manuals-backend/utils"

	"github.com/gin-gonic/gin"
)

func SetupUploadRoutes(router *gin.Engine, ingestion *services.IngestionService) {
	router.POST("/upload_pdf/", handleUploadPDF(ingestion))
	router.GET("/get_uploaded_files/", handleGetUploadedFiles(ingestion))
	router.POST("/remove_file/", handleRemoveFile(ingestion))
}

func handleUploadPDF(ingestion *services.IngestionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				middleware.RespondBodyTooLarge(c, tooLarge.Limit)
				return
			}
			utils.RespondWithBadRequest(c, "file is required")
			return
		}

		src, err := file.Open()
		if err != nil {
			utils.RespondWithInternalError(c, "failed to open uploaded file: "+err.Error())
			return
		}
		defer src.Close()

		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		resp, err := ingestion.Ingest(ctx, services.UploadRequest{
			File:        src,
			Filename:    file.Filename,
			CompanyName: c.PostForm("company_name"),
			ProductName: c.PostForm("product_name"),
			ProductCode: c.PostForm("product_code"),
		})
		if err != nil {
			logger.Error("Upload failed", "request_id", middleware.GetRequestID(c), "filename", file.Filename, "error", err)
			utils.RespondWithServiceError[*services.ValidationError](c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

func handleGetUploadedFiles(ingestion *services.IngestionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		files, err := ingestion.Files(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"files": files})
	}
}

func handleRemoveFile(ingestion *services.IngestionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Query("file_name")
		if name == "" {
			name = c.PostForm("file_name")
		}
		if strings.TrimSpace(name) == "" {
			utils.RespondWithBadRequest(c, "file_name is required")
			return
		}

		resp, err := ingestion.Remove(c.Request.Context(), name)
		if err != nil {
			utils.RespondWithServiceError[*services.ValidationError](c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

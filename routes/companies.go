package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"unicode"

	"manuals-backend/services"
	"manuals-backend/utils"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func SetupCompanyRoutes(router *gin.Engine, catalog *services.CatalogService, export *services.ExportService) {
	companies := router.Group("/companies")
	{
		companies.GET("/", handleListCompanies(catalog))
		companies.GET("/current/", handleCurrentCompany(catalog))
		companies.GET("/:company/models/", handleListModels(catalog))
		companies.GET("/:company/models/export", handleExportModels(export))
	}
}

func handleListCompanies(catalog *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		companies, err := catalog.Companies(ctx)
		if err != nil {
			utils.RespondWithInternalError(c, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"companies": companies})
	}
}

func handleCurrentCompany(catalog *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		company, err := catalog.CurrentCompany(ctx)
		if err != nil {
			utils.RespondWithInternalError(c, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"company_name": company})
	}
}

func handleListModels(catalog *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		entries, err := catalog.Models(ctx, c.Param("company"))
		if err != nil {
			utils.RespondWithInternalError(c, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"models": entries})
	}
}

func handleExportModels(export *services.ExportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		company := c.Param("company")
		data, count, err := export.ModelsWorkbook(ctx, company)
		if err != nil {
			utils.RespondWithInternalError(c, err.Error())
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_models.xlsx"`, safeFilePart(company)))
		c.Header("X-Record-Count", strconv.Itoa(count))
		c.Data(http.StatusOK, xlsxContentType, data)
	}
}

func safeFilePart(s string) string {
	out := []rune(s)
	for i, r := range out {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "company"
	}
	return string(out)
}

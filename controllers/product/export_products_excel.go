package productcontroller

import (
	"context"
	"net/http"
	"strings"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

// Columns shared by export and import. Import matches headers by name and
// ignores the read-only ones.
var exportHeaders = []string{
	"ID", "SKU", "Name", "Slug", "Description", "Price", "Stock", "Published",
	"Tags", "Materials", "Categories", "Images", "Views", "CreatedAt", "UpdatedAt",
}

func exportProducts(ctx context.Context, db *gorm.DB) (*xlsx.File, error) {
	var products []models.Product
	if err := withDetails(db.WithContext(ctx)).Order("name").Order("id").Find(&products).Error; err != nil {
		return nil, err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return nil, err
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, p := range products {
		row := sheet.AddRow()

		row.AddCell().SetString(p.ID)
		row.AddCell().SetString(p.SKU)
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Slug)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetBool(p.IsPublished)
		row.AddCell().SetString(strings.Join(p.Tags, ","))
		row.AddCell().SetString(strings.Join(p.Materials, ","))

		slugs := make([]string, 0, len(p.Categories))
		for _, cat := range p.Categories {
			slugs = append(slugs, cat.Slug)
		}
		row.AddCell().SetString(strings.Join(slugs, ","))

		urls := make([]string, 0, len(p.Images))
		for _, img := range p.Images {
			urls = append(urls, img.URL)
		}
		row.AddCell().SetString(strings.Join(urls, ","))

		row.AddCell().SetInt(p.Views)
		row.AddCell().SetString(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return file, nil
}

// GET /api/products/admin/export
func ExportProductsToExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := exportProducts(c.Request.Context(), db)
		if err != nil {
			c.Error(apperrors.Internal("failed to build product export", err))
			return
		}

		c.Header("Content-Disposition", "attachment; filename=products.xlsx")
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Transfer-Encoding", "binary")
		c.Header("Expires", "0")
		c.Status(http.StatusOK)

		if err := file.Write(c.Writer); err != nil {
			c.Error(apperrors.Internal("failed to write product export", err))
			return
		}
	}
}

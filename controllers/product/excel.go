package productcontroller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

type ImportReport struct {
	Created int      `json:"createdCount"`
	Updated int      `json:"updatedCount"`
	Skipped int      `json:"skippedCount"`
	Errors  []string `json:"errors,omitempty"`
}

// importProducts upserts one product per row of the first sheet, keyed by
// SKU. Rows that fail validation are skipped and reported.
func importProducts(ctx context.Context, db *gorm.DB, file *xlsx.File) (ImportReport, error) {
	var report ImportReport
	if len(file.Sheets) == 0 || file.Sheets[0].MaxRow < 2 {
		return report, apperrors.Validation("excel file is empty or missing header row", nil)
	}
	sheet := file.Sheets[0]

	columns := map[string]int{}
	for i, cell := range sheet.Rows[0].Cells {
		columns[strings.ToLower(strings.TrimSpace(cell.String()))] = i
	}
	for _, required := range []string{"sku", "name", "price"} {
		if _, ok := columns[required]; !ok {
			return report, apperrors.Validation(fmt.Sprintf("missing %q column", required), nil)
		}
	}

	for i := 1; i < sheet.MaxRow; i++ {
		row := sheet.Rows[i]
		get := func(col string) (string, bool) {
			idx, ok := columns[col]
			if !ok || row == nil || idx >= len(row.Cells) {
				return "", false
			}
			return strings.TrimSpace(row.Cells[idx].String()), true
		}

		in, err := rowInput(get)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		if raw, ok := get("categories"); ok {
			ids, err := resolveCategorySlugs(ctx, db, raw)
			if err != nil {
				report.Skipped++
				report.Errors = append(report.Errors, fmt.Sprintf("row %d: %v", i+1, err))
				continue
			}
			in.CategoryIDs = &ids
		}

		var existing models.Product
		err = db.WithContext(ctx).Select("id").Where("sku = ?", *in.SKU).Take(&existing).Error
		switch {
		case err == nil:
			_, err = updateProduct(ctx, db, existing.ID, in)
			if err == nil {
				report.Updated++
				continue
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			_, err = createProduct(ctx, db, in)
			if err == nil {
				report.Created++
				continue
			}
		}
		report.Skipped++
		report.Errors = append(report.Errors, fmt.Sprintf("row %d: %v", i+1, err))
	}
	log.Printf("📥 Product import: %d created, %d updated, %d skipped", report.Created, report.Updated, report.Skipped)
	return report, nil
}

func rowInput(get func(string) (string, bool)) (ProductInput, error) {
	var in ProductInput

	sku, _ := get("sku")
	name, _ := get("name")
	rawPrice, _ := get("price")
	if sku == "" || name == "" {
		return in, errors.New("sku and name are required")
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return in, fmt.Errorf("invalid price %q", rawPrice)
	}
	in.SKU, in.Name, in.Price = &sku, &name, &price

	if v, ok := get("description"); ok {
		in.Description = &v
	}
	if v, ok := get("stock"); ok && v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil {
			return in, fmt.Errorf("invalid stock %q", v)
		}
		in.Stock = &stock
	}
	if v, ok := get("published"); ok && v != "" {
		published, err := strconv.ParseBool(v)
		if err != nil {
			return in, fmt.Errorf("invalid published flag %q", v)
		}
		in.IsPublished = &published
	}
	if v, ok := get("tags"); ok {
		tags := strings.Split(v, ",")
		in.Tags = &tags
	}
	if v, ok := get("materials"); ok {
		materials := strings.Split(v, ",")
		in.Materials = &materials
	}
	if v, ok := get("images"); ok && v != "" {
		var images []models.ImageInput
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				images = append(images, models.ImageInput{URL: u})
			}
		}
		in.Images = &images
	}
	return in, nil
}

// resolveCategorySlugs turns the Categories column into ids.
func resolveCategorySlugs(ctx context.Context, db *gorm.DB, raw string) ([]string, error) {
	var slugs []string
	seen := map[string]bool{}
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" && !seen[s] {
			seen[s] = true
			slugs = append(slugs, s)
		}
	}
	if len(slugs) == 0 {
		return []string{}, nil
	}
	var ids []string
	if err := db.WithContext(ctx).Model(&models.Category{}).Where("slug IN ?", slugs).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) != len(slugs) {
		return nil, fmt.Errorf("unknown category in %q", raw)
	}
	return ids, nil
}

// POST /api/products/admin/import (multipart "file")
func ImportProductsFromExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		excelFileHeader, err := c.FormFile("file")
		if err != nil {
			c.Error(apperrors.Invalid("file", "excel file is required"))
			return
		}

		file, err := excelFileHeader.Open()
		if err != nil {
			c.Error(apperrors.Internal("failed to open excel file", err))
			return
		}
		defer file.Close()

		xlFile, err := xlsx.OpenReaderAt(file, excelFileHeader.Size)
		if err != nil {
			c.Error(apperrors.Invalid("file", "is not a readable xlsx file"))
			return
		}

		report, err := importProducts(c.Request.Context(), db, xlFile)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Import completed", "report": report})
	}
}

package productcontroller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/database/dbtest"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/AymenMB/wud-sub001/pagination"
	"github.com/AymenMB/wud-sub001/uploads"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

func init() { gin.SetMode(gin.TestMode) }

func ptr[T any](v T) *T { return &v }

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func errKind(t *testing.T, err error) apperrors.Kind {
	t.Helper()
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr), "expected an app error, got %v", err)
	return appErr.Kind
}

func mustCategory(t *testing.T, db *gorm.DB, name string, parentID *string) *models.Category {
	t.Helper()
	in := CategoryInput{Name: ptr(name), ParentID: parentID}
	cat, err := createCategory(context.Background(), db, in)
	require.NoError(t, err)
	return cat
}

func mustProduct(t *testing.T, db *gorm.DB, in ProductInput) *models.Product {
	t.Helper()
	p, err := createProduct(context.Background(), db, in)
	require.NoError(t, err)
	return p
}

func TestCreateProductWithVariantsImagesAndCategories(t *testing.T) {
	db := dbtest.New(t)
	tables := mustCategory(t, db, "Tables", nil)

	p := mustProduct(t, db, ProductInput{
		Name:        ptr("Table Basse en Chêne"),
		SKU:         ptr("TB-01"),
		Price:       price("120"),
		Stock:       ptr(5),
		Tags:        &[]string{"salon", " bois "},
		IsPublished: ptr(true),
		CategoryIDs: &[]string{tables.ID},
		Images:      &[]models.ImageInput{{URL: "/uploads/products/a.jpg", AltText: "face"}, {URL: "/uploads/products/b.jpg"}},
		Variants: &[]VariantInput{{
			Name: "Essence de bois",
			Options: []OptionInput{
				{Value: "Chêne", PriceDelta: decimal.NewFromInt(30), Stock: ptr(2)},
				{Value: "Pin"},
			},
		}},
	})

	assert.Equal(t, "table-basse-en-chene", p.Slug)
	assert.Equal(t, models.StringList{"salon", "bois"}, p.Tags)
	require.Len(t, p.Categories, 1)
	assert.Equal(t, "tables", p.Categories[0].Slug)
	require.Len(t, p.Images, 2)
	assert.Equal(t, "face", p.Images[0].AltText)
	require.Len(t, p.Variants, 1)
	require.Len(t, p.Variants[0].Options, 2)
	assert.Equal(t, 2, p.EffectiveStock(&models.SelectedVariant{Name: "Essence de bois", OptionValue: "Chêne"}))
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	db := dbtest.New(t)
	mustProduct(t, db, ProductInput{Name: ptr("Tabouret"), SKU: ptr("X1"), Price: price("40")})

	_, err := createProduct(context.Background(), db, ProductInput{Name: ptr("Autre"), SKU: ptr("X1"), Price: price("10")})
	require.Error(t, err)
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.KindConflict, appErr.Kind)
	assert.Equal(t, "sku", appErr.Field)
	assert.Equal(t, http.StatusBadRequest, appErr.Status())

	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateProductValidation(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	_, err := createProduct(ctx, db, ProductInput{Name: ptr("Sans prix"), SKU: ptr("NP")})
	assert.Equal(t, apperrors.KindValidation, errKind(t, err))

	_, err = createProduct(ctx, db, ProductInput{Name: ptr("Négatif"), SKU: ptr("NEG"), Price: price("-1")})
	assert.Equal(t, apperrors.KindValidation, errKind(t, err))

	_, err = createProduct(ctx, db, ProductInput{Name: ptr("Stock"), SKU: ptr("ST"), Price: price("1"), Stock: ptr(-2)})
	assert.Equal(t, apperrors.KindValidation, errKind(t, err))

	_, err = createProduct(ctx, db, ProductInput{
		Name: ptr("Catégorie"), SKU: ptr("CAT"), Price: price("1"),
		CategoryIDs: &[]string{"6c3b8f0e-2a1d-4c5e-9f7a-1b2c3d4e5f60"},
	})
	assert.Equal(t, apperrors.KindValidation, errKind(t, err))

	_, err = createProduct(ctx, db, ProductInput{
		Name: ptr("Variantes"), SKU: ptr("VAR"), Price: price("1"),
		Variants: &[]VariantInput{{Name: "Taille", Options: []OptionInput{{Value: "L"}, {Value: "L"}}}},
	})
	assert.Equal(t, apperrors.KindValidation, errKind(t, err))

	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Zero(t, count)
}

func TestProductSlugsStayUnique(t *testing.T) {
	db := dbtest.New(t)
	a := mustProduct(t, db, ProductInput{Name: ptr("Chaise"), SKU: ptr("C1"), Price: price("10")})
	b := mustProduct(t, db, ProductInput{Name: ptr("Chaise"), SKU: ptr("C2"), Price: price("10")})
	assert.Equal(t, "chaise", a.Slug)
	assert.Equal(t, "chaise-2", b.Slug)
}

func TestUpdateProductIsPartial(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	p := mustProduct(t, db, ProductInput{
		Name: ptr("Étagère"), SKU: ptr("ET-1"), Price: price("80"), Stock: ptr(3),
		Images:   &[]models.ImageInput{{URL: "/uploads/products/e.jpg"}},
		Variants: &[]VariantInput{{Name: "Couleur", Options: []OptionInput{{Value: "Naturel"}}}},
	})

	updated, err := updateProduct(ctx, db, p.ID, ProductInput{Name: ptr("Étagère murale"), Stock: ptr(7)})
	require.NoError(t, err)
	assert.Equal(t, "etagere-murale", updated.Slug)
	assert.Equal(t, 7, updated.Stock)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(80)))
	assert.Len(t, updated.Images, 1, "images are kept when not supplied")
	assert.Len(t, updated.Variants, 1, "variants are kept when not supplied")

	updated, err = updateProduct(ctx, db, p.ID, ProductInput{Variants: &[]VariantInput{}})
	require.NoError(t, err)
	assert.Empty(t, updated.Variants)

	other := mustProduct(t, db, ProductInput{Name: ptr("Banc"), SKU: ptr("BA-1"), Price: price("50")})
	_, err = updateProduct(ctx, db, other.ID, ProductInput{SKU: ptr("ET-1")})
	assert.Equal(t, apperrors.KindConflict, errKind(t, err))

	_, err = updateProduct(ctx, db, "not-an-id", ProductInput{})
	assert.Equal(t, apperrors.KindNotFound, errKind(t, err))
}

func TestDeleteProduct(t *testing.T) {
	db := dbtest.New(t)
	cat := mustCategory(t, db, "Chaises", nil)
	p := mustProduct(t, db, ProductInput{
		Name: ptr("Chaise"), SKU: ptr("CH"), Price: price("30"),
		CategoryIDs: &[]string{cat.ID},
		Variants:    &[]VariantInput{{Name: "Couleur", Options: []OptionInput{{Value: "Noir"}}}},
	})

	_, err := deleteProduct(context.Background(), db, p.ID)
	require.NoError(t, err)

	var products, links, options int64
	db.Model(&models.Product{}).Count(&products)
	db.Table("product_categories").Count(&links)
	db.Model(&models.VariantOption{}).Count(&options)
	assert.Zero(t, products)
	assert.Zero(t, links)
	assert.Zero(t, options)

	// The category is free to go once the product is gone.
	_, err = deleteCategory(context.Background(), db, cat.ID)
	assert.NoError(t, err)
}

func TestListProductsFilters(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	tables := mustCategory(t, db, "Tables", nil)

	mustProduct(t, db, ProductInput{Name: ptr("Table Chêne"), SKU: ptr("T1"), Price: price("300"), IsPublished: ptr(true), CategoryIDs: &[]string{tables.ID}, Materials: &[]string{"Chêne massif"}})
	mustProduct(t, db, ProductInput{Name: ptr("Table Pin"), SKU: ptr("T2"), Price: price("150"), IsPublished: ptr(true), CategoryIDs: &[]string{tables.ID}})
	mustProduct(t, db, ProductInput{Name: ptr("Lampe"), SKU: ptr("L1"), Price: price("45"), IsPublished: ptr(true)})
	mustProduct(t, db, ProductInput{Name: ptr("Prototype"), SKU: ptr("P1"), Price: price("10")})

	published := true
	params := pagination.Params{Page: 1, PageSize: 12, Sort: pagination.Sort{Field: "price"}}

	page, err := listProducts(ctx, db, ProductQuery{Published: &published}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, "Lampe", page.Items[0].Name)

	page, err = listProducts(ctx, db, ProductQuery{Published: &published, Category: "tables"}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = listProducts(ctx, db, ProductQuery{Published: &published, Category: tables.ID, MinPrice: price("200")}, params)
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "T1", page.Items[0].SKU)

	page, err = listProducts(ctx, db, ProductQuery{Published: &published, Search: "CHÊNE"}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = listProducts(ctx, db, ProductQuery{Search: "p1"}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total, "admin listing includes drafts")

	small := pagination.Params{Page: 2, PageSize: 2, Sort: pagination.Sort{Field: "price"}}
	page, err = listProducts(ctx, db, ProductQuery{Published: &published}, small)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.TotalPages)
}

func TestGetPublishedProductCountsViews(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	p := mustProduct(t, db, ProductInput{Name: ptr("Miroir"), SKU: ptr("M1"), Price: price("60"), IsPublished: ptr(true)})
	draft := mustProduct(t, db, ProductInput{Name: ptr("Brouillon"), SKU: ptr("B1"), Price: price("60")})

	got, err := getPublishedProduct(ctx, db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Views)

	got, err = getPublishedProduct(ctx, db, "miroir")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Views)

	_, err = getPublishedProduct(ctx, db, draft.ID)
	assert.Equal(t, apperrors.KindNotFound, errKind(t, err))
}

func TestAdminProductByMalformedID(t *testing.T) {
	db := dbtest.New(t)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			appErr := apperrors.From(c.Errors.Last().Err)
			c.JSON(appErr.Status(), gin.H{"message": appErr.Message})
		}
	})
	r.GET("/products/admin/:id", GetProductByID(db))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/admin/123", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "malformed id")
}

func TestCreateProductHandlerJSON(t *testing.T) {
	db := dbtest.New(t)
	store := &uploads.Store{Dir: t.TempDir(), PublicPath: "/uploads", MaxFiles: 10, MaxFileSize: 5 << 20}
	r := gin.New()
	r.POST("/products", CreateProduct(db, store))

	body := `{"name":"Console","sku":"CO-1","price":"199.90","stock":4,"images":["/uploads/products/c.jpg",{"url":"/uploads/products/d.jpg","altText":"profil"}]}`
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "console", got.Slug)
	require.Len(t, got.Images, 2)
	assert.Equal(t, "profil", got.Images[1].AltText)
}

func TestCategoryRoundTripBySlug(t *testing.T) {
	db := dbtest.New(t)
	created := mustCategory(t, db, "Meubles de Salon", nil)
	assert.Equal(t, "meubles-de-salon", created.Slug)

	found, err := findCategory(db, "meubles-de-salon")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, created.Name, found.Name)

	renamed, err := updateCategory(context.Background(), db, created.ID, CategoryInput{Name: ptr("Salon")})
	require.NoError(t, err)
	assert.Equal(t, "salon", renamed.Slug)
}

func TestCategoryUniquenessAndParent(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	root := mustCategory(t, db, "Chambre", nil)

	_, err := createCategory(ctx, db, CategoryInput{Name: ptr("Chambre")})
	assert.Equal(t, apperrors.KindConflict, errKind(t, err))

	_, err = createCategory(ctx, db, CategoryInput{Name: ptr("chambre")})
	assert.Equal(t, apperrors.KindConflict, errKind(t, err), "same slug")

	_, err = updateCategory(ctx, db, root.ID, CategoryInput{ParentID: ptr(root.ID)})
	assert.Equal(t, apperrors.KindValidation, errKind(t, err))

	child := mustCategory(t, db, "Lits", &root.ID)
	tree, err := listCategories(ctx, db, true)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, child.ID, tree[0].Children[0].ID)

	detached, err := updateCategory(ctx, db, child.ID, CategoryInput{ParentID: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, detached.ParentID)
}

func TestCategoryTreeKeepsCyclicCategories(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	atelier := mustCategory(t, db, "Atelier", nil)
	bancs := mustCategory(t, db, "Bancs", nil)
	coffres := mustCategory(t, db, "Coffres", &bancs.ID)
	_, err := updateCategory(ctx, db, bancs.ID, CategoryInput{ParentID: ptr(coffres.ID)})
	require.NoError(t, err)

	tree, err := listCategories(ctx, db, true)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, atelier.ID, tree[0].ID)
	assert.Empty(t, tree[0].Children)
	assert.Equal(t, bancs.ID, tree[1].ID)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, coffres.ID, tree[1].Children[0].ID)
	assert.Empty(t, tree[1].Children[0].Children, "the cycle is cut where it closes")
}

func TestDeleteCategoryBlockedWithCounts(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	root := mustCategory(t, db, "Bureau", nil)
	mustCategory(t, db, "Chaises de bureau", &root.ID)
	mustProduct(t, db, ProductInput{Name: ptr("Bureau"), SKU: ptr("BU"), Price: price("250"), CategoryIDs: &[]string{root.ID}})

	_, err := deleteCategory(ctx, db, root.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, errKind(t, err))
	assert.Contains(t, err.Error(), "1 product(s)")
	assert.Contains(t, err.Error(), "1 subcategory(ies)")

	_, err = findCategory(db, root.ID)
	assert.NoError(t, err, "category must survive")
}

func TestExportThenImportUpserts(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	cat := mustCategory(t, db, "Déco", nil)
	mustProduct(t, db, ProductInput{Name: ptr("Vase"), SKU: ptr("V1"), Price: price("25.50"), Stock: ptr(8), IsPublished: ptr(true), CategoryIDs: &[]string{cat.ID}})

	exported, err := exportProducts(ctx, db)
	require.NoError(t, err)

	// Add a new row and change the price of the existing one.
	sheet := exported.Sheets[0]
	sheet.Rows[1].Cells[5].SetString("30.00")
	row := sheet.AddRow()
	for _, v := range []string{"", "V2", "Bougeoir", "", "", "12", "3", "false", "", "", "deco", ""} {
		row.AddCell().SetString(v)
	}

	var buf bytes.Buffer
	require.NoError(t, exported.Write(&buf))
	reopened, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)

	report, err := importProducts(ctx, db, reopened)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 0, report.Skipped, report.Errors)

	var vase models.Product
	require.NoError(t, db.Where("sku = ?", "V1").First(&vase).Error)
	assert.True(t, vase.Price.Equal(decimal.NewFromInt(30)))

	var candle models.Product
	require.NoError(t, db.Preload("Categories").Where("sku = ?", "V2").First(&candle).Error)
	assert.Equal(t, 3, candle.Stock)
	require.Len(t, candle.Categories, 1)
	assert.Equal(t, "deco", candle.Categories[0].Slug)
}

func TestResolveCategorySlugs(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	tables := mustCategory(t, db, "Tables", nil)
	deco := mustCategory(t, db, "Déco", nil)

	ids, err := resolveCategorySlugs(ctx, db, "tables, tables")
	require.NoError(t, err)
	assert.Equal(t, []string{tables.ID}, ids)

	ids, err = resolveCategorySlugs(ctx, db, "deco,tables,deco")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{tables.ID, deco.ID}, ids)

	_, err = resolveCategorySlugs(ctx, db, "tables,chaises")
	assert.Error(t, err)

	ids, err = resolveCategorySlugs(ctx, db, " , ")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestImportSkipsBadRows(t *testing.T) {
	db := dbtest.New(t)
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	require.NoError(t, err)
	for _, values := range [][]string{
		{"SKU", "Name", "Price"},
		{"", "Sans SKU", "10"},
		{"S2", "Prix invalide", "beaucoup"},
		{"S3", "Valide", "10"},
	} {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}

	report, err := importProducts(context.Background(), db, file)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 2, report.Skipped)
	assert.Len(t, report.Errors, 2)
}

package productcontroller

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProductInput is shared by create and update; on update nil fields keep
// their stored value.
type ProductInput struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	SKU         *string              `json:"sku"`
	Price       *decimal.Decimal     `json:"price"`
	Stock       *int                 `json:"stock"`
	Tags        *[]string            `json:"tags"`
	Materials   *[]string            `json:"materials"`
	IsPublished *bool                `json:"isPublished"`
	CategoryIDs *[]string            `json:"categories"`
	Images      *[]models.ImageInput `json:"images"`
	Variants    *[]VariantInput      `json:"variants"`
}

type VariantInput struct {
	Name    string        `json:"name"`
	Options []OptionInput `json:"options"`
}

type OptionInput struct {
	Value      string          `json:"value"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
	Stock      *int            `json:"stock"`
}

func (in *ProductInput) validate(creating bool) error {
	fields := map[string]string{}

	if creating {
		if in.Name == nil {
			fields["name"] = "is required"
		}
		if in.SKU == nil {
			fields["sku"] = "is required"
		}
		if in.Price == nil {
			fields["price"] = "is required"
		}
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		switch {
		case name == "":
			fields["name"] = "is required"
		case models.Slugify(name) == "":
			fields["name"] = "must contain letters or digits"
		}
	}
	if in.SKU != nil && strings.TrimSpace(*in.SKU) == "" {
		fields["sku"] = "is required"
	}
	if in.Price != nil && in.Price.IsNegative() {
		fields["price"] = "must be greater than or equal to 0"
	}
	if in.Stock != nil && *in.Stock < 0 {
		fields["stock"] = "must be greater than or equal to 0"
	}
	if in.Images != nil {
		for i, img := range *in.Images {
			if img.URL == "" {
				fields[fmt.Sprintf("images[%d]", i)] = "url is required"
			}
		}
	}
	if in.Variants != nil {
		validateVariants(*in.Variants, fields)
	}

	if len(fields) > 0 {
		return apperrors.Validation("invalid product", fields)
	}
	return nil
}

func validateVariants(variants []VariantInput, fields map[string]string) {
	seen := map[string]bool{}
	for i, v := range variants {
		key := fmt.Sprintf("variants[%d]", i)
		name := strings.TrimSpace(v.Name)
		if name == "" {
			fields[key+".name"] = "is required"
			continue
		}
		if seen[name] {
			fields[key+".name"] = fmt.Sprintf("duplicate variant %q", name)
		}
		seen[name] = true
		if len(v.Options) == 0 {
			fields[key+".options"] = "at least one option is required"
		}

		values := map[string]bool{}
		for j, opt := range v.Options {
			optKey := fmt.Sprintf("%s.options[%d]", key, j)
			value := strings.TrimSpace(opt.Value)
			switch {
			case value == "":
				fields[optKey+".value"] = "is required"
			case values[value]:
				fields[optKey+".value"] = fmt.Sprintf("duplicate option %q", value)
			}
			values[value] = true
			if opt.Stock != nil && *opt.Stock < 0 {
				fields[optKey+".stock"] = "must be greater than or equal to 0"
			}
		}
	}
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// bindBody decodes a JSON body into dst, or for multipart requests the JSON
// carried by the "data" field, returning the files posted under fileField.
func bindBody(c *gin.Context, dst any, fileField string) ([]*multipart.FileHeader, error) {
	if !isMultipart(c) {
		if err := c.ShouldBindJSON(dst); err != nil {
			return nil, apperrors.Binding(err)
		}
		return nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.Validation("invalid multipart body", nil)
	}
	if data := strings.TrimSpace(c.PostForm("data")); data != "" {
		if err := json.Unmarshal([]byte(data), dst); err != nil {
			return nil, apperrors.Invalid("data", "must be a JSON object")
		}
	}
	return form.File[fileField], nil
}

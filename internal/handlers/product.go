package handlers

import (
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bazaar/internal/middleware"
	"github.com/example/bazaar/internal/models"
	"github.com/example/bazaar/internal/services"
)

// maxProductImages caps the upload set per product.
const maxProductImages = 5

// ProductHandler manages owner-scoped product CRUD. Every lookup filters by
// id and user_id together, so another tenant's product is indistinguishable
// from a missing one.
type ProductHandler struct {
	db     *gorm.DB
	images *services.ImageService
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB, images *services.ImageService) *ProductHandler {
	return &ProductHandler{db: db, images: images}
}

// CreateProduct handles multipart product creation. Images are written to the
// file store before the record is created; the owner comes from the session,
// never from the request.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form data is required")
	}

	fieldErrors := map[string]string{}

	productName := trimmedValue(form, "productName")
	if productName == "" {
		fieldErrors["productName"] = "productName is required"
	}

	productType := trimmedValue(form, "productType")
	if productType == "" {
		fieldErrors["productType"] = "productType is required"
	} else if !models.IsValidProductType(productType) {
		fieldErrors["productType"] = "productType must be one of: " + strings.Join(models.ProductTypes, ", ")
	}

	quantityStock := 0
	if raw := trimmedValue(form, "quantityStock"); raw == "" {
		fieldErrors["quantityStock"] = "quantityStock is required"
	} else if parsed, convErr := strconv.Atoi(raw); convErr != nil || parsed < 0 {
		fieldErrors["quantityStock"] = "quantityStock must be a non-negative integer"
	} else {
		quantityStock = parsed
	}

	mrp := 0.0
	if raw := trimmedValue(form, "mrp"); raw == "" {
		fieldErrors["mrp"] = "mrp is required"
	} else if parsed, convErr := strconv.ParseFloat(raw, 64); convErr != nil || parsed <= 0 {
		fieldErrors["mrp"] = "mrp must be a positive number"
	} else {
		mrp = parsed
	}

	sellingPrice := 0.0
	if raw := trimmedValue(form, "sellingPrice"); raw == "" {
		fieldErrors["sellingPrice"] = "sellingPrice is required"
	} else if parsed, convErr := strconv.ParseFloat(raw, 64); convErr != nil || parsed <= 0 {
		fieldErrors["sellingPrice"] = "sellingPrice must be a positive number"
	} else {
		sellingPrice = parsed
	}

	brandName := trimmedValue(form, "brandName")
	if brandName == "" {
		fieldErrors["brandName"] = "brandName is required"
	}

	exchangeOrReturn := true
	if raw, present := formValue(form, "exchangeOrReturn"); present {
		exchangeOrReturn = parseFlexibleBool(raw)
	}

	files := form.File["productImages"]
	if len(files) == 0 {
		fieldErrors["productImages"] = "at least one product image is required"
	} else if len(files) > maxProductImages {
		fieldErrors["productImages"] = "at most 5 product images are allowed"
	}

	if len(fieldErrors) > 0 {
		return validationFailed(c, fieldErrors)
	}

	names, err := h.images.SaveAll(files)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to store product images")
	}

	product := models.Product{
		UserID:           user.ID,
		ProductName:      productName,
		ProductType:      productType,
		QuantityStock:    quantityStock,
		MRP:              mrp,
		SellingPrice:     sellingPrice,
		BrandName:        brandName,
		ExchangeOrReturn: exchangeOrReturn,
		PublishedStatus:  false,
		Images:           imageRows(uuid.Nil, names),
	}

	if err := h.db.Create(&product).Error; err != nil {
		h.images.Remove(names)
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Product created successfully",
		"product": product,
	})
}

// ListProducts returns the owner's products, optionally narrowed by publish
// status or a substring match on the name. The result order is not part of
// the contract.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	query := h.db.Where("user_id = ?", user.ID)

	switch c.Query("status") {
	case "published":
		query = query.Where("published_status = ?", true)
	case "unpublished":
		query = query.Where("published_status = ?", false)
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where("LOWER(product_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var products []models.Product
	if err := query.Preload("Images", orderImages).
		Order("created_at desc").
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Products fetched successfully",
		"products": products,
	})
}

// GetProduct loads one of the owner's products.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	product, err := h.findOwned(user.ID, c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Product fetched successfully",
		"product": product,
	})
}

// UpdateProduct applies a partial update. A field is overwritten only when
// its key is present in the form, so an explicit zero survives. A new image
// set replaces the old one wholesale; old files are released only after the
// record commits.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	product, err := h.findOwned(user.ID, c.Params("id"))
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form data is required")
	}

	updates := map[string]interface{}{}
	fieldErrors := map[string]string{}

	if raw, present := formValue(form, "productName"); present {
		if value := strings.TrimSpace(raw); value == "" {
			fieldErrors["productName"] = "productName must not be empty"
		} else {
			updates["product_name"] = value
		}
	}

	if raw, present := formValue(form, "productType"); present {
		value := strings.TrimSpace(raw)
		if !models.IsValidProductType(value) {
			fieldErrors["productType"] = "productType must be one of: " + strings.Join(models.ProductTypes, ", ")
		} else {
			updates["product_type"] = value
		}
	}

	if raw, present := formValue(form, "quantityStock"); present {
		if parsed, convErr := strconv.Atoi(strings.TrimSpace(raw)); convErr != nil || parsed < 0 {
			fieldErrors["quantityStock"] = "quantityStock must be a non-negative integer"
		} else {
			updates["quantity_stock"] = parsed
		}
	}

	if raw, present := formValue(form, "mrp"); present {
		if parsed, convErr := strconv.ParseFloat(strings.TrimSpace(raw), 64); convErr != nil || parsed <= 0 {
			fieldErrors["mrp"] = "mrp must be a positive number"
		} else {
			updates["mrp"] = parsed
		}
	}

	if raw, present := formValue(form, "sellingPrice"); present {
		if parsed, convErr := strconv.ParseFloat(strings.TrimSpace(raw), 64); convErr != nil || parsed <= 0 {
			fieldErrors["sellingPrice"] = "sellingPrice must be a positive number"
		} else {
			updates["selling_price"] = parsed
		}
	}

	if raw, present := formValue(form, "brandName"); present {
		if value := strings.TrimSpace(raw); value == "" {
			fieldErrors["brandName"] = "brandName must not be empty"
		} else {
			updates["brand_name"] = value
		}
	}

	if raw, present := formValue(form, "exchangeOrReturn"); present {
		updates["exchange_or_return"] = parseFlexibleBool(raw)
	}

	files := form.File["productImages"]
	if len(files) > maxProductImages {
		fieldErrors["productImages"] = "at most 5 product images are allowed"
	}

	if len(fieldErrors) > 0 {
		return validationFailed(c, fieldErrors)
	}

	// New files go to disk before the record changes; the old set is
	// released only after the transaction commits.
	var newNames []string
	if len(files) > 0 {
		newNames, err = h.images.SaveAll(files)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to store product images")
		}
	}

	oldNames := fileNames(product.Images)

	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			updates["updated_at"] = time.Now()
			if err := tx.Model(&models.Product{}).
				Where("id = ? AND user_id = ?", product.ID, user.ID).
				Updates(updates).Error; err != nil {
				return err
			}
		}

		if len(newNames) > 0 {
			if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductImage{}).Error; err != nil {
				return err
			}
			rows := imageRows(product.ID, newNames)
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if txErr != nil {
		h.images.Remove(newNames)
		return txErr
	}

	if len(newNames) > 0 {
		h.images.Remove(oldNames)
	}

	updated, err := h.findOwned(user.ID, c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Product updated successfully",
		"product": updated,
	})
}

// DeleteProduct removes a product and releases its image files. The record
// goes first: a crash can leave orphaned files, never a record pointing at
// missing ones.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	product, err := h.findOwned(user.ID, c.Params("id"))
	if err != nil {
		return err
	}

	names := fileNames(product.Images)

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, "id = ? AND user_id = ?", product.ID, user.ID).Error
	}); err != nil {
		return err
	}

	h.images.Remove(names)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Product deleted successfully",
	})
}

// TogglePublishStatus flips the publish flag in a single statement, so
// concurrent toggles never lose a flip.
func (h *ProductHandler) TogglePublishStatus(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Product not found")
	}

	result := h.db.Model(&models.Product{}).
		Where("id = ? AND user_id = ?", id, user.ID).
		Update("published_status", gorm.Expr("NOT published_status"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Product not found")
	}

	product, err := h.findOwned(user.ID, c.Params("id"))
	if err != nil {
		return err
	}

	message := "Product unpublished successfully"
	if product.PublishedStatus {
		message = "Product published successfully"
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"product": product,
	})
}

// findOwned loads a product scoped by owner. Any miss, including another
// user's product or a malformed id, reads as not found.
func (h *ProductHandler) findOwned(userID uuid.UUID, rawID string) (*models.Product, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Product not found")
	}

	var product models.Product
	if err := h.db.Preload("Images", orderImages).
		First(&product, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.NewError(fiber.StatusNotFound, "Product not found")
		}
		return nil, err
	}

	return &product, nil
}

func orderImages(db *gorm.DB) *gorm.DB {
	return db.Order("display_order")
}

func imageRows(productID uuid.UUID, names []string) []models.ProductImage {
	rows := make([]models.ProductImage, 0, len(names))
	for i, name := range names {
		rows = append(rows, models.ProductImage{
			ProductID:    productID,
			FileName:     name,
			DisplayOrder: i,
		})
	}
	return rows
}

func fileNames(images []models.ProductImage) []string {
	names := make([]string, 0, len(images))
	for _, img := range images {
		names = append(names, img.FileName)
	}
	return names
}

func validationFailed(c *fiber.Ctx, fieldErrors map[string]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "Validation failed",
		"errors":  fieldErrors,
	})
}

func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func trimmedValue(form *multipart.Form, key string) string {
	value, _ := formValue(form, key)
	return strings.TrimSpace(value)
}

// parseFlexibleBool coerces the loose truthy forms clients send for
// exchangeOrReturn into a strict boolean.
func parseFlexibleBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1", "on":
		return true
	}
	return false
}

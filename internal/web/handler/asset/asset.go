// Package asset provides handlers for the asset inventory: listing,
// checkout, checkin and retirement.
package asset

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoAssetDesk/GoAssetDesk/internal/auth"
	"github.com/GoAssetDesk/GoAssetDesk/internal/config"
	"github.com/GoAssetDesk/GoAssetDesk/internal/db/models"
	"github.com/GoAssetDesk/GoAssetDesk/internal/status"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/handler"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/handler/dashboard"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/middleware/guard"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/navigation"
)

const (
	// Path is the base path for the asset pages.
	Path = handler.RootPath + "assets"

	// TemplateList is the asset list template.
	TemplateList = "asset/list"

	// DefaultPageSize is the default number of items per page.
	DefaultPageSize = 25

	dateLayout = "2006-01-02"
)

// Row is one asset prepared for rendering: the record, its derived display
// status and the actions that status offers.
type Row struct {
	Asset   models.Asset
	Status  status.Status
	Actions []status.Action
}

// checkoutForm is the checkout payload.
type checkoutForm struct {
	AssigneeID          uint64 `form:"assignee_id" validate:"required"`
	CheckoutDate        string `form:"checkout_date" validate:"required"`
	ExpectedCheckinDate string `form:"expected_checkin_date" validate:"required"`
}

// createForm is the new asset payload.
type createForm struct {
	Tag    string `form:"tag" validate:"required"`
	Name   string `form:"name" validate:"required"`
	Serial string `form:"serial"`
	Model  string `form:"model"`
	Notes  string `form:"notes"`
}

// Service provides the asset handlers.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the asset handler.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.validator = validator.New()

	app.Get(Path,
		guard.RequirePermission(authService, auth.ResourceAssets, auth.ActionView),
		s.List,
	)
	app.Post(Path,
		guard.RequirePermission(authService, auth.ResourceAssets, auth.ActionAdd),
		s.Create,
	)
	app.Post(Path+"/:id/checkout",
		guard.RequirePermission(authService, auth.ResourceAssets, auth.ActionCheckout),
		s.Checkout,
	)
	app.Post(Path+"/:id/checkin",
		guard.RequirePermission(authService, auth.ResourceAssets, auth.ActionCheckin),
		s.Checkin,
	)
	app.Post(Path+"/:id/retire",
		guard.RequirePermission(authService, auth.ResourceAssets, auth.ActionEdit),
		s.Retire,
	)
}

// List shows the asset inventory with derived statuses.
func (s *Service) List(c *fiber.Ctx) error {
	nav := navigation.NewContext("Assets", "inventory", "assets").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Assets", Path, true)

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultPageSize
	}

	search := c.Query("search", "")

	var (
		assets     []models.Asset
		totalCount int64
		tx         = s.db.Model(&models.Asset{})
	)

	if search != "" {
		like := "%" + search + "%"
		tx = tx.Where("tag LIKE ? OR name LIKE ? OR serial LIKE ?", like, like, like)
	}

	if err := tx.Count(&totalCount).Error; err != nil {
		log.Error().Err(err).Msg("failed to count assets")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to load assets")
	}

	err := tx.Preload("Assignee").
		Order("tag").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&assets).Error
	if err != nil {
		log.Error().Err(err).Msg("failed to list assets")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to load assets")
	}

	today := time.Now()
	rows := make([]Row, 0, len(assets))

	for i := range assets {
		derived := status.Assets.DeriveRaw(
			assets[i].Status, assets[i].CheckoutDate, assets[i].ExpectedCheckinDate, today)

		rows = append(rows, Row{
			Asset:   assets[i],
			Status:  derived,
			Actions: status.AssetActions(derived),
		})
	}

	totalPages := int((totalCount + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation":  nav,
		"Rows":        rows,
		"CurrentPage": page,
		"TotalPages":  totalPages,
		"Search":      search,
	}, handler.BaseLayout)
}

// Create adds a new asset to the inventory.
func (s *Service) Create(c *fiber.Ctx) error {
	var f createForm

	if err := c.BodyParser(&f); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid form data")
	}

	if err := s.validator.Struct(f); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("tag and name are required")
	}

	asset := models.Asset{
		Tag:    f.Tag,
		Name:   f.Name,
		Serial: f.Serial,
		Model:  f.Model,
		Notes:  f.Notes,
		Status: string(status.AssetAvailable),
	}

	if err := s.db.Create(&asset).Error; err != nil {
		log.Error().Err(err).Str("tag", f.Tag).Msg("failed to create asset")

		return c.Status(fiber.StatusConflict).SendString("asset tag already exists")
	}

	return c.Redirect(Path)
}

// Checkout hands the asset to a user and opens a checkout window.
func (s *Service) Checkout(c *fiber.Ctx) error {
	asset, derived, ok := s.load(c)
	if !ok {
		return nil
	}

	if !actionAllowed(derived, status.ActionCheckOut) {
		return c.Status(fiber.StatusConflict).SendString("asset cannot be checked out in its current status")
	}

	var f checkoutForm

	if err := c.BodyParser(&f); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid form data")
	}

	if err := s.validator.Struct(f); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("assignee and dates are required")
	}

	start, err := time.Parse(dateLayout, f.CheckoutDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid checkout date")
	}

	end, err := time.Parse(dateLayout, f.ExpectedCheckinDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid expected checkin date")
	}

	if end.Before(start) {
		return c.Status(fiber.StatusBadRequest).SendString("checkin date precedes checkout date")
	}

	updates := map[string]interface{}{
		"assignee_id":           f.AssigneeID,
		"checkout_date":         start,
		"expected_checkin_date": end,
		"status":                string(status.AssetDeployed),
	}

	if err := s.db.Model(asset).Updates(updates).Error; err != nil {
		log.Error().Err(err).Uint64("asset_id", asset.ID).Msg("failed to check out asset")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to check out asset")
	}

	return c.Redirect(Path)
}

// Checkin returns the asset to stock and clears the checkout window.
func (s *Service) Checkin(c *fiber.Ctx) error {
	asset, derived, ok := s.load(c)
	if !ok {
		return nil
	}

	if !actionAllowed(derived, status.ActionCheckIn) {
		return c.Status(fiber.StatusConflict).SendString("asset is not checked out")
	}

	updates := map[string]interface{}{
		"assignee_id":           nil,
		"checkout_date":         nil,
		"expected_checkin_date": nil,
		"status":                string(status.AssetAvailable),
	}

	if err := s.db.Model(asset).Updates(updates).Error; err != nil {
		log.Error().Err(err).Uint64("asset_id", asset.ID).Msg("failed to check in asset")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to check in asset")
	}

	return c.Redirect(Path)
}

// Retire moves the asset to the sticky retired status.
func (s *Service) Retire(c *fiber.Ctx) error {
	asset, derived, ok := s.load(c)
	if !ok {
		return nil
	}

	if !actionAllowed(derived, status.ActionRetire) {
		return c.Status(fiber.StatusConflict).SendString("asset cannot be retired in its current status")
	}

	if err := s.db.Model(asset).Update("status", string(status.AssetRetired)).Error; err != nil {
		log.Error().Err(err).Uint64("asset_id", asset.ID).Msg("failed to retire asset")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to retire asset")
	}

	return c.Redirect(Path)
}

// load fetches the addressed asset and computes its derived status. On
// failure the response is already written and ok is false.
func (s *Service) load(c *fiber.Ctx) (asset *models.Asset, derived status.Status, ok bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).SendString("invalid asset id")
		return nil, "", false
	}

	var record models.Asset
	if err := s.db.First(&record, id).Error; err != nil {
		_ = c.Status(fiber.StatusNotFound).SendString("asset not found")
		return nil, "", false
	}

	derived = status.Assets.DeriveRaw(record.Status, record.CheckoutDate, record.ExpectedCheckinDate, time.Now())

	return &record, derived, true
}

// actionAllowed reports whether the action is offered in the derived status.
func actionAllowed(derived status.Status, action status.Action) bool {
	for _, a := range status.AssetActions(derived) {
		if a == action {
			return true
		}
	}

	return false
}

// Package iamaccount provides handlers for IAM access grants: listing,
// suspension, revocation and reinstatement.
package iamaccount

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
	// Path is the base path for the IAM account pages.
	Path = handler.RootPath + "iam"

	// TemplateList is the IAM account list template.
	TemplateList = "iam/list"

	// DefaultPageSize is the default number of items per page.
	DefaultPageSize = 25

	dateLayout = "2006-01-02"
)

// Row is one grant prepared for rendering.
type Row struct {
	Account models.IAMAccount
	Status  status.Status
	Actions []status.Action
}

// createForm is the new grant payload.
type createForm struct {
	AccountName string `form:"account_name" validate:"required"`
	System      string `form:"system" validate:"required"`
	GranteeID   uint64 `form:"grantee_id"`
	StartDate   string `form:"start_date"`
	EndDate     string `form:"end_date"`
	Notes       string `form:"notes"`
}

// Service provides the IAM account handlers.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the IAM account handler.
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
		guard.RequirePermission(authService, auth.ResourceIAM, auth.ActionView),
		s.List,
	)
	app.Post(Path,
		guard.RequirePermission(authService, auth.ResourceIAM, auth.ActionEdit),
		s.Create,
	)
	app.Post(Path+"/:id/suspend",
		guard.RequirePermission(authService, auth.ResourceIAM, auth.ActionEdit),
		s.Suspend,
	)
	app.Post(Path+"/:id/revoke",
		guard.RequirePermission(authService, auth.ResourceIAM, auth.ActionEdit),
		s.Revoke,
	)
	app.Post(Path+"/:id/reinstate",
		guard.RequirePermission(authService, auth.ResourceIAM, auth.ActionEdit),
		s.Reinstate,
	)
}

// List shows the IAM grants with derived statuses.
func (s *Service) List(c *fiber.Ctx) error {
	nav := navigation.NewContext("IAM Accounts", "inventory", "iam").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("IAM Accounts", Path, true)

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
		accounts   []models.IAMAccount
		totalCount int64
		tx         = s.db.Model(&models.IAMAccount{})
	)

	if search != "" {
		like := "%" + search + "%"
		tx = tx.Where("account_name LIKE ? OR system LIKE ?", like, like)
	}

	if err := tx.Count(&totalCount).Error; err != nil {
		log.Error().Err(err).Msg("failed to count IAM accounts")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to load IAM accounts")
	}

	err := tx.Preload("Grantee").
		Order("system, account_name").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&accounts).Error
	if err != nil {
		log.Error().Err(err).Msg("failed to list IAM accounts")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to load IAM accounts")
	}

	today := time.Now()
	rows := make([]Row, 0, len(accounts))

	for i := range accounts {
		derived := status.IAMGrants.DeriveRaw(accounts[i].Status, accounts[i].StartDate, accounts[i].EndDate, today)

		rows = append(rows, Row{
			Account: accounts[i],
			Status:  derived,
			Actions: status.IAMActions(derived),
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

// Create registers a new grant.
func (s *Service) Create(c *fiber.Ctx) error {
	var f createForm

	if err := c.BodyParser(&f); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid form data")
	}

	if err := s.validator.Struct(f); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("account name and system are required")
	}

	account := models.IAMAccount{
		AccountName: f.AccountName,
		System:      f.System,
		Notes:       f.Notes,
		Status:      string(status.IAMActive),
	}

	if f.GranteeID != 0 {
		account.GranteeID = &f.GranteeID
	}

	if f.StartDate != "" {
		start, err := time.Parse(dateLayout, f.StartDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("invalid start date")
		}

		account.StartDate = &start
	}

	if f.EndDate != "" {
		end, err := time.Parse(dateLayout, f.EndDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("invalid end date")
		}

		account.EndDate = &end
	}

	if account.StartDate != nil && account.EndDate != nil && account.EndDate.Before(*account.StartDate) {
		return c.Status(fiber.StatusBadRequest).SendString("end date precedes start date")
	}

	if err := s.db.Create(&account).Error; err != nil {
		log.Error().Err(err).Str("account", f.AccountName).Msg("failed to create IAM account")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to create IAM account")
	}

	return c.Redirect(Path)
}

// Suspend puts the grant on hold (sticky).
func (s *Service) Suspend(c *fiber.Ctx) error {
	return s.transition(c, status.ActionSuspend, status.IAMSuspended)
}

// Revoke terminates the grant (sticky, terminal).
func (s *Service) Revoke(c *fiber.Ctx) error {
	return s.transition(c, status.ActionRevoke, status.IAMRevoked)
}

// Reinstate hands the grant back to derivation: the stored status returns to
// the derived arm, so the display status again follows the grant window.
func (s *Service) Reinstate(c *fiber.Ctx) error {
	return s.transition(c, status.ActionReinstate, status.IAMActive)
}

// transition applies a sticky (or derivation-returning) status change after
// checking the action is offered in the current derived status.
func (s *Service) transition(c *fiber.Ctx, action status.Action, target status.Status) error {
	account, derived, ok := s.load(c)
	if !ok {
		return nil
	}

	if !actionAllowed(derived, action) {
		return c.Status(fiber.StatusConflict).SendString("action not available in the current status")
	}

	if err := s.db.Model(account).Update("status", string(target)).Error; err != nil {
		log.Error().Err(err).Uint64("iam_id", account.ID).Str("action", string(action)).
			Msg("failed to update IAM account")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to update IAM account")
	}

	return c.Redirect(Path)
}

// load fetches the addressed grant and computes its derived status. On
// failure the response is already written and ok is false.
func (s *Service) load(c *fiber.Ctx) (account *models.IAMAccount, derived status.Status, ok bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).SendString("invalid account id")
		return nil, "", false
	}

	var record models.IAMAccount
	if err := s.db.First(&record, id).Error; err != nil {
		_ = c.Status(fiber.StatusNotFound).SendString("IAM account not found")
		return nil, "", false
	}

	derived = status.IAMGrants.DeriveRaw(record.Status, record.StartDate, record.EndDate, time.Now())

	return &record, derived, true
}

// actionAllowed reports whether the action is offered in the derived status.
func actionAllowed(derived status.Status, action status.Action) bool {
	for _, a := range status.IAMActions(derived) {
		if a == action {
			return true
		}
	}

	return false
}

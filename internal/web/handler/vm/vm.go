// Package vm provides handlers for the virtual machine lifecycle: listing,
// overdue acknowledgement and decommissioning.
package vm

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
	// Path is the base path for the virtual machine pages.
	Path = handler.RootPath + "vms"

	// TemplateList is the VM list template.
	TemplateList = "vm/list"

	// DefaultPageSize is the default number of items per page.
	DefaultPageSize = 25

	dateLayout = "2006-01-02"
)

// Row is one VM prepared for rendering.
type Row struct {
	VM      models.VirtualMachine
	Status  status.Status
	Actions []status.Action
}

// createForm is the new VM payload.
type createForm struct {
	Name      string `form:"name" validate:"required"`
	Hostname  string `form:"hostname"`
	OwnerID   uint64 `form:"owner_id"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Notes     string `form:"notes"`
}

// Service provides the VM handlers.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the VM handler.
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
		guard.RequirePermission(authService, auth.ResourceVMs, auth.ActionView),
		s.List,
	)
	app.Post(Path,
		guard.RequirePermission(authService, auth.ResourceVMs, auth.ActionEdit),
		s.Create,
	)
	app.Post(Path+"/:id/mark-notified",
		guard.RequirePermission(authService, auth.ResourceVMs, auth.ActionEdit),
		s.MarkNotified,
	)
	app.Post(Path+"/:id/decommission",
		guard.RequirePermission(authService, auth.ResourceVMs, auth.ActionEdit),
		s.Decommission,
	)
}

// List shows the virtual machines with derived statuses.
func (s *Service) List(c *fiber.Ctx) error {
	nav := navigation.NewContext("Virtual Machines", "inventory", "vms").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Virtual Machines", Path, true)

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
		vms        []models.VirtualMachine
		totalCount int64
		tx         = s.db.Model(&models.VirtualMachine{})
	)

	if search != "" {
		like := "%" + search + "%"
		tx = tx.Where("name LIKE ? OR hostname LIKE ?", like, like)
	}

	if err := tx.Count(&totalCount).Error; err != nil {
		log.Error().Err(err).Msg("failed to count virtual machines")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to load virtual machines")
	}

	err := tx.Preload("Owner").
		Order("name").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&vms).Error
	if err != nil {
		log.Error().Err(err).Msg("failed to list virtual machines")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to load virtual machines")
	}

	today := time.Now()
	rows := make([]Row, 0, len(vms))

	for i := range vms {
		derived := status.VirtualMachines.DeriveRaw(vms[i].Status, vms[i].StartDate, vms[i].EndDate, today)

		rows = append(rows, Row{
			VM:      vms[i],
			Status:  derived,
			Actions: status.VMActions(derived),
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

// Create registers a new VM record.
func (s *Service) Create(c *fiber.Ctx) error {
	var f createForm

	if err := c.BodyParser(&f); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid form data")
	}

	if err := s.validator.Struct(f); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("name is required")
	}

	vm := models.VirtualMachine{
		Name:     f.Name,
		Hostname: f.Hostname,
		Notes:    f.Notes,
		Status:   string(status.VMActive),
	}

	if f.OwnerID != 0 {
		vm.OwnerID = &f.OwnerID
	}

	if f.StartDate != "" {
		start, err := time.Parse(dateLayout, f.StartDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("invalid start date")
		}

		vm.StartDate = &start
	}

	if f.EndDate != "" {
		end, err := time.Parse(dateLayout, f.EndDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("invalid end date")
		}

		vm.EndDate = &end
	}

	if vm.StartDate != nil && vm.EndDate != nil && vm.EndDate.Before(*vm.StartDate) {
		return c.Status(fiber.StatusBadRequest).SendString("end date precedes start date")
	}

	if err := s.db.Create(&vm).Error; err != nil {
		log.Error().Err(err).Str("name", f.Name).Msg("failed to create virtual machine")

		return c.Status(fiber.StatusConflict).SendString("virtual machine name already exists")
	}

	return c.Redirect(Path)
}

// MarkNotified acknowledges an overdue VM: the owner has been told. The
// status moves to the sticky notified value so the dashboard stops counting
// it as unacknowledged.
func (s *Service) MarkNotified(c *fiber.Ctx) error {
	vm, derived, ok := s.load(c)
	if !ok {
		return nil
	}

	if !actionAllowed(derived, status.ActionMarkNotified) {
		return c.Status(fiber.StatusConflict).SendString("virtual machine is not overdue")
	}

	if err := s.db.Model(vm).Update("status", string(status.VMOverdueNotified)).Error; err != nil {
		log.Error().Err(err).Uint64("vm_id", vm.ID).Msg("failed to mark virtual machine notified")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to update virtual machine")
	}

	return c.Redirect(Path)
}

// Decommission moves the VM to its terminal sticky status.
func (s *Service) Decommission(c *fiber.Ctx) error {
	vm, derived, ok := s.load(c)
	if !ok {
		return nil
	}

	if !actionAllowed(derived, status.ActionDecommission) {
		return c.Status(fiber.StatusConflict).SendString("virtual machine is already decommissioned")
	}

	if err := s.db.Model(vm).Update("status", string(status.VMDecommissioned)).Error; err != nil {
		log.Error().Err(err).Uint64("vm_id", vm.ID).Msg("failed to decommission virtual machine")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to update virtual machine")
	}

	return c.Redirect(Path)
}

// load fetches the addressed VM and computes its derived status. On failure
// the response is already written and ok is false.
func (s *Service) load(c *fiber.Ctx) (vm *models.VirtualMachine, derived status.Status, ok bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).SendString("invalid vm id")
		return nil, "", false
	}

	var record models.VirtualMachine
	if err := s.db.First(&record, id).Error; err != nil {
		_ = c.Status(fiber.StatusNotFound).SendString("virtual machine not found")
		return nil, "", false
	}

	derived = status.VirtualMachines.DeriveRaw(record.Status, record.StartDate, record.EndDate, time.Now())

	return &record, derived, true
}

// actionAllowed reports whether the action is offered in the derived status.
func actionAllowed(derived status.Status, action status.Action) bool {
	for _, a := range status.VMActions(derived) {
		if a == action {
			return true
		}
	}

	return false
}

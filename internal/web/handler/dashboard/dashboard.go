// Package dashboard provides the inventory overview page.
package dashboard

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoAssetDesk/GoAssetDesk/internal/auth"
	"github.com/GoAssetDesk/GoAssetDesk/internal/config"
	"github.com/GoAssetDesk/GoAssetDesk/internal/db/controller/alerts"
	"github.com/GoAssetDesk/GoAssetDesk/internal/db/controller/setting"
	"github.com/GoAssetDesk/GoAssetDesk/internal/db/models"
	"github.com/GoAssetDesk/GoAssetDesk/internal/status"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/handler"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/middleware/guard"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/navigation"
)

const (
	// Path is the path to the dashboard page.
	Path = handler.RootPath + "dashboard"

	// TemplateName is the name of the dashboard template.
	TemplateName = "dashboard/dashboard"
)

// FamilySummary holds the per-status counts of one resource family.
type FamilySummary struct {
	Total  int
	Counts map[status.Status]int
}

// Alert is one overdue entry surfaced on the dashboard.
type Alert struct {
	Kind   string // "asset", "vm" or "iam"
	Label  string
	Status status.Status
}

// Data represents the complete dashboard data.
type Data struct {
	Assets FamilySummary
	VMs    FamilySummary
	IAM    FamilySummary
	Alerts []Alert
}

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	app.Get(Path,
		guard.RequirePermission(authService, auth.ResourceDashboard, auth.ActionView),
		s.Get,
	)
}

// Get handles the dashboard page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	nav := navigation.NewContext("Dashboard", "dashboard", "dashboard").
		AddBreadcrumb("Home", Path, false).
		AddBreadcrumb("Dashboard", Path, true)

	alertCfg := alerts.Defaults()
	if err := alertCfg.Load(s.db); err != nil && !errors.Is(err, setting.ErrSettingNotFound) {
		log.Error().Err(err).Msg("failed to load alert settings")
	}

	data, err := s.buildData(time.Now(), alertCfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to build dashboard data")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to load dashboard")
	}

	return c.Render(TemplateName, fiber.Map{
		"Navigation": nav,
		"Data":       data,
	}, handler.BaseLayout)
}

// buildData summarizes every resource family at date precision.
func (s *Service) buildData(today time.Time, alertCfg alerts.Settings) (*Data, error) {
	data := &Data{
		Assets: FamilySummary{Counts: make(map[status.Status]int)},
		VMs:    FamilySummary{Counts: make(map[status.Status]int)},
		IAM:    FamilySummary{Counts: make(map[status.Status]int)},
	}

	var assets []models.Asset
	if err := s.db.Find(&assets).Error; err != nil {
		return nil, err
	}

	for i := range assets {
		a := &assets[i]
		derived := status.Assets.DeriveRaw(a.Status, a.CheckoutDate, a.ExpectedCheckinDate, today)
		data.Assets.Total++
		data.Assets.Counts[derived]++

		if alertCfg.IncludeAssets && derived == status.AssetOverdue {
			data.Alerts = append(data.Alerts, Alert{Kind: "asset", Label: a.Tag, Status: derived})
		}
	}

	var vms []models.VirtualMachine
	if err := s.db.Find(&vms).Error; err != nil {
		return nil, err
	}

	for i := range vms {
		vm := &vms[i]
		derived := status.VirtualMachines.DeriveRaw(vm.Status, vm.StartDate, vm.EndDate, today)
		data.VMs.Total++
		data.VMs.Counts[derived]++

		if alertCfg.IncludeVMs &&
			(derived == status.VMOverdueNotNotified || derived == status.VMOverdueNotified) {
			data.Alerts = append(data.Alerts, Alert{Kind: "vm", Label: vm.Name, Status: derived})
		}
	}

	var grants []models.IAMAccount
	if err := s.db.Find(&grants).Error; err != nil {
		return nil, err
	}

	for i := range grants {
		g := &grants[i]
		derived := status.IAMGrants.DeriveRaw(g.Status, g.StartDate, g.EndDate, today)
		data.IAM.Total++
		data.IAM.Counts[derived]++

		if alertCfg.IncludeIAM && derived == status.IAMExpired {
			data.Alerts = append(data.Alerts, Alert{Kind: "iam", Label: g.AccountName + "@" + g.System, Status: derived})
		}
	}

	return data, nil
}

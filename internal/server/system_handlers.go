package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/investbot/investbot/internal/database"
	"github.com/investbot/investbot/internal/modules/catalog"
	"github.com/investbot/investbot/internal/scheduler"
)

// SystemHandlers handles health, status and job trigger endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	catalogDB   *database.DB
	ledgerDB    *database.DB
	catalogRepo *catalog.Repository
	sched       *scheduler.Scheduler

	priceRefreshJob scheduler.Job
	catalogSyncJob  scheduler.Job
}

// NewSystemHandlers creates system handlers.
func NewSystemHandlers(catalogDB, ledgerDB *database.DB, catalogRepo *catalog.Repository,
	sched *scheduler.Scheduler, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now(),
		catalogDB:   catalogDB,
		ledgerDB:    ledgerDB,
		catalogRepo: catalogRepo,
		sched:       sched,
	}
}

// SetJobs wires the trigger endpoints to the registered jobs.
func (h *SystemHandlers) SetJobs(priceRefresh, catalogSync scheduler.Job) {
	h.priceRefreshJob = priceRefresh
	h.catalogSyncJob = catalogSync
}

// RegisterRoutes registers system routes under /api.
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Post("/jobs/price-refresh", h.HandleTriggerPriceRefresh)
		r.Post("/jobs/catalog-sync", h.HandleTriggerCatalogSync)
	})
}

// HandleHealth handles GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if err := h.catalogDB.HealthCheck(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Catalog database unhealthy")
		status, code = "degraded", http.StatusServiceUnavailable
	}
	if err := h.ledgerDB.HealthCheck(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Ledger database unhealthy")
		status, code = "degraded", http.StatusServiceUnavailable
	}

	h.writeJSON(w, code, map[string]string{"status": status})
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuAvg, ramPercent := h.systemStats()

	shares, err := h.catalogRepo.Count(catalog.KindShare)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to count shares")
	}
	bonds, err := h.catalogRepo.Count(catalog.KindBond)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to count bonds")
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime_seconds": int64(time.Since(h.startupTime).Seconds()),
		"cpu_percent":    cpuAvg,
		"ram_percent":    ramPercent,
		"catalog": map[string]int{
			"shares": shares,
			"bonds":  bonds,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleTriggerPriceRefresh handles POST /api/system/jobs/price-refresh
func (h *SystemHandlers) HandleTriggerPriceRefresh(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.priceRefreshJob)
}

// HandleTriggerCatalogSync handles POST /api/system/jobs/catalog-sync
func (h *SystemHandlers) HandleTriggerCatalogSync(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.catalogSyncJob)
}

func (h *SystemHandlers) triggerJob(w http.ResponseWriter, job scheduler.Job) {
	if job == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "Job not registered",
		})
		return
	}

	if err := h.sched.RunNow(job); err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"job":    job.Name(),
	})
}

// systemStats samples CPU and RAM usage. The CPU sample uses a short window
// so the status call stays fast.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

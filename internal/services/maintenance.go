package services

import (
	"context"
	"time"

	"github.com/huangang/studiodesk/backend/internal/config"
	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

type KeepAliveResult struct {
	PingDurationMs int64 `json:"ping_duration_ms"`
	ActiveUsers    int64 `json:"active_users"`
}

// MaintenanceService keeps the store connection warm and prunes the
// activity log on a schedule.
type MaintenanceService struct {
	db       *gorm.DB
	cfg      *config.MaintenanceConfig
	activity *ActivityService
	cron     *cron.Cron
}

func NewMaintenanceService(db *gorm.DB, cfg *config.MaintenanceConfig, activity *ActivityService) *MaintenanceService {
	return &MaintenanceService{db: db, cfg: cfg, activity: activity}
}

// KeepAlive runs a cheap query and reports how long it took.
func (s *MaintenanceService) KeepAlive(ctx context.Context) (*KeepAliveResult, error) {
	start := time.Now()
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return nil, storeError(err)
	}
	return &KeepAliveResult{
		PingDurationMs: time.Since(start).Milliseconds(),
		ActiveUsers:    count,
	}, nil
}

func (s *MaintenanceService) PruneActivity(ctx context.Context) {
	deleted, err := s.activity.Prune(ctx, s.cfg.ActivityRetainDays)
	if err != nil {
		logger.Warn().Err(err).Msg("activity prune failed")
		return
	}
	if deleted > 0 {
		logger.Info().Int64("deleted", deleted).Int("retain_days", s.cfg.ActivityRetainDays).Msg("activity log pruned")
	}
}

func (s *MaintenanceService) StartScheduler() error {
	s.cron = cron.New()

	if _, err := s.cron.AddFunc("@daily", func() {
		s.PruneActivity(context.Background())
	}); err != nil {
		return err
	}

	if s.cfg.KeepAliveEnabled {
		spec := s.cfg.KeepAliveSpec
		if spec == "" {
			spec = "@every 4m"
		}
		if _, err := s.cron.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if res, err := s.KeepAlive(ctx); err != nil {
				logger.Warn().Err(err).Msg("keep-alive ping failed")
			} else {
				logger.Debug().Int64("ping_ms", res.PingDurationMs).Msg("keep-alive ping")
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	logger.Infof("[Maintenance] Scheduler started with %d jobs", len(s.cron.Entries()))
	return nil
}

func (s *MaintenanceService) StopScheduler() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

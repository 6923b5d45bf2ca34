package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// BookingPurger deletes bookings that ended before a cutoff
type BookingPurger interface {
	PurgeBookingsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CronService manages scheduled housekeeping jobs
type CronService struct {
	cron          *cron.Cron
	bookings      BookingPurger
	rateLimits    *RateLimitService
	audit         *AuditService
	retentionDays int
	jobTimeout    time.Duration
	logger        *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(bookings BookingPurger, rateLimits *RateLimitService, audit *AuditService, retentionDays int, logger *logrus.Logger) *CronService {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &CronService{
		cron:          cron.New(cron.WithSeconds()),
		bookings:      bookings,
		rateLimits:    rateLimits,
		audit:         audit,
		retentionDays: retentionDays,
		jobTimeout:    5 * time.Minute,
		logger:        logger,
	}
}

// Start schedules all jobs and starts the scheduler
func (s *CronService) Start() error {
	// second minute hour day month weekday
	jobs := []struct {
		spec string
		name string
		fn   func()
	}{
		{"0 0 3 * * *", "Purge past bookings (daily at 03:00)", s.purgeBookingsJob},
		{"0 */15 * * * *", "Cleanup rate limit records (every 15 minutes)", s.cleanupRateLimitsJob},
		{"0 0 4 * * 0", "Cleanup old audit logs (Sundays at 04:00)", s.cleanupAuditLogsJob},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.fn); err != nil {
			return fmt.Errorf("failed to schedule %q: %w", job.name, err)
		}
		s.logger.WithField("job", job.name).Info("✓ Scheduled cron job")
	}

	s.cron.Start()
	s.logger.Info("✓ Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	<-s.cron.Stop().Done()
	s.logger.Info("✓ Cron service stopped")
}

// RunPurgeBookingsNow runs the booking purge immediately
func (s *CronService) RunPurgeBookingsNow() {
	s.purgeBookingsJob()
}

func (s *CronService) purgeBookingsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	start := time.Now()
	cutoff := start.AddDate(0, 0, -s.retentionDays)

	n, err := s.bookings.PurgeBookingsBefore(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to purge past bookings")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"deleted":  n,
		"cutoff":   cutoff,
		"duration": time.Since(start),
	}).Info("[CRON] Purged past bookings")
}

func (s *CronService) cleanupRateLimitsJob() {
	if s.rateLimits == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	n, err := s.rateLimits.CleanupExpiredRateLimits(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to cleanup rate limits")
		return
	}
	if n > 0 {
		s.logger.WithField("deleted", n).Debug("[CRON] Cleaned up rate limit records")
	}
}

func (s *CronService) cleanupAuditLogsJob() {
	if s.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	n, err := s.audit.CleanupOldAuditLogs(ctx, time.Duration(s.retentionDays)*24*time.Hour)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to cleanup audit logs")
		return
	}
	s.logger.WithField("deleted", n).Info("[CRON] Cleaned up old audit logs")
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}

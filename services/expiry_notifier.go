package services

import (
	"fmt"
	"time"

	"github.com/joynpoolmaster-tech/my-academy-bus/config"
	"github.com/joynpoolmaster-tech/my-academy-bus/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ExpiryNotifier runs a daily sweep for subscriptions that are about
// to end and leaves a notification for every admin of the student's
// branch plus every master user.
type ExpiryNotifier struct {
	db   *gorm.DB
	subs *SubscriptionService
	cron *cron.Cron
	cfg  *config.Config
}

func NewExpiryNotifier(db *gorm.DB, subs *SubscriptionService, cfg *config.Config) *ExpiryNotifier {
	return &ExpiryNotifier{db: db, subs: subs, cfg: cfg}
}

// Start schedules the daily sweep. Call Stop on shutdown.
func (n *ExpiryNotifier) Start() error {
	n.cron = cron.New()
	_, err := n.cron.AddFunc(n.cfg.ExpiryCronSpec, func() {
		if err := n.Sweep(time.Now()); err != nil {
			logrus.WithError(err).Error("Expiry sweep failed")
		}
	})
	if err != nil {
		return err
	}
	n.cron.Start()
	logrus.WithField("spec", n.cfg.ExpiryCronSpec).Info("Expiry notifier scheduled")
	return nil
}

func (n *ExpiryNotifier) Stop() {
	if n.cron != nil {
		n.cron.Stop()
	}
}

// Sweep finds students expiring within the configured window and
// notifies the responsible operators. Re-running the sweep on the same
// day does not duplicate notifications.
func (n *ExpiryNotifier) Sweep(asOf time.Time) error {
	students, err := n.subs.ExpiringWithin(GlobalScope(), n.cfg.ExpiryNoticeDays, asOf)
	if err != nil {
		return err
	}
	if len(students) == 0 {
		return nil
	}

	var recipients []models.User
	err = n.db.Where("role = ?", models.RoleMaster).
		Or("role = ? AND branch_id IS NOT NULL", models.RoleAdmin).
		Find(&recipients).Error
	if err != nil {
		return err
	}

	created := 0
	for _, st := range students {
		if st.EndDate == nil {
			continue
		}
		title := fmt.Sprintf("Subscription expiring: %s", st.User.Name)
		message := fmt.Sprintf("%s's transportation subscription ends on %s.",
			st.User.Name, st.EndDate.Format("2006-01-02"))

		for _, r := range recipients {
			if r.Role == models.RoleAdmin && (r.BranchID == nil || *r.BranchID != st.BranchID) {
				continue
			}
			var dup int64
			err := n.db.Model(&models.Notification{}).
				Where("user_id = ? AND title = ? AND created_at >= ?",
					r.ID, title, asOf.Truncate(24*time.Hour)).
				Count(&dup).Error
			if err != nil || dup > 0 {
				continue
			}
			note := models.Notification{
				UserID:  r.ID,
				Title:   title,
				Message: message,
				Type:    "warning",
			}
			if err := n.db.Create(&note).Error; err == nil {
				created++
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"expiring":      len(students),
		"notifications": created,
	}).Info("Expiry sweep completed")
	return nil
}

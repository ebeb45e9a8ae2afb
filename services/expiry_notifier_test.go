package services

import (
	"testing"
	"time"

	"github.com/joynpoolmaster-tech/my-academy-bus/config"
	"github.com/joynpoolmaster-tech/my-academy-bus/models"
)

func TestExpirySweep(t *testing.T) {
	db := newTestDB(t)
	gangnam := makeBranch(t, db, "Gangnam")
	suwon := makeBranch(t, db, "Suwon")

	master := makeUser(t, db, "master@test.local", models.RoleMaster, nil)
	gnAdmin := makeUser(t, db, "gn-admin@test.local", models.RoleAdmin, &gangnam.ID)
	swAdmin := makeUser(t, db, "sw-admin@test.local", models.RoleAdmin, &suwon.ID)

	makeStudent(t, db, gangnam, "expiring", 3)
	makeStudent(t, db, gangnam, "healthy", 60)

	cfg := &config.Config{ExpiryNoticeDays: 7, ExpiryCronSpec: "0 8 * * *"}
	notifier := NewExpiryNotifier(db, NewSubscriptionService(db), cfg)

	if err := notifier.Sweep(time.Now()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	count := func(userID uint) int64 {
		var n int64
		db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&n)
		return n
	}

	if count(master.ID) != 1 {
		t.Errorf("master notifications = %d, want 1", count(master.ID))
	}
	if count(gnAdmin.ID) != 1 {
		t.Errorf("gangnam admin notifications = %d, want 1", count(gnAdmin.ID))
	}
	if count(swAdmin.ID) != 0 {
		t.Errorf("suwon admin notifications = %d, want 0", count(swAdmin.ID))
	}

	// Second run on the same day adds nothing.
	if err := notifier.Sweep(time.Now()); err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if count(master.ID) != 1 {
		t.Errorf("master notifications after rerun = %d, want 1", count(master.ID))
	}
}

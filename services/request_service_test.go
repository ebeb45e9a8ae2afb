package services

import (
	"errors"
	"testing"

	"github.com/joynpoolmaster-tech/my-academy-bus/models"
)

func TestSpecialRequestLifecycle(t *testing.T) {
	db := newTestDB(t)
	branch := makeBranch(t, db, "Gangnam")
	admin := makeUser(t, db, "admin@test.local", models.RoleAdmin, &branch.ID)
	s1 := makeStudent(t, db, branch, "one", 30)
	s2 := makeStudent(t, db, branch, "two", 30)

	svc := NewRequestService(db)
	scope := BranchScopeFor(branch.ID)

	req, err := svc.Create(scope, admin.ID, CreateRequestInput{
		RequestType: "early_pickup",
		StudentIDs:  []uint{s1.ID, s2.ID},
		Reason:      "exam day",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if req.Status != models.RequestPending {
		t.Errorf("status = %s, want pending", req.Status)
	}
	if req.Priority != "normal" {
		t.Errorf("priority = %s, want normal default", req.Priority)
	}

	ids, err := req.StudentIDList()
	if err != nil {
		t.Fatalf("StudentIDList: %v", err)
	}
	if len(ids) != 2 || ids[0] != s1.ID || ids[1] != s2.ID {
		t.Errorf("ids = %v", ids)
	}

	// Survives a reload; nothing lives in session state.
	var reloaded models.SpecialRequest
	if err := db.First(&reloaded, req.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.RequestPending || reloaded.CreatedByID != admin.ID {
		t.Errorf("reloaded = %+v", reloaded)
	}

	resolved, err := svc.Resolve(scope, req.ID, models.RequestApproved)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Status != models.RequestApproved {
		t.Errorf("status = %s", resolved.Status)
	}

	// Resolved requests are immutable.
	if _, err := svc.Resolve(scope, req.ID, models.RequestRejected); !errors.Is(err, ErrRequestResolved) {
		t.Errorf("re-resolve err = %v, want ErrRequestResolved", err)
	}
}

func TestSpecialRequestValidation(t *testing.T) {
	db := newTestDB(t)
	branch := makeBranch(t, db, "Gangnam")
	other := makeBranch(t, db, "Suwon")
	admin := makeUser(t, db, "admin@test.local", models.RoleAdmin, &branch.ID)
	local := makeStudent(t, db, branch, "local", 30)
	foreign := makeStudent(t, db, other, "foreign", 30)

	svc := NewRequestService(db)
	scope := BranchScopeFor(branch.ID)

	t.Run("requires students and reason", func(t *testing.T) {
		if _, err := svc.Create(scope, admin.ID, CreateRequestInput{Reason: "x"}); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("no students err = %v", err)
		}
		if _, err := svc.Create(scope, admin.ID, CreateRequestInput{StudentIDs: []uint{local.ID}}); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("no reason err = %v", err)
		}
	})

	t.Run("rejects out-of-scope students", func(t *testing.T) {
		_, err := svc.Create(scope, admin.ID, CreateRequestInput{
			StudentIDs: []uint{local.ID, foreign.ID},
			Reason:     "mixed branches",
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("rejects unknown resolution status", func(t *testing.T) {
		req, err := svc.Create(scope, admin.ID, CreateRequestInput{
			StudentIDs: []uint{local.ID},
			Reason:     "field trip",
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := svc.Resolve(scope, req.ID, "maybe"); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("err = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("foreign scope cannot resolve", func(t *testing.T) {
		req, err := svc.Create(scope, admin.ID, CreateRequestInput{
			StudentIDs: []uint{local.ID},
			Reason:     "late class",
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := svc.Resolve(BranchScopeFor(other.ID), req.ID, models.RequestApproved); !errors.Is(err, ErrAuthorization) {
			t.Errorf("err = %v, want ErrAuthorization", err)
		}
	})
}

func TestSpecialRequestListFiltering(t *testing.T) {
	db := newTestDB(t)
	branch := makeBranch(t, db, "Gangnam")
	other := makeBranch(t, db, "Suwon")
	admin := makeUser(t, db, "admin@test.local", models.RoleAdmin, &branch.ID)
	otherAdmin := makeUser(t, db, "admin2@test.local", models.RoleAdmin, &other.ID)
	local := makeStudent(t, db, branch, "local", 30)
	foreign := makeStudent(t, db, other, "foreign", 30)

	svc := NewRequestService(db)

	if _, err := svc.Create(BranchScopeFor(branch.ID), admin.ID, CreateRequestInput{
		StudentIDs: []uint{local.ID}, Reason: "a",
	}); err != nil {
		t.Fatalf("create local: %v", err)
	}
	if _, err := svc.Create(BranchScopeFor(other.ID), otherAdmin.ID, CreateRequestInput{
		StudentIDs: []uint{foreign.ID}, Reason: "b",
	}); err != nil {
		t.Fatalf("create foreign: %v", err)
	}

	all, err := svc.List(GlobalScope(), "")
	if err != nil {
		t.Fatalf("List master: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("master sees %d, want 2", len(all))
	}

	mine, err := svc.List(BranchScopeFor(branch.ID), "")
	if err != nil {
		t.Fatalf("List admin: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("admin sees %d, want 1", len(mine))
	}
	if mine[0].Reason != "a" {
		t.Errorf("admin sees wrong request: %s", mine[0].Reason)
	}

	pending, err := svc.List(GlobalScope(), models.RequestPending)
	if err != nil {
		t.Fatalf("List pending: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}
}

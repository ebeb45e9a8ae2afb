package services

import (
	"testing"

	"github.com/joynpoolmaster-tech/my-academy-bus/models"
)

func TestListForDate(t *testing.T) {
	db := newTestDB(t)
	branch := makeBranch(t, db, "Gangnam")
	for i := 0; i < 5; i++ {
		makeStudent(t, db, branch, "stu-"+string(rune('a'+i)), 30)
	}
	makeVehicle(t, db, branch, "GN-01", 3)
	makeVehicle(t, db, branch, "GN-02", 2)

	planner := NewDispatchPlanner(db, NewSubscriptionService(db))
	if _, err := planner.CreateDispatch(GlobalScope(), PlanRequest{Date: today(), ExcludeAbsent: true}); err != nil {
		t.Fatalf("CreateDispatch: %v", err)
	}

	svc := NewDispatchQueryService(db)
	roster, err := svc.ListForDate(GlobalScope(), today())
	if err != nil {
		t.Fatalf("ListForDate: %v", err)
	}

	if roster.Total != 5 {
		t.Errorf("total = %d, want 5", roster.Total)
	}
	if len(roster.Vehicles) != 2 {
		t.Fatalf("vehicle groups = %d, want 2", len(roster.Vehicles))
	}
	if len(roster.Vehicles[0].Assignments) != 3 || len(roster.Vehicles[1].Assignments) != 2 {
		t.Errorf("group sizes = %d and %d, want 3 and 2",
			len(roster.Vehicles[0].Assignments), len(roster.Vehicles[1].Assignments))
	}
	for _, vr := range roster.Vehicles {
		for i, a := range vr.Assignments {
			if a.StopOrder != i+1 {
				t.Errorf("vehicle %d stop order[%d] = %d", vr.Vehicle.ID, i, a.StopOrder)
			}
			if a.VehicleID != vr.Vehicle.ID {
				t.Errorf("assignment grouped under wrong vehicle")
			}
		}
	}
}

func TestListForDateEmpty(t *testing.T) {
	db := newTestDB(t)
	svc := NewDispatchQueryService(db)

	roster, err := svc.ListForDate(GlobalScope(), today())
	if err != nil {
		t.Fatalf("ListForDate: %v", err)
	}
	if roster.Total != 0 || len(roster.Vehicles) != 0 {
		t.Errorf("empty date returned %d rows", roster.Total)
	}
}

func TestDatesAndHistory(t *testing.T) {
	db := newTestDB(t)
	branch := makeBranch(t, db, "Gangnam")
	student := makeStudent(t, db, branch, "one", 60)
	if err := db.Model(&student).Update("class_name", "Phonics A").Error; err != nil {
		t.Fatalf("set class: %v", err)
	}
	makeVehicle(t, db, branch, "GN-01", 3)

	planner := NewDispatchPlanner(db, NewSubscriptionService(db))
	yesterday := today().AddDate(0, 0, -1)

	if _, err := planner.CreateDispatch(GlobalScope(), PlanRequest{Date: yesterday, ExcludeAbsent: true}); err != nil {
		t.Fatalf("create yesterday: %v", err)
	}
	result, err := planner.CreateDispatch(GlobalScope(), PlanRequest{Date: today(), ExcludeAbsent: true})
	if err != nil {
		t.Fatalf("create today: %v", err)
	}

	if _, err := planner.UpdateStatus(GlobalScope(), result.Assignments[0].ID, models.DispatchCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	svc := NewDispatchQueryService(db)

	dates, err := svc.Dates(GlobalScope())
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}
	if len(dates) != 2 {
		t.Fatalf("dates = %v, want 2 entries", dates)
	}
	if !dates[0].Equal(today()) || !dates[1].Equal(yesterday) {
		t.Errorf("dates order = %v, want newest first", dates)
	}

	history, err := svc.History(GlobalScope(), yesterday, today())
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d entries, want 2", len(history))
	}
	if history[0].Completed != 1 || history[0].Total != 1 || history[0].Vehicles != 1 {
		t.Errorf("today's entry = %+v", history[0])
	}
	if history[0].ByClass["Phonics A"] != 1 {
		t.Errorf("class breakdown = %v", history[0].ByClass)
	}
	if history[1].Completed != 0 {
		t.Errorf("yesterday's entry = %+v", history[1])
	}

	// Range bounds exclude days outside the window.
	history, err = svc.History(GlobalScope(), today(), today())
	if err != nil {
		t.Fatalf("History ranged: %v", err)
	}
	if len(history) != 1 || !history[0].Date.Equal(today()) {
		t.Errorf("ranged history = %+v", history)
	}
}

func TestQueriesScopedToBranch(t *testing.T) {
	db := newTestDB(t)
	gangnam := makeBranch(t, db, "Gangnam")
	suwon := makeBranch(t, db, "Suwon")
	makeStudent(t, db, gangnam, "gn-one", 30)
	makeStudent(t, db, suwon, "sw-one", 30)
	makeVehicle(t, db, gangnam, "GN-01", 3)
	makeVehicle(t, db, suwon, "SW-01", 3)

	planner := NewDispatchPlanner(db, NewSubscriptionService(db))
	if _, err := planner.CreateDispatch(BranchScopeFor(gangnam.ID), PlanRequest{Date: today(), ExcludeAbsent: true}); err != nil {
		t.Fatalf("gangnam create: %v", err)
	}
	if _, err := planner.CreateDispatch(BranchScopeFor(suwon.ID), PlanRequest{Date: today(), ExcludeAbsent: true}); err != nil {
		t.Fatalf("suwon create: %v", err)
	}

	svc := NewDispatchQueryService(db)
	roster, err := svc.ListForDate(BranchScopeFor(gangnam.ID), today())
	if err != nil {
		t.Fatalf("ListForDate: %v", err)
	}
	if roster.Total != 1 {
		t.Fatalf("branch roster total = %d, want 1", roster.Total)
	}
	if roster.Vehicles[0].Vehicle.BranchID != gangnam.ID {
		t.Error("foreign branch vehicle leaked into roster")
	}
}

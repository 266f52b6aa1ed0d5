package access

import (
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-access/internal/apperr"
)

func businessHours(roomID, roleID int64) *Rule {
	return &Rule{
		RoomID:   roomID,
		RoleID:   roleID,
		TimeFrom: MustParseTimeOfDay("08:00"),
		TimeTo:   MustParseTimeOfDay("18:00"),
	}
}

func TestRuleCreate(t *testing.T) {
	repo := NewRuleRepository(setupTestDB(t))
	ctx := t.Context()

	rule := businessHours(1, 2)
	if err := repo.Create(ctx, rule); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.Get(ctx, rule.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RoomID != 1 || got.RoleID != 2 || got.TimeFrom.String() != "08:00:00" || got.TimeTo.String() != "18:00:00" {
		t.Errorf("got %+v", got)
	}
}

func TestRuleCreateDuplicatePair(t *testing.T) {
	repo := NewRuleRepository(setupTestDB(t))
	ctx := t.Context()

	if err := repo.Create(ctx, businessHours(1, 2)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A different window for the same pair is still a duplicate.
	dup := &Rule{RoomID: 1, RoleID: 2, TimeFrom: MustParseTimeOfDay("20:00"), TimeTo: MustParseTimeOfDay("22:00")}
	err := repo.Create(ctx, dup)
	if !errors.Is(err, apperr.ErrAccessRuleAlreadyExists) {
		t.Fatalf("Create() error = %v, want AccessRuleAlreadyExists", err)
	}
	e, _ := apperr.As(err)
	if e.HTTPStatus() != 409 {
		t.Errorf("status = %d, want 409", e.HTTPStatus())
	}
	if e.Detail != "AccessRule with room_id=1 and role_id=2 already exists" {
		t.Errorf("Detail = %q", e.Detail)
	}

	rules, err := repo.ListByRoom(ctx, 1, 0, 100)
	if err != nil {
		t.Fatalf("ListByRoom: %v", err)
	}
	if len(rules) != 1 {
		t.Errorf("expected exactly one rule for the pair, got %d", len(rules))
	}
}

func TestRuleCreateConcurrent(t *testing.T) {
	repo := NewRuleRepository(setupTestDB(t))
	ctx := t.Context()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, businessHours(2, 1))
		}(i)
	}
	wg.Wait()

	var created, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, apperr.ErrAccessRuleAlreadyExists):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if created != 1 || conflicts != workers-1 {
		t.Errorf("created = %d, conflicts = %d", created, conflicts)
	}
}

func TestRuleCreateMissingRoom(t *testing.T) {
	repo := NewRuleRepository(setupTestDB(t))

	err := repo.Create(t.Context(), businessHours(99, 1))
	if !errors.Is(err, apperr.ErrCreateFailed) {
		t.Errorf("Create() error = %v, want CreateFailed", err)
	}
}

func TestRuleInvertedWindowAccepted(t *testing.T) {
	repo := NewRuleRepository(setupTestDB(t))

	night := &Rule{RoomID: 1, RoleID: 2, TimeFrom: MustParseTimeOfDay("22:00"), TimeTo: MustParseTimeOfDay("06:00")}
	if err := repo.Create(t.Context(), night); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.Get(t.Context(), night.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TimeFrom.String() != "22:00:00" || got.TimeTo.String() != "06:00:00" {
		t.Errorf("window was altered: %s-%s", got.TimeFrom, got.TimeTo)
	}
}

func TestRuleUpdate(t *testing.T) {
	repo := NewRuleRepository(setupTestDB(t))
	ctx := t.Context()

	a := businessHours(1, 1)
	b := businessHours(1, 2)
	for _, r := range []*Rule{a, b} {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.Update(ctx, a.ID, RulePatch{TimeTo: ptr(MustParseTimeOfDay("19:30"))})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.TimeTo.String() != "19:30:00" || got.TimeFrom.String() != "08:00:00" || got.RoleID != 1 {
		t.Errorf("got %+v", got)
	}

	// Moving a onto b's pair conflicts and leaves a unchanged.
	_, err = repo.Update(ctx, a.ID, RulePatch{RoleID: ptr(int64(2))})
	if !errors.Is(err, apperr.ErrAccessRuleAlreadyExists) {
		t.Fatalf("Update() error = %v, want AccessRuleAlreadyExists", err)
	}
	stored, err := repo.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.RoleID != 1 {
		t.Errorf("failed update leaked: role_id = %d", stored.RoleID)
	}

	if _, err := repo.Update(ctx, 99, RulePatch{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Update(99) error = %v, want NotFound", err)
	}
}

func TestRuleListByRole(t *testing.T) {
	repo := NewRuleRepository(setupTestDB(t))
	ctx := t.Context()

	for _, r := range []*Rule{businessHours(1, 1), businessHours(2, 1), businessHours(2, 2)} {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	staff, err := repo.ListByRole(ctx, 1, 0, 100)
	if err != nil {
		t.Fatalf("ListByRole: %v", err)
	}
	if len(staff) != 2 {
		t.Errorf("staff rules = %d, want 2", len(staff))
	}

	all, err := repo.List(ctx, 0, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("limit not applied: %d", len(all))
	}
}

func TestRuleDelete(t *testing.T) {
	repo := NewRuleRepository(setupTestDB(t))
	ctx := t.Context()

	rule := businessHours(1, 1)
	if err := repo.Create(ctx, rule); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Delete(ctx, rule.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, rule.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want NotFound", err)
	}

	// The pair is free again.
	if err := repo.Create(ctx, businessHours(1, 1)); err != nil {
		t.Errorf("re-create after delete: %v", err)
	}
}

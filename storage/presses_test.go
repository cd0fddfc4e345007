package storage

import (
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndGetPresses(t *testing.T) {
	db := openTestDB(t)

	presses := []*Press{
		{Code: 79, Kind: "combo", Value: "Ctrl+Alt+T", Success: true},
		{Code: 80, Kind: "command", Value: "echo hi", Success: true},
		{Code: 81, Kind: "command", Value: "nope", Success: false, ErrorMessage: "spawn failed"},
	}
	for _, p := range presses {
		if err := db.SavePress(p); err != nil {
			t.Fatalf("SavePress: %v", err)
		}
		if p.ID == 0 {
			t.Error("SavePress did not set ID")
		}
	}

	got, err := db.GetPresses(10, 0)
	if err != nil {
		t.Fatalf("GetPresses: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d presses, want 3", len(got))
	}
	// newest first
	if got[0].Code != 81 || got[0].Success || got[0].ErrorMessage != "spawn failed" {
		t.Errorf("newest press = %+v", got[0])
	}
	if got[2].Code != 79 || got[2].Kind != "combo" {
		t.Errorf("oldest press = %+v", got[2])
	}

	count, err := db.GetPressCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestGetPressesPagination(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 5; i++ {
		if err := db.SavePress(&Press{Code: uint16(70 + i), Kind: "command", Value: "true", Success: true}); err != nil {
			t.Fatal(err)
		}
	}

	page, err := db.GetPresses(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if page[0].Code != 72 || page[1].Code != 71 {
		t.Errorf("page codes = %d, %d, want 72, 71", page[0].Code, page[1].Code)
	}
}

func TestDeletePress(t *testing.T) {
	db := openTestDB(t)
	p := &Press{Code: 79, Kind: "combo", Value: "Super+L", Success: true}
	if err := db.SavePress(p); err != nil {
		t.Fatal(err)
	}
	if err := db.DeletePress(p.ID); err != nil {
		t.Fatalf("DeletePress: %v", err)
	}
	if err := db.DeletePress(p.ID); err == nil {
		t.Error("deleting a missing press should fail")
	}
}

func TestClearPresses(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 3; i++ {
		if err := db.SavePress(&Press{Code: 79, Kind: "command", Value: "true", Success: true}); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.ClearPresses(); err != nil {
		t.Fatal(err)
	}
	count, err := db.GetPressCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("count after clear = %d", count)
	}
}

func TestDailyStatsAndTopKeys(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 4; i++ {
		if err := db.SavePress(&Press{Code: 79, Kind: "combo", Value: "Alt+Tab", Success: true}); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.SavePress(&Press{Code: 80, Kind: "command", Value: "nope", Success: false, ErrorMessage: "x"}); err != nil {
		t.Fatal(err)
	}

	stats, err := db.GetDailyStats(7)
	if err != nil {
		t.Fatalf("GetDailyStats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("daily stats rows = %d, want 1", len(stats))
	}
	if stats[0].TotalPresses != 5 || stats[0].SuccessCount != 4 || stats[0].FailureCount != 1 {
		t.Errorf("daily stats = %+v", stats[0])
	}

	top, err := db.GetTopKeys(7, 10)
	if err != nil {
		t.Fatalf("GetTopKeys: %v", err)
	}
	if len(top) != 2 || top[0].Code != 79 || top[0].TotalPresses != 4 {
		t.Errorf("top keys = %+v", top)
	}
}

package memory

import (
	"context"
	"testing"
)

func TestSheetAppends(t *testing.T) {
	s := New("Preview")
	where, err := s.Export(context.Background(), []string{"Date", "Amount"}, [][]string{{"2025-03-17", "1.00"}})
	if err != nil {
		t.Fatal(err)
	}
	if where != "Preview!1:2" {
		t.Fatalf("first export = %q", where)
	}
	where, _ = s.Export(context.Background(), []string{"Date", "Amount"}, [][]string{{"2025-03-18", "2.00"}, {"2025-03-19", "3.00"}})
	if where != "Preview!3:5" {
		t.Fatalf("second export = %q", where)
	}

	rows := s.Rows()
	if len(rows) != 5 || rows[4][1] != "3.00" {
		t.Fatalf("rows = %v", rows)
	}
	rows[0][0] = "mutated"
	if s.Rows()[0][0] != "Date" {
		t.Fatal("Rows exposed internal storage")
	}
}

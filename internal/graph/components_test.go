package graph

import (
	"reflect"
	"testing"
)

func TestProcessingQueue(t *testing.T) {
	pq := NewProcessingQueue()
	if !pq.IsEmpty() {
		t.Error("new queue should be empty")
	}

	pq.Enqueue("1")
	pq.Enqueue("2")
	if pq.Len() != 2 {
		t.Errorf("expected length 2, got %d", pq.Len())
	}

	if id, ok := pq.Dequeue(); !ok || id != "1" {
		t.Errorf("expected FIFO order, got %q", id)
	}
	_, _ = pq.Dequeue()
	if _, ok := pq.Dequeue(); ok {
		t.Error("Dequeue() on empty queue should return false")
	}
}

func TestFamilies(t *testing.T) {
	g := buildFromRows(t, "SH", []PartnerRow{
		{SoldTo: "100", ShipTo: "20", Function: "SH"},
		{SoldTo: "7", ShipTo: "20", Function: "BP"},
		{SoldTo: "50", ShipTo: "51", Function: "SH"},
		{SoldTo: "9", ShipTo: "9", Function: "SH"},
	})

	expected := [][]string{
		{"7", "20", "100"},
		{"9"},
		{"50", "51"},
	}
	if got := g.Families(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Families() = %v, expected %v", got, expected)
	}

	if got := g.Family("100"); !reflect.DeepEqual(got, []string{"7", "20", "100"}) {
		t.Errorf("Family(100) = %v", got)
	}
	if got := g.Family("404"); got != nil {
		t.Errorf("expected nil family for unknown id, got %v", got)
	}
}

package worklist

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFIFO(t *testing.T) {
	var order []int
	StartV([]int{1, 2}, func(next int, add func(int)) {
		order = append(order, next)
		if next < 3 {
			add(next * 10)
		}
	})

	if diff := cmp.Diff([]int{1, 2, 10, 20}, order); diff != "" {
		t.Errorf("Processing order (-want +got):\n%s", diff)
	}
}

func TestEmpty(t *testing.T) {
	w := Empty[string]()
	if !w.IsEmpty() || w.GetNext() != "" {
		t.Error("An empty worklist yields items")
	}
	w.Add("a")
	if w.Len() != 1 || w.GetNext() != "a" || !w.IsEmpty() {
		t.Error("Add/GetNext round trip failed")
	}
}

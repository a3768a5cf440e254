package lib

import (
	"reflect"
	"testing"
)

func queueNames(q *fileQueue) []string {
	var names []string
	for file := q.head; file != nil; file = file.next {
		names = append(names, file.name)
	}
	return names
}

func pushNames(q *fileQueue, names ...string) {
	for _, name := range names {
		q.push(&fileNode{name: name, fd: -1})
	}
}

func popNames(q *fileQueue) []string {
	var names []string
	for file := q.pop(); file != nil; file = q.pop() {
		names = append(names, file.name)
	}
	return names
}

func byteLess(a, b string) bool { return a < b }

func TestFileQueue_fifo(t *testing.T) {
	var q fileQueue
	q.init()
	pushNames(&q, "a", "b", "c")
	if got := popNames(&q); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("pop order = %v", got)
	}
	if q.target != &q.head {
		t.Error("empty queue should insert at the head")
	}
	pushNames(&q, "d")
	if got := popNames(&q); !reflect.DeepEqual(got, []string{"d"}) {
		t.Errorf("reuse after drain = %v", got)
	}
}

func TestFileQueue_depthFirstBatchGoesFirst(t *testing.T) {
	var q fileQueue
	q.init()
	pushNames(&q, "a", "b")
	if file := q.pop(); file.name != "a" {
		t.Fatalf("popped %s", file.name)
	}
	q.batchStart(true)
	pushNames(&q, "a/x", "a/y")
	if got := queueNames(&q); !reflect.DeepEqual(got, []string{"a/x", "a/y", "b"}) {
		t.Errorf("queue = %v", got)
	}
}

func TestFileQueue_breadthFirstBatchGoesLast(t *testing.T) {
	var q fileQueue
	q.init()
	pushNames(&q, "a", "b")
	q.pop()
	q.batchStart(false)
	pushNames(&q, "a/x")
	if got := queueNames(&q); !reflect.DeepEqual(got, []string{"b", "a/x"}) {
		t.Errorf("queue = %v", got)
	}
}

func TestFileQueue_batchSortOnlySortsBatch(t *testing.T) {
	var q fileQueue
	q.init()
	pushNames(&q, "z", "y")
	start := q.batchStart(false)
	pushNames(&q, "c", "a", "b")
	q.batchSort(start, byteLess)
	pushNames(&q, "after")
	if got := queueNames(&q); !reflect.DeepEqual(got, []string{"z", "y", "a", "b", "c", "after"}) {
		t.Errorf("queue = %v", got)
	}

	q.init()
	pushNames(&q, "rest")
	start = q.batchStart(true)
	pushNames(&q, "c", "a")
	q.batchSort(start, byteLess)
	pushNames(&q, "b")
	if got := queueNames(&q); !reflect.DeepEqual(got, []string{"a", "c", "b", "rest"}) {
		t.Errorf("depth-first queue = %v", got)
	}
}

func TestFileQueue_emptyBatchSort(t *testing.T) {
	var q fileQueue
	q.init()
	pushNames(&q, "a")
	start := q.batchStart(false)
	q.batchSort(start, byteLess)
	pushNames(&q, "b")
	if got := queueNames(&q); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("queue = %v", got)
	}
}

func TestMergeSortFiles_stable(t *testing.T) {
	var q fileQueue
	q.init()
	pushNames(&q, "b1", "a", "b2", "c", "b3")
	firstLetter := func(a, b string) bool { return a[0] < b[0] }
	sorted := mergeSortFiles(q.head, firstLetter)
	var got []string
	for file := sorted; file != nil; file = file.next {
		got = append(got, file.name)
	}
	if want := []string{"a", "b1", "b2", "b3", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
}

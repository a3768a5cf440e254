package lib

// fileQueue is a singly-linked list of nodes waiting to be visited. New
// nodes are inserted at target, which normally points at the tail link.
// Moving target back to the head before a directory's children are pushed
// splices that batch in front of everything already queued, which turns the
// FIFO into depth-first order without a separate stack.
type fileQueue struct {
	head   *fileNode
	target **fileNode
}

func (q *fileQueue) init() {
	q.head = nil
	q.target = &q.head
}

func (q *fileQueue) push(file *fileNode) {
	file.next = *q.target
	*q.target = file
	q.target = &file.next
}

func (q *fileQueue) pop() *fileNode {
	file := q.head
	if file == nil {
		return nil
	}
	q.head = file.next
	if q.target == &file.next {
		q.target = &q.head
	}
	file.next = nil
	return file
}

// batchStart marks the beginning of a directory's children and returns the
// link where the batch begins.
func (q *fileQueue) batchStart(depthFirst bool) **fileNode {
	if depthFirst {
		q.target = &q.head
	}
	return q.target
}

// batchSort sorts the batch that starts at *start and ends at q.target,
// leaving nodes outside the batch where they were.
func (q *fileQueue) batchSort(start **fileNode, less func(a, b string) bool) {
	end := *q.target
	if *start == end {
		return
	}

	// Detach the batch.
	*q.target = nil
	sorted := mergeSortFiles(*start, less)

	*start = sorted
	last := sorted
	for last.next != nil {
		last = last.next
	}
	last.next = end
	q.target = &last.next
}

// mergeSortFiles stably sorts a nil-terminated list by name.
func mergeSortFiles(head *fileNode, less func(a, b string) bool) *fileNode {
	if head == nil || head.next == nil {
		return head
	}

	slow, fast := head, head.next
	for fast != nil && fast.next != nil {
		slow = slow.next
		fast = fast.next.next
	}
	right := slow.next
	slow.next = nil

	left := mergeSortFiles(head, less)
	right = mergeSortFiles(right, less)

	var merged *fileNode
	tail := &merged
	for left != nil && right != nil {
		if less(right.name, left.name) {
			*tail = right
			right = right.next
		} else {
			*tail = left
			left = left.next
		}
		tail = &(*tail).next
	}
	if left != nil {
		*tail = left
	} else {
		*tail = right
	}
	return merged
}

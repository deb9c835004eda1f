package aae

// BucketList is the coordinator's rotating FIFO of buckets under
// Scope == ScopeBucket. Each triggered work-item drains the head and
// re-appends it, round-robin.
type BucketList []Bucket

// Rotate returns the head bucket and a new list with the head popped
// and re-appended to the tail (T ++ [H]). Rotate does not mutate the
// receiver — callers store the returned list back into
// CoordinatorState, matching the state machine's explicit-state style.
func (l BucketList) Rotate() (head Bucket, rotated BucketList) {
	if len(l) == 0 {
		return Bucket{}, l
	}
	head = l[0]
	rotated = make(BucketList, len(l))
	copy(rotated, l[1:])
	rotated[len(rotated)-1] = head
	return head, rotated
}

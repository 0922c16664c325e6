package labels

// Split names a dataset partition.
type Split string

const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
)

// Assign partitions deduplicated records with a fixed prefix cut: the first
// trainCount records are the training split, the remainder validation. The
// cut is positional, not randomized, so the same ordered input always
// reproduces the same assignment.
func Assign(records []Record, trainCount int) (train, val []Record) {
	if trainCount < 0 {
		trainCount = 0
	}
	if trainCount > len(records) {
		trainCount = len(records)
	}
	return records[:trainCount], records[trainCount:]
}

// SplitFor reports which split a record at the given position lands in.
func SplitFor(index, trainCount int) Split {
	if index < trainCount {
		return SplitTrain
	}
	return SplitVal
}

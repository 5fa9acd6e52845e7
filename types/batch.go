package types

// BatchResult is the outcome of one item of a batch operation.
type BatchResult struct {
	Key string
	Err error
}

func (r BatchResult) Succeeded() bool {
	return r.Err == nil
}

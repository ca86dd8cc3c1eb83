package upload

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/memojournal/internal/common"
	"go.uber.org/multierr"
)

// FileError is the final failure of one file in a batch.
type FileError struct {
	Index int // position in the batch, from 0
	Name  string
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("image #%d (%s): %v", e.Index+1, e.Name, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// BatchError reports every file that failed. It matches
// common.ErrPartialBatch and, through its files, their causes.
type BatchError struct {
	Total    int
	Failures []*FileError
}

func (e *BatchError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%s: %d of %d images failed: %s",
		common.ErrPartialBatch, len(e.Failures), e.Total, strings.Join(parts, "; "))
}

func (e *BatchError) Unwrap() []error {
	out := []error{common.ErrPartialBatch}
	for _, f := range e.Failures {
		out = append(out, f)
	}
	return out
}

func newBatchError(total int, errs error) error {
	if errs == nil {
		return nil
	}
	be := &BatchError{Total: total}
	for _, err := range multierr.Errors(errs) {
		if fe, ok := err.(*FileError); ok {
			be.Failures = append(be.Failures, fe)
		}
	}
	sort.Slice(be.Failures, func(i, j int) bool { return be.Failures[i].Index < be.Failures[j].Index })
	return be
}

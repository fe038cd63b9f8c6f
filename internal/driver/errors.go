package driver

import (
	"fmt"
	"time"
)

// OutputExistsError reports that outputPath already exists at startup,
// the output-collision guard that maps to exit code 2.
type OutputExistsError struct {
	Path string
}

func (e *OutputExistsError) Error() string {
	return fmt.Sprintf("driver: output path %q already exists", e.Path)
}

// DeadlineExceededError reports that a partition's sampling task did not
// finish inside config.TaskDeadline. The driver treats the whole
// iteration as failed: counters are not committed and the error
// propagates to main.
type DeadlineExceededError struct {
	Partition int
	Elapsed   time.Duration
}

func (e *DeadlineExceededError) Error() string {
	return fmt.Sprintf("driver: partition %d exceeded task deadline after %s", e.Partition, e.Elapsed)
}

package schedule

import "errors"

// ErrInsufficientPool reports that a run could not fill every slot. Runs
// return it as data in Result.UnfilledDays; Result.Err converts it.
var ErrInsufficientPool = errors.New("insufficient pool to fill every day")

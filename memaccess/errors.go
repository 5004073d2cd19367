package memaccess

import (
	"fmt"

	"github.com/jwhutchison/fatigue-go/internal/errs"
)

func errUnknownMethod(m Method) error {
	return errs.New(errs.Usage, "memaccess", fmt.Sprintf("unknown access method %d", int(m)))
}

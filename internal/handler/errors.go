package handler

import (
	"fmt"

	"github.com/dsh2dsh/logchain/internal/logger"
)

// HandlerError is a failure of one handler of a chain. Records are the
// records the handler failed on.
type HandlerError struct {
	Index   int
	Handler Handler
	Records []logger.Record
	Err     error
}

func newHandlerError(i int, h Handler, err error, records ...logger.Record,
) *HandlerError {
	return &HandlerError{Index: i, Handler: h, Records: records, Err: err}
}

func (self *HandlerError) Error() string {
	return fmt.Sprintf("handler #%d (%T): %s", self.Index, self.Handler,
		self.Err)
}

func (self *HandlerError) Unwrap() error { return self.Err }

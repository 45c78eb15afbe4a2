//go:build !unix

package process

import (
	"errors"
	"os"
)

func newErrorStream(*os.File) (errorStream, error) {
	return nil, errors.New("error stream selection is not supported")
}

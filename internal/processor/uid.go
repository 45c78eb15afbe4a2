package processor

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dsh2dsh/logchain/internal/logger"
)

const (
	UIDField      = "uid"
	DefaultUIDLen = 7
	maxUIDLen     = 32
)

// NewUID returns a processor adding a random hex identifier of length
// characters to the extra of every record. The identifier is the same for
// every record until Reset is called, which makes it possible to
// correlate all records of one request.
func NewUID(length int) (*UID, error) {
	if length < 1 || length > maxUIDLen {
		return nil, fmt.Errorf(
			"%w: uid length must be between 1 and %d, got %d",
			logger.ErrInvalidConfiguration, maxUIDLen, length)
	}
	p := &UID{length: length}
	p.Reset()
	return p, nil
}

type UID struct {
	length int
	uid    string
}

func (self *UID) UID() string { return self.uid }

func (self *UID) Reset() {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	self.uid = hex[:self.length]
}

func (self *UID) Process(r logger.Record) logger.Record {
	return r.WithExtra(UIDField, self.uid)
}

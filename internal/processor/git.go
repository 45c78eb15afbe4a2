package processor

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/dsh2dsh/logchain/internal/logger"
)

const (
	GitField       = "git"
	gitBranchField = "branch"
	gitCommitField = "commit"
)

var gitBranchRegexp = regexp.MustCompile(
	`(?m)^\* (.+?)\s+([a-f0-9]{40})(?:\s+(.*))?$`)

// NewGit returns a processor which adds the current git branch and commit
// of dir to records at level or more severe. The git command runs once,
// its result is cached.
func NewGit(level logger.Level) *Git {
	return &Git{level: level, timeout: 5 * time.Second}
}

type Git struct {
	level   logger.Level
	dir     string
	timeout time.Duration

	once sync.Once
	info logger.Fields
}

func (self *Git) WithDir(dir string) *Git {
	self.dir = dir
	return self
}

func (self *Git) Process(r logger.Record) logger.Record {
	if !self.level.Includes(r.Level) {
		return r
	}
	self.once.Do(func() { self.info = self.lookup(context.Background()) })
	return r.WithExtra(GitField, self.info.Clone())
}

func (self *Git) lookup(ctx context.Context) logger.Fields {
	info := logger.Fields{{Key: gitBranchField, Value: ""}, {Key: gitCommitField, Value: ""}}
	c := newCommand("git", "branch", "-v", "--no-abbrev").
		WithDir(self.dir).WithTimeout(self.timeout)
	if err := c.Run(ctx); err != nil {
		return info
	}

	m := gitBranchRegexp.FindSubmatch(c.Output())
	if m == nil {
		return info
	}
	return info.With(gitBranchField, string(m[1])).
		With(gitCommitField, string(m[2]))
}

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/binlift/irmod/ir"
)

func fmtAddr(addr ir.Address) string {
	return fmt.Sprintf("%#x", uint64(addr))
}

// fmtStack renders a stack storage value as "<fn>:<off>", e.g. "main:-16".
func fmtStack(fn string, off int64) string {
	return fmt.Sprintf("%s:%d", fn, off)
}

func parseStack(s string) (fn string, off int64, err error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return "", 0, errors.Errorf("config: malformed stack storage value %q", s)
	}
	fn = s[:i]
	off, parseErr := strconv.ParseInt(s[i+1:], 10, 64)
	if parseErr != nil {
		return "", 0, errors.Wrapf(parseErr, "config: malformed stack offset in %q", s)
	}
	return fn, off, nil
}

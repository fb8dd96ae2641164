package clicommon

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
)

// LevelledFlag is a boolean flag which counts how many times it is given, so `-v -v` is level 2. An integer value
// sets the level directly.
type LevelledFlag int

var _ pflag.Value = (*LevelledFlag)(nil)

func (f *LevelledFlag) Set(s string) error {
	on, boolErr := strconv.ParseBool(s)
	if boolErr == nil {
		switch {
		case on:
			*f++
		case *f > 0:
			*f--
		}
		return nil
	}
	level, err := strconv.Atoi(s)
	if err != nil || level < 0 {
		return fmt.Errorf("invalid level %q (must be a boolean or a non-negative integer)", s)
	}
	*f = LevelledFlag(level)
	return nil
}

func (f *LevelledFlag) Type() string {
	return "levelled_flag"
}

func (f *LevelledFlag) String() string {
	return strconv.Itoa(int(*f))
}

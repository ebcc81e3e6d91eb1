package app

import (
	"github.com/aaroncwhite/salted/internal/registry"
	"github.com/aaroncwhite/salted/modules/aggregate"
	"github.com/aaroncwhite/salted/modules/digits"
	"github.com/aaroncwhite/salted/modules/streams"
)

// coreModules are the task kinds compiled into the binary. Tests pass their
// own module set to NewApp instead.
var coreModules = []registry.Module{
	&streams.Module{},
	&aggregate.Module{},
	&digits.Module{},
}

// +build tools

package tools

// Dev tool dependencies, not part of the app build

import (
	_ "github.com/cespare/reflex"
	_ "github.com/mgechev/revive"
)

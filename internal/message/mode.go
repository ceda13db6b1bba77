package message

import (
	"fmt"

	"golang.org/x/text/cases"
)

var modeNames = [...]string{
	ModePCAC:   "pc_ac",
	ModePCSIMV: "pc_simv",
	ModeVCAC:   "vc_ac",
	ModeVCSIMV: "vc_simv",
	ModePSV:    "psv",
	ModeNIV:    "niv",
	ModeHFNC:   "hfnc",
}

// String returns the mode's configuration name, e.g. "pc_ac".
func (m VentilationMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("VentilationMode(%d)", uint8(m))
}

// ParseMode resolves a mode name with the same folding rules as ParseKind.
func ParseMode(name string) (VentilationMode, error) {
	fold := cases.Fold()
	want := fold.String(foldSeparators.Replace(name))
	for m, n := range modeNames {
		if foldSeparators.Replace(n) == want {
			return VentilationMode(m), nil
		}
	}
	return 0, fmt.Errorf("unknown ventilation mode %q", name)
}

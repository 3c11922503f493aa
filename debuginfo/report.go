package debuginfo

import "fmt"

// MergeReport tallies what one pipeline run did to the target's symbol
// table, including the symbols translation had to drop. Intended for
// host-side display; the pipeline itself only logs it.
type MergeReport struct {
	Inserted    int
	Overwritten int
	Skipped     int // collisions with user-defined symbols
	Unmapped    []UnmappedSymbol
}

// Applied is the number of symbols now present under their debug-info
// name.
func (r *MergeReport) Applied() int {
	return r.Inserted + r.Overwritten
}

func (r *MergeReport) String() string {
	return fmt.Sprintf("inserted=%d overwritten=%d skipped=%d unmapped=%d",
		r.Inserted, r.Overwritten, r.Skipped, len(r.Unmapped))
}

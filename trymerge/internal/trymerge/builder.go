package trymerge

import "github.com/nickng/trymerge/classfile"

// BuildRegions converts exception table entries into regions in order of
// first appearance. Entries sharing a try range accumulate their catch types
// into one region. Entries with an empty or inverted range are dropped and
// returned separately.
func BuildRegions(table []classfile.ExceptionEntry) (regions []*Region, dropped []classfile.ExceptionEntry) {
	for _, e := range table {
		if e.StartPC >= e.EndPC {
			dropped = append(dropped, e)
			continue
		}
		r := findRegion(regions, int(e.StartPC), int(e.EndPC))
		if r == nil {
			r = &Region{
				Start:      int(e.StartPC),
				End:        int(e.EndPC),
				Handler:    int(e.HandlerPC),
				HandlerEnd: -1,
			}
			regions = append(regions, r)
		}
		r.CatchTypes.Insert(int(e.CatchType))
	}
	return regions, dropped
}

func findRegion(regions []*Region, start, end int) *Region {
	for _, r := range regions {
		if r.Start == start && r.End == end {
			return r
		}
	}
	return nil
}

package sizing

import "github.com/pvsizer/pvsizer/pkg/types"

// ReferenceSystems is the installer table of standard residential systems,
// ordered by size.
var ReferenceSystems = []types.ReferenceSystem{
	{KW: 3, Panels: 7, AreaM2: 15, AnnualProductionKWH: 3800},
	{KW: 5, Panels: 12, AreaM2: 26, AnnualProductionKWH: 6300},
	{KW: 6, Panels: 14, AreaM2: 30, AnnualProductionKWH: 7600},
	{KW: 8, Panels: 18, AreaM2: 40, AnnualProductionKWH: 10200},
	{KW: 10, Panels: 23, AreaM2: 50, AnnualProductionKWH: 12700},
	{KW: 12, Panels: 27, AreaM2: 60, AnnualProductionKWH: 15300},
	{KW: 15, Panels: 34, AreaM2: 75, AnnualProductionKWH: 19100},
	{KW: 20, Panels: 45, AreaM2: 99, AnnualProductionKWH: 25500},
}

// ReferenceFor returns the smallest standard system of at least kw, or nil
// when kw is larger than every entry.
func ReferenceFor(kw float64) *types.ReferenceSystem {
	for _, ref := range ReferenceSystems {
		if ref.KW >= kw {
			r := ref
			return &r
		}
	}
	return nil
}

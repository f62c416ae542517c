package catalog

import (
	"strconv"

	"github.com/bits-and-blooms/bloom/v3"
)

const filterFPR = 0.001

// Filter answers "definitely not in the catalog" for variant keys without a
// database round trip. False positives fall through to the repository (and
// ultimately to checkout's batch lookup), so a stale filter can only cost an
// extra query, never sell an unknown variant.
type Filter struct {
	bf *bloom.BloomFilter
}

// NewFilter builds a filter over the given listings.
func NewFilter(listings []Listing) *Filter {
	n := uint(len(listings))
	if n == 0 {
		n = 1
	}
	bf := bloom.NewWithEstimates(n, filterFPR)
	for _, l := range listings {
		bf.AddString(filterKey(l.ProductID, l.VariantID))
	}
	return &Filter{bf: bf}
}

// MayExist reports whether the variant key could be in the catalog.
// A false result is definitive; a true result still needs a lookup.
func (f *Filter) MayExist(productID int64, variantID string) bool {
	return f.bf.TestString(filterKey(productID, variantID))
}

func filterKey(productID int64, variantID string) string {
	return strconv.FormatInt(productID, 10) + "/" + variantID
}

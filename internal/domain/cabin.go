package domain

// CabinClass is the finest-grained priced product. The numeric values
// define the upgrade/downgrade order used across fare mapping and seat
// selection; do not reorder.
type CabinClass int

const (
	CabinEconomySaver CabinClass = iota + 1
	CabinEconomyFlex
	CabinPremiumEconomy
	CabinBusiness
	CabinFirstClass
)

func (c CabinClass) String() string {
	switch c {
	case CabinEconomySaver:
		return "Economy Saver"
	case CabinEconomyFlex:
		return "Economy Flex"
	case CabinPremiumEconomy:
		return "Premium Economy"
	case CabinBusiness:
		return "Business"
	case CabinFirstClass:
		return "First Class"
	default:
		return "Unknown"
	}
}

// Rank returns the position of the class in the cabin order.
// Higher rank means a higher cabin.
func (c CabinClass) Rank() int {
	return int(c)
}

func (c CabinClass) Valid() bool {
	return c >= CabinEconomySaver && c <= CabinFirstClass
}

// CabinBucket is the user-facing grouping shown in search results.
type CabinBucket string

const (
	BucketEconomy    CabinBucket = "economy"
	BucketFirstClass CabinBucket = "first-class"
)

// Classes returns the fare classes the bucket spans, in cabin order.
func (b CabinBucket) Classes() []CabinClass {
	switch b {
	case BucketEconomy:
		return []CabinClass{CabinEconomySaver, CabinEconomyFlex, CabinPremiumEconomy}
	case BucketFirstClass:
		return []CabinClass{CabinBusiness, CabinFirstClass}
	default:
		return nil
	}
}

func (b CabinBucket) Valid() bool {
	return b == BucketEconomy || b == BucketFirstClass
}

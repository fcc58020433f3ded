package gate

import (
	"marketgate/internal/compliance/checks"
	"marketgate/internal/compliance/marketpack"
)

// Listing is the snapshot evaluated before a listing goes from draft to
// active.
type Listing struct {
	checks.DepositTerms
	checks.BrokerFee
	checks.DisclosureStatus
}

func (l Listing) toChecks() []checks.Check {
	return []checks.Check{
		checks.FeeDisclosureCheck{BrokerFee: l.BrokerFee},
		checks.DisclosureCheck{
			Transition:       marketpack.TransitionListingPublish,
			DisclosureStatus: l.DisclosureStatus,
		},
		checks.SecurityDepositCheck{DepositTerms: l.DepositTerms},
	}
}

// Lease is the snapshot evaluated before a lease is executed.
type Lease struct {
	MonthlyRent      float64  `json:"monthly_rent"`
	SecurityDeposit  float64  `json:"security_deposit"`
	IsRentStabilized *bool    `json:"is_rent_stabilized"`
	LegalRent        *float64 `json:"legal_rent,omitempty"`
	PreferentialRent *float64 `json:"preferential_rent,omitempty"`
	checks.DisclosureStatus
}

func (l Lease) toChecks() []checks.Check {
	return []checks.Check{
		checks.SecurityDepositCheck{DepositTerms: checks.DepositTerms{
			MonthlyRent:     l.MonthlyRent,
			SecurityDeposit: l.SecurityDeposit,
		}},
		checks.RentStabilizationCheck{Stabilization: checks.Stabilization{
			IsRentStabilized: l.IsRentStabilized,
			MonthlyRent:      l.MonthlyRent,
			LegalRent:        l.LegalRent,
			PreferentialRent: l.PreferentialRent,
		}},
		checks.DisclosureCheck{
			Transition:       marketpack.TransitionLeaseSigning,
			DisclosureStatus: l.DisclosureStatus,
		},
	}
}

// RentIncrease is the snapshot evaluated before an active lease's rent
// changes.
type RentIncrease = checks.RentIncrease

// StageTransition is a requested move of a rental application between
// screening stages.
type StageTransition = checks.StageChange

// BackgroundCheck is a request to run tenant background checks. At least
// one check must be requested.
type BackgroundCheck = checks.ScreeningRequest

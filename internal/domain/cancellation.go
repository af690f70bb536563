package domain

import "time"

// DownsellVariant is the A/B bucket controlling whether the discount offer is shown.
type DownsellVariant string

const (
	VariantA DownsellVariant = "A"
	VariantB DownsellVariant = "B"
)

// Valid reports whether v is one of the two known buckets.
func (v DownsellVariant) Valid() bool {
	return v == VariantA || v == VariantB
}

// CancellationReason is one of the fixed reasons offered on the still-looking branch.
type CancellationReason string

const (
	ReasonTooExpensive       CancellationReason = "Too expensive"
	ReasonPlatformNotHelpful CancellationReason = "Platform not helpful"
	ReasonNotEnoughJobs      CancellationReason = "Not enough relevant jobs"
	ReasonDecidedNotToMove   CancellationReason = "Decided not to move"
	ReasonOther              CancellationReason = "Other"
)

// CancellationReasons lists the reasons in display order.
var CancellationReasons = []CancellationReason{
	ReasonTooExpensive,
	ReasonPlatformNotHelpful,
	ReasonNotEnoughJobs,
	ReasonDecidedNotToMove,
	ReasonOther,
}

// Valid reports whether r belongs to the closed reason set.
func (r CancellationReason) Valid() bool {
	for _, candidate := range CancellationReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// Cancellation accumulates a user's answers for one cancellation session.
// Nil pointers are unanswered fields.
type Cancellation struct {
	ID                      string
	UserID                  string
	SubscriptionID          string
	DownsellVariant         DownsellVariant
	RolesApplied            *string
	CompaniesEmailed        *string
	CompaniesInterviewed    *string
	FoundJobWithMigrateMate *bool
	Feedback                *string
	Reason                  *CancellationReason
	AcceptedDownsell        *bool
	HasImmigrationLawyer    *bool
	VisaType                *string
	CreatedAt               time.Time
}

// CancellationPatch lists the fields a PATCH may change. Nil means untouched.
type CancellationPatch struct {
	DownsellVariant         *DownsellVariant
	RolesApplied            *string
	CompaniesEmailed        *string
	CompaniesInterviewed    *string
	FoundJobWithMigrateMate *bool
	Feedback                *string
	Reason                  *CancellationReason
	AcceptedDownsell        *bool
	HasImmigrationLawyer    *bool
	VisaType                *string
}

// Empty reports whether the patch changes nothing.
func (p CancellationPatch) Empty() bool {
	return p.DownsellVariant == nil &&
		p.RolesApplied == nil &&
		p.CompaniesEmailed == nil &&
		p.CompaniesInterviewed == nil &&
		p.FoundJobWithMigrateMate == nil &&
		p.Feedback == nil &&
		p.Reason == nil &&
		p.AcceptedDownsell == nil &&
		p.HasImmigrationLawyer == nil &&
		p.VisaType == nil
}

// Apply copies the set fields of p onto c. Values are copied so c never
// shares storage with the patch.
func (c *Cancellation) Apply(p CancellationPatch) {
	if p.DownsellVariant != nil {
		c.DownsellVariant = *p.DownsellVariant
	}
	if p.RolesApplied != nil {
		c.RolesApplied = clonePtr(p.RolesApplied)
	}
	if p.CompaniesEmailed != nil {
		c.CompaniesEmailed = clonePtr(p.CompaniesEmailed)
	}
	if p.CompaniesInterviewed != nil {
		c.CompaniesInterviewed = clonePtr(p.CompaniesInterviewed)
	}
	if p.FoundJobWithMigrateMate != nil {
		c.FoundJobWithMigrateMate = clonePtr(p.FoundJobWithMigrateMate)
	}
	if p.Feedback != nil {
		c.Feedback = clonePtr(p.Feedback)
	}
	if p.Reason != nil {
		c.Reason = clonePtr(p.Reason)
	}
	if p.AcceptedDownsell != nil {
		c.AcceptedDownsell = clonePtr(p.AcceptedDownsell)
	}
	if p.HasImmigrationLawyer != nil {
		c.HasImmigrationLawyer = clonePtr(p.HasImmigrationLawyer)
	}
	if p.VisaType != nil {
		c.VisaType = clonePtr(p.VisaType)
	}
}

// Clone returns a deep copy of c.
func (c Cancellation) Clone() Cancellation {
	out := c
	out.RolesApplied = clonePtr(c.RolesApplied)
	out.CompaniesEmailed = clonePtr(c.CompaniesEmailed)
	out.CompaniesInterviewed = clonePtr(c.CompaniesInterviewed)
	out.FoundJobWithMigrateMate = clonePtr(c.FoundJobWithMigrateMate)
	out.Feedback = clonePtr(c.Feedback)
	out.Reason = clonePtr(c.Reason)
	out.AcceptedDownsell = clonePtr(c.AcceptedDownsell)
	out.HasImmigrationLawyer = clonePtr(c.HasImmigrationLawyer)
	out.VisaType = clonePtr(c.VisaType)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

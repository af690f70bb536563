package flow

import (
	"math"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

// MinFeedbackLength is the minimum trimmed length of free-text answers.
const MinFeedbackLength = 25

// FallbackVariantID seeds the variant hash when no user is known.
const FallbackVariantID = "seed-user"

// priceDiscounts maps whole-dollar list prices to their discounted price.
var priceDiscounts = map[int]int{
	25: 15,
	29: 19,
}

// ComputeDownsellPrice returns the discounted monthly price in whole dollars
// for a list price in cents. Prices outside the table get 40% off, rounded.
func ComputeDownsellPrice(priceCents int) int {
	if priceCents%100 == 0 {
		if discounted, ok := priceDiscounts[priceCents/100]; ok {
			return discounted
		}
	}
	return roundHalfUp(float64(priceCents) / 100 * 0.6)
}

// DownsellDisplay is the price pair shown on discount offers, in whole dollars.
type DownsellDisplay struct {
	OriginalPrice int
	DownsellPrice int
}

// ComputeDownsellDisplay builds the offer prices. A nil price uses the default plan price.
func ComputeDownsellDisplay(priceCents *int) DownsellDisplay {
	cents := domain.DefaultMonthlyPriceCents
	if priceCents != nil {
		cents = *priceCents
	}
	return DownsellDisplay{
		OriginalPrice: roundHalfUp(float64(cents) / 100),
		DownsellPrice: ComputeDownsellPrice(cents),
	}
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// ComputeVariant assigns an identifier to a downsell bucket. It runs a
// 31-multiplier rolling hash over the UTF-16 code units of id with 32-bit
// signed wraparound; even magnitudes map to A, odd to B.
func ComputeVariant(id string) domain.DownsellVariant {
	var hash int32
	for _, unit := range utf16.Encode([]rune(id)) {
		hash = hash<<5 - hash + int32(unit)
	}
	magnitude := int64(hash)
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude%2 == 0 {
		return domain.VariantA
	}
	return domain.VariantB
}

// IsFollowUpComplete reports whether the follow-up answer satisfies the
// selected reason. "Too expensive" takes any non-blank amount; the other
// reasons need MinFeedbackLength characters. A nil reason is never complete.
func IsFollowUpComplete(reason *domain.CancellationReason, text string) bool {
	if reason == nil || *reason == "" {
		return false
	}
	trimmed := strings.TrimSpace(text)
	if *reason == domain.ReasonTooExpensive {
		return trimmed != ""
	}
	return utf8.RuneCountInString(trimmed) >= MinFeedbackLength
}

func longEnough(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= MinFeedbackLength
}

package domain

import (
	"fmt"
	"time"
)

// Material is the kind of recyclable material a lot contains. The values
// are the catalog the original marketplace launched with and are part of
// the public API, so they stay in Spanish.
type Material string

const (
	MaterialMadera   Material = "madera"
	MaterialMetal    Material = "metal"
	MaterialVidrio   Material = "vidrio"
	MaterialTextil   Material = "textil"
	MaterialPlastico Material = "plastico"
)

func (m Material) Valid() bool {
	switch m {
	case MaterialMadera, MaterialMetal, MaterialVidrio, MaterialTextil, MaterialPlastico:
		return true
	}
	return false
}

// Scheme distinguishes donated lots from lots offered for sale.
type Scheme string

const (
	SchemeDonacion Scheme = "donacion"
	SchemeVenta    Scheme = "venta"
)

func (s Scheme) Valid() bool {
	return s == SchemeDonacion || s == SchemeVenta
}

// Condition grades the state of the material: A damaged, B used, C like new.
type Condition string

const (
	ConditionA Condition = "A"
	ConditionB Condition = "B"
	ConditionC Condition = "C"
)

func (c Condition) Valid() bool {
	return c == ConditionA || c == ConditionB || c == ConditionC
}

// Status is the lot lifecycle state. Only OPEN to LOCKED is driven by this
// system; PAID and DELIVERED are set by external billing and delivery
// processes and exist here so stored values round-trip.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusLocked    Status = "LOCKED"
	StatusPaid      Status = "PAID"
	StatusDelivered Status = "DELIVERED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusLocked, StatusPaid, StatusDelivered:
		return true
	}
	return false
}

// Address is the pickup location of a lot.
type Address struct {
	Line1 string   `json:"line1"`
	City  string   `json:"city"`
	Lat   *float64 `json:"lat,omitempty"`
	Lng   *float64 `json:"lng,omitempty"`
}

// DefaultCity is assumed when the publisher does not name one.
const DefaultCity = "Mérida"

// DefaultCondition is assumed when the publisher does not grade the lot.
const DefaultCondition = ConditionB

// MaxWeightKg caps a single lot at one metric ton.
const MaxWeightKg = 1000

// Lot is a published batch of material offered for donation or sale.
type Lot struct {
	ID         string    `json:"id"`
	Material   Material  `json:"material"`
	Condition  Condition `json:"condition"`
	WeightKg   float64   `json:"weightKg"`
	Scheme     Scheme    `json:"scheme"`
	Price      float64   `json:"price"`
	Status     Status    `json:"status"`
	OwnerID    string    `json:"ownerId"`
	ReceiverID string    `json:"receiverId,omitempty"`
	Address    Address   `json:"address"`
	Images     []string  `json:"images"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	CreatedDay string    `json:"createdDay"`
	// ExpiresAt is an optional epoch-seconds expiry; zero means the lot
	// never expires.
	ExpiresAt int64 `json:"expiresAt,omitempty"`
}

// SortKeyMeta is the constant sort key of the lot metadata record. The
// sort key is reserved for future multi-record-per-lot layouts.
const SortKeyMeta = "meta"

// PartitionKey returns the composite-key partition component for the lot.
func (l *Lot) PartitionKey() string { return "lot#" + l.ID }

// DayBucket truncates a timestamp to its UTC calendar day in YYYYMMDD
// form, the coarse partition used for day-scoped listing.
func DayBucket(t time.Time) string {
	return t.UTC().Format("20060102")
}

// ValidationError reports the first field of a lot that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid lot: %s %s", e.Field, e.Reason)
}

// Validate checks the lot against the schema rules, reporting the first
// failing field. minImages is the publish-boundary image policy; zero
// disables the image count check.
func (l *Lot) Validate(minImages int) error {
	if l.Material == "" {
		return &ValidationError{Field: "material", Reason: "is required"}
	}
	if !l.Material.Valid() {
		return &ValidationError{Field: "material", Reason: fmt.Sprintf("%q is not a known material", l.Material)}
	}
	if l.Scheme == "" {
		return &ValidationError{Field: "scheme", Reason: "is required"}
	}
	if !l.Scheme.Valid() {
		return &ValidationError{Field: "scheme", Reason: fmt.Sprintf("%q is not a known scheme", l.Scheme)}
	}
	if l.Price < 0 {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	// price == 0 exactly when the lot is a donation; sale lots start at 1.
	if l.Scheme == SchemeDonacion && l.Price != 0 {
		return &ValidationError{Field: "price", Reason: "must be 0 for donations"}
	}
	if l.Scheme == SchemeVenta && l.Price < 1 {
		return &ValidationError{Field: "price", Reason: "must be at least 1 for sales"}
	}
	if l.WeightKg <= 0 || l.WeightKg > MaxWeightKg {
		return &ValidationError{Field: "weightKg", Reason: fmt.Sprintf("must be greater than 0 and at most %d", MaxWeightKg)}
	}
	if !l.Condition.Valid() {
		return &ValidationError{Field: "condition", Reason: fmt.Sprintf("%q is not a known condition", l.Condition)}
	}
	if !l.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("%q is not a known status", l.Status)}
	}
	if l.Address.Line1 == "" {
		return &ValidationError{Field: "address.line1", Reason: "is required"}
	}
	if minImages > 0 && len(l.Images) < minImages {
		return &ValidationError{Field: "images", Reason: fmt.Sprintf("at least %d required", minImages)}
	}
	if l.OwnerID == "" {
		return &ValidationError{Field: "ownerId", Reason: "is required"}
	}
	return nil
}

// Patch is the set of lot attributes a conditional update may change.
// Nil fields are left untouched.
type Patch struct {
	Status     *Status
	ReceiverID *string
}

// Predicate is a condition evaluated against the stored record, inside
// the same atomic statement as the update it guards. Nil fields impose
// no constraint.
type Predicate struct {
	StatusEquals *Status
	OwnerNot     *string
}

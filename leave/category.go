/*
Package leave contains the core domain of the leave-management engine:
the eight leave categories, the employee/request/activity records, the
record-store contract, and the balance ledger that debits and credits
per-category remaining days.

CATEGORIES:
  The category set is fixed. Each category maps to exactly two fields on
  an employee record: an allotment (total days granted) and a remaining
  balance (days left to use). Category values are the Chinese labels the
  rest of the system exchanges on the wire; English labels exist for
  reports that cannot render CJK glyphs.

INVARIANTS:
  - remaining >= 0 at all times (debits clamp at zero)
  - remaining is NOT bounded by the allotment: restoring an approved
    request after a clamped debit can push it above the original grant,
    and that asymmetry is intended behavior

SEE ALSO:
  - ledger.go: the only code allowed to mutate remaining balances
  - store.go: record-store contract
*/
package leave

// =============================================================================
// LEAVE CATEGORY - One canonical enum shared by validation, ledger, stats
// =============================================================================

// Category identifies one of the eight leave types. The string value is
// the canonical wire representation.
type Category string

const (
	CategoryAnnual        Category = "特休"
	CategoryCompensatory  Category = "補休"
	CategoryPersonal      Category = "事假"
	CategorySick          Category = "病假"
	CategoryBereavement   Category = "喪假"
	CategoryParental      Category = "育嬰假"
	CategoryMaternity     Category = "產假"
	CategoryMarriage      Category = "婚假"
)

// Categories is the canonical ordered list. Employee balances, request
// type options and statistics all iterate this slice, never their own
// copies.
var Categories = []Category{
	CategoryAnnual,
	CategoryCompensatory,
	CategoryPersonal,
	CategorySick,
	CategoryBereavement,
	CategoryParental,
	CategoryMaternity,
	CategoryMarriage,
}

// Valid reports whether c is one of the eight known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAnnual, CategoryCompensatory, CategoryPersonal, CategorySick,
		CategoryBereavement, CategoryParental, CategoryMaternity, CategoryMarriage:
		return true
	}
	return false
}

// Label returns an ASCII display name, used where CJK output is not
// available (PDF reports with core fonts).
func (c Category) Label() string {
	switch c {
	case CategoryAnnual:
		return "Annual"
	case CategoryCompensatory:
		return "Compensatory"
	case CategoryPersonal:
		return "Personal"
	case CategorySick:
		return "Sick"
	case CategoryBereavement:
		return "Bereavement"
	case CategoryParental:
		return "Parental"
	case CategoryMaternity:
		return "Maternity"
	case CategoryMarriage:
		return "Marriage"
	}
	return string(c)
}

// ParseCategory converts a wire value into a Category.
// Returns ErrInvalidCategory for anything outside the canonical list.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCollected = "collected"
	OrderStatusCancelled = "cancelled"
)

// ── Classifiers (CHECK constrained in DB) ──

const (
	MealTypeBreakfast = "breakfast"
	MealTypeLunch     = "lunch"
	MealTypeDinner    = "dinner"
)

const (
	UserRoleAdmin   = "admin"
	UserRoleStudent = "student"
)

const (
	MenuItemKindFood  = "food"
	MenuItemKindCurry = "curry"
)

// ── Display ID prefixes (assigned once at creation, immutable) ──

const (
	DisplayPrefixFood  = "FOOD"
	DisplayPrefixCurry = "CUR"
)

// IsValidOrderStatus reports whether s is one of the five recognized
// order statuses.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusCollected, OrderStatusCancelled:
		return true
	}
	return false
}

// IsValidMealType reports whether s is breakfast, lunch or dinner.
func IsValidMealType(s string) bool {
	switch s {
	case MealTypeBreakfast, MealTypeLunch, MealTypeDinner:
		return true
	}
	return false
}

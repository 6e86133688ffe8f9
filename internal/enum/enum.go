package enum

// ── Group A: Roles (CHECK constrained in DB) ──

const (
	RoleAdmin   = "admin"
	RoleManager = "gerente"
	RoleCashier = "caixa"
	RoleWaiter  = "garcom"
	RoleKitchen = "cozinha"
	RoleUser    = "user"
)

// IsRole reports whether role is one of the roles the users table accepts.
func IsRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleCashier, RoleWaiter, RoleKitchen, RoleUser:
		return true
	}
	return false
}

// ── Group B: Product categories (configurable labels, no DB constraint) ──

const (
	CategorySnack     = "lanche"
	CategorySide      = "acompanhamento"
	CategoryDrink     = "bebida"
	CategoryDessert   = "sobremesa"
	CategoryMainDish  = "prato"
	CategoryAppetizer = "petisco"
)

// KitchenPreparedCategories are the categories that go through the kitchen
// preparation workflow. Only their items may move to "preparing".
var KitchenPreparedCategories = []string{CategorySnack, CategorySide}

// IsKitchenPrepared reports whether category is prepared by the kitchen.
func IsKitchenPrepared(category string) bool {
	for _, c := range KitchenPreparedCategories {
		if c == category {
			return true
		}
	}
	return false
}

// ── Group C: Table actions (request vocabulary for PATCH /tables) ──

const (
	TableActionOccupy    = "occupy"
	TableActionFree      = "free"
	TableActionCleaning  = "cleaning"
	TableActionAvailable = "available"
	TableActionReserve   = "reserve"
)

// CounterLabel is the sentinel used for counter (no table) orders.
const CounterLabel = "counter"

// UnknownStaffName is shown when a closure's responsible user no longer resolves.
const UnknownStaffName = "Usuário não encontrado"

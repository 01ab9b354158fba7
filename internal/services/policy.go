package services

import "food_crm/internal/models"

// Fields an order patch may carry.
const (
	FieldItems   = "items"
	FieldTableNo = "table_no"
	FieldStatus  = "status"
)

var adminPatchable = map[string]bool{
	FieldItems:   true,
	FieldTableNo: true,
	FieldStatus:  true,
}

// CanCreateOrder reports whether role may place orders.
func CanCreateOrder(role string) bool {
	return role == models.RoleCustomer
}

// CanUpdateOrder decides whether role may apply a patch touching fields.
// Admins may touch anything; field names are validated separately. Chefs
// may only change the status, and only the status.
func CanUpdateOrder(role string, fields []string) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleChef:
		if len(fields) > 1 {
			return false
		}
		for _, f := range fields {
			if f != FieldStatus {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CanDeleteOrder reports whether role may delete orders.
func CanDeleteOrder(role string) bool {
	return role == models.RoleAdmin
}

// IsStaff reports whether role belongs to restaurant staff.
func IsStaff(role string) bool {
	return role == models.RoleChef || role == models.RoleAdmin
}

package auth

import "github.com/fairyhunter13/cart-checkout-service/internal/apperr"

// Policy holds the configurable role rules.
type Policy struct {
	AllowAdminPurchase bool
}

func (p Policy) RequireAdmin(id Identity) error {
	if id.Role != RoleAdmin {
		return apperr.Forbidden("admin role required")
	}
	return nil
}

// CanPurchase reports whether id may check out a cart.
func (p Policy) CanPurchase(id Identity) error {
	switch id.Role {
	case RoleUser:
		return nil
	case RoleAdmin:
		if p.AllowAdminPurchase {
			return nil
		}
		return apperr.Forbidden("administrators cannot purchase")
	}
	return apperr.Forbidden("role not allowed to purchase")
}

// CanAccessCart rejects a caller bound by token claim to a different cart,
// or a caller other than the cart's owner. Admins pass; a cart without an
// owner is open to any user.
func (p Policy) CanAccessCart(id Identity, cartID, owner string) error {
	if id.Role == RoleAdmin {
		return nil
	}
	if id.CartID != "" && id.CartID != cartID {
		return apperr.Forbidden("cart belongs to another user")
	}
	if owner != "" && owner != id.Email {
		return apperr.Forbidden("cart belongs to another user")
	}
	return nil
}

// CanReadTicket allows the purchaser and admins.
func (p Policy) CanReadTicket(id Identity, purchaser string) error {
	if id.Role == RoleAdmin || id.Email == purchaser {
		return nil
	}
	return apperr.Forbidden("ticket belongs to another user")
}

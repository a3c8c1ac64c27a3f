package cart

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidQuantity        = errors.New("invalid cart quantity")
	ErrInvalidRemoveCartInput = errors.New("invalid remove cart input")
	ErrInvalidProduct         = errors.New("product id is required")

	// -- Resource State --
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrCartItemAlreadyExist = errors.New("cart item already exists")

	// -- Remote Failures --
	ErrFailedGetCart        = errors.New("failed to get cart")
	ErrFailedCreateCartItem = errors.New("failed to create cart item")
	ErrFailedUpdateCart     = errors.New("failed to update cart item")
	ErrFailedRemoveCart     = errors.New("failed to remove cart item")
)

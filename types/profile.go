// Package types holds the records returned by the provider.
package types

// Token is the result of token.get.
type Token struct {
	Token string `json:"token"`
}

// LoginData is the result of auth.login.
type LoginData struct {
	UUID      string  `json:"uuid"`
	Token     string  `json:"token"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// BalanceItem is the remaining count of one purchased product.
type BalanceItem struct {
	ProductUUID string `json:"product_uuid"`
	Count       int    `json:"count"`
}

// Balance is the result of profile.balance.
type Balance struct {
	Balance []BalanceItem `json:"balance"`
}

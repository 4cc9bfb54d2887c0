// Package model contains domain models passed between layers.
package model

// PlaceholderUsername is returned for every fetched user.
const PlaceholderUsername = "gopher_dev test"

// User is the read shape returned by GET /user/{id}.
type User struct {
	ID       int32  `json:"id"`
	Username string `json:"username"`
}

// NewUser builds the placeholder user for id.
func NewUser(id int32) User {
	return User{ID: id, Username: PlaceholderUsername}
}

// CreateUserRequest is the JSON body of POST /user.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

package users

type CreateUserRequest struct {
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"required,max=100"`
	Email     string  `json:"email" validate:"required,email,max=254"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address   *string `json:"address,omitempty" validate:"omitempty,max=200"`
	City      *string `json:"city,omitempty" validate:"omitempty,max=100"`
	State     *string `json:"state,omitempty" validate:"omitempty,max=100"`
	ZipCode   *string `json:"zip_code,omitempty" validate:"omitempty,max=20"`
	Country   *string `json:"country,omitempty" validate:"omitempty,max=100"`
}

// UpdateUserRequest carries a partial update: nil fields stay untouched.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address   *string `json:"address,omitempty" validate:"omitempty,max=200"`
	City      *string `json:"city,omitempty" validate:"omitempty,max=100"`
	State     *string `json:"state,omitempty" validate:"omitempty,max=100"`
	ZipCode   *string `json:"zip_code,omitempty" validate:"omitempty,max=20"`
	Country   *string `json:"country,omitempty" validate:"omitempty,max=100"`
}

type ListUsersRequest struct {
	Search string
	Page   int
	Limit  int
}

// ListUsersResponse is the wire shape of GET /users.
type ListUsersResponse struct {
	Data       []User `json:"data"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}

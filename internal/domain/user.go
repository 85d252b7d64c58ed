package domain

type User struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	CPF           string `json:"cpf,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	Birthday      string `json:"birthday,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

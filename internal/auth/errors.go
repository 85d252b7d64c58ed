package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrRegistration       = errors.New("registration failed")
	ErrEmailRequired      = errors.New("email is required")
	ErrVerification       = errors.New("email verification failed")
)

const (
	msgInvalidCredentials = "Email ou senha inválidos."
	msgEmailNotVerified   = "Email não verificado. Por favor, verifique seu email antes de fazer login."
	msgRegistration       = "Não foi possível concluir o cadastro. Verifique os dados informados."
	msgEmailRequired      = "Informe o email usado no cadastro."
	msgResendFailed       = "Não foi possível reenviar o email de verificação."
	msgVerification       = "Link de verificação inválido ou expirado."
)

// Error is an auth failure as the shopper sees it. Fields maps form fields to
// the server's validation messages.
type Error struct {
	Message string
	Fields  map[string]string
	kind    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.kind
}

package identity

import "strings"

const nationalIDLength = 11

// User-facing validation messages.
const (
	MsgRequiredFields    = "Todos os campos são obrigatórios."
	MsgInvalidNationalID = "CPF inválido. Deve conter 11 dígitos."
)

// ValidationError is raised before any call to the data service.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ValidateNationalID accepts exactly eleven ASCII digits.
func ValidateNationalID(id string) error {
	if len(id) != nationalIDLength {
		return &ValidationError{Message: MsgInvalidNationalID}
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return &ValidationError{Message: MsgInvalidNationalID}
		}
	}
	return nil
}

// Validate checks a registration form.
func (r Registration) Validate() error {
	for _, field := range []string{r.Email, r.Password, r.Name, r.NationalID} {
		if strings.TrimSpace(field) == "" {
			return &ValidationError{Message: MsgRequiredFields}
		}
	}
	return ValidateNationalID(r.NationalID)
}

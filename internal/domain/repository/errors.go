package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica una violación de unicidad.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAmbiguous indica que un username resuelve a más de una persona.
	ErrAmbiguous = errors.New("ambiguous username")

	// ErrAlreadyMember indica que la persona ya pertenece a una organización.
	ErrAlreadyMember = errors.New("already member of an organization")

	// ErrNotMember indica que la persona no pertenece a la organización indicada.
	ErrNotMember = errors.New("not a member of the organization")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

package accounts

import "fmt"

type (
	NotFound struct {
		Identifier string
	}

	Duplicate struct {
		Field string
	}
)

func (n NotFound) Error() string {
	return fmt.Sprintf("account %v not found", n.Identifier)
}

func (d Duplicate) Error() string {
	return fmt.Sprintf("an account with the same %v already exists", d.Field)
}

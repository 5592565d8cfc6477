package guide

import "strings"

const (
	MsgItemNameRequired  = "Please provide the item name"
	MsgMaterialsRequired = "Please select at least one material"
)

// ValidationError is a user-correctable problem found before any request is
// sent. Message is shown to the user verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// CanSubmit checks that the description has everything the guidance request
// needs. Rules are evaluated in order and the first failure is returned.
func CanSubmit(d ItemDescription) error {
	if strings.TrimSpace(d.ItemName) == "" {
		return &ValidationError{Field: "itemName", Message: MsgItemNameRequired}
	}
	if len(d.Materials) == 0 {
		return &ValidationError{Field: "materials", Message: MsgMaterialsRequired}
	}
	return nil
}

package notify

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Lead is one form submission. Every field except Source is optional;
// Source names the widget that produced it ("Contact Form", "Price Calculator").
type Lead struct {
	Name    string `json:"name,omitempty" validate:"max=200"`
	Service string `json:"service,omitempty" validate:"max=500"`
	Budget  string `json:"budget,omitempty" validate:"max=100"`
	Contact string `json:"contact,omitempty" validate:"max=200"`
	Message string `json:"message,omitempty" validate:"max=2000"`
	Source  string `json:"source,omitempty" validate:"max=100"`
}

// Normalize trims surrounding whitespace from every field.
func (l Lead) Normalize() Lead {
	return Lead{
		Name:    strings.TrimSpace(l.Name),
		Service: strings.TrimSpace(l.Service),
		Budget:  strings.TrimSpace(l.Budget),
		Contact: strings.TrimSpace(l.Contact),
		Message: strings.TrimSpace(l.Message),
		Source:  strings.TrimSpace(l.Source),
	}
}

func (l Lead) Validate() error {
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("invalid lead: %w", err)
	}
	return nil
}

package notify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func TestLead_ValidateFakeData(t *testing.T) {
	faker := gofakeit.New(42)

	for i := 0; i < 20; i++ {
		lead := Lead{
			Name:    faker.Name(),
			Service: faker.JobTitle(),
			Budget:  fmt.Sprintf("$%.0f", faker.Price(100, 5000)),
			Contact: faker.Email(),
			Message: faker.Sentence(30),
			Source:  "Contact Form",
		}
		assert.NoError(t, lead.Validate())
	}
}

func TestLead_ValidateRejectsOversizedMessage(t *testing.T) {
	lead := Lead{Message: strings.Repeat("x", 2001)}

	assert.Error(t, lead.Validate())
}

func TestLead_EmptyIsValid(t *testing.T) {
	assert.NoError(t, Lead{}.Validate())
}

func TestLead_Normalize(t *testing.T) {
	lead := Lead{Name: "  Ivan ", Source: "\tContact Form\n"}.Normalize()

	assert.Equal(t, "Ivan", lead.Name)
	assert.Equal(t, "Contact Form", lead.Source)
}

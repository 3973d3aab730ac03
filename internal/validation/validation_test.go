package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/models"
)

func validSpec() models.Spec {
	return models.Spec{
		Make: "Skoda", Model: "Octavia", Year: 2019, Mileage: 85000, Price: 14500,
		Color: "Gray", Fuel: "Diesel", Transmission: "Manual", BodyStyle: "Wagon",
		Description: "One owner, full service history.",
	}
}

func TestStructSpec(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.Spec)
		msg    string
	}{
		{"valid", func(*models.Spec) {}, ""},
		{"model of another make", func(s *models.Spec) { s.Model = "Golf" }, "Please select a valid make and model."},
		{"unknown make", func(s *models.Spec) { s.Make = "Lada" }, "Please select a valid make and model."},
		{"color", func(s *models.Spec) { s.Color = "Purple" }, "Please select a valid color."},
		{"fuel", func(s *models.Spec) { s.Fuel = "Steam" }, "Please select a valid fuel type."},
		{"transmission", func(s *models.Spec) { s.Transmission = "CVT" }, "Please select a valid transmission."},
		{"body style", func(s *models.Spec) { s.BodyStyle = "Limo" }, "Please select a valid body style."},
		{"year too old", func(s *models.Spec) { s.Year = 1970 }, "Year must be between 1985 and 2026."},
		{"year too new", func(s *models.Spec) { s.Year = 2031 }, "Year must be between 1985 and 2026."},
		{"negative price", func(s *models.Spec) { s.Price = -1 }, "price must be at least 0"},
		{"missing", func(s *models.Spec) { s.Description = ""; s.Color = "" }, "Missing fields: color, description"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSpec()
			tc.mutate(&s)
			err := Struct(s)
			if tc.msg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, tc.msg, apperr.Message(err))
		})
	}
}

func TestStructScores(t *testing.T) {
	assert.NoError(t, Struct(models.Scores{Reliability: 5, Accuracy: 1, Communication: 3, Product: 4}))

	err := Struct(models.Scores{Reliability: 6, Accuracy: 5, Communication: 5, Product: 5})
	require.Error(t, err)
	assert.Equal(t, "All ratings must be between 1 and 5.", apperr.Message(err))

	err = Struct(models.Scores{Reliability: 5, Accuracy: 5, Communication: 0, Product: 5})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

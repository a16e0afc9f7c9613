package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name    string          `json:"name" validate:"required,max=5"`
	Amount  decimal.Decimal `json:"amount" validate:"required,gt=0,lte=100"`
	Members []string        `json:"members" validate:"omitempty,dive,required"`
}

func TestStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name   string
		input  sample
		fields []string
	}{
		{
			name:  "valid",
			input: sample{Name: "ok", Amount: decimal.NewFromInt(10)},
		},
		{
			name:   "missing everything",
			input:  sample{},
			fields: []string{"name", "amount"},
		},
		{
			name:   "amount above limit",
			input:  sample{Name: "ok", Amount: decimal.RequireFromString("100.01")},
			fields: []string{"amount"},
		},
		{
			name:   "negative amount",
			input:  sample{Name: "ok", Amount: decimal.NewFromInt(-3)},
			fields: []string{"amount"},
		},
		{
			name:   "empty member id",
			input:  sample{Name: "ok", Amount: decimal.NewFromInt(1), Members: []string{"a", ""}},
			fields: []string{"members"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Struct(tt.input)
			if len(tt.fields) == 0 {
				assert.Nil(t, errs)
				return
			}
			assert.Len(t, errs, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, errs, f)
			}
		})
	}
}

func TestStruct_TranslatesMessages(t *testing.T) {
	errs := New().Struct(sample{Amount: decimal.NewFromInt(1)})
	assert.Equal(t, "name is a required field", errs["name"])
}

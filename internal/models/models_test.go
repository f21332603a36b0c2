package models

import (
	"errors"
	"testing"
)

func TestRoutineInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      RoutineInput
		wantErr bool
	}{
		{"title only", RoutineInput{Title: "Torso"}, false},
		{"valid schedule", RoutineInput{Title: "Torso", ScheduleDays: []string{"Lun", "Jue"}}, false},
		{"all days", RoutineInput{Title: "Diario", ScheduleDays: ScheduleDays}, false},
		{"empty title", RoutineInput{Title: ""}, true},
		{"whitespace title", RoutineInput{Title: "   "}, true},
		{"unknown day", RoutineInput{Title: "Torso", ScheduleDays: []string{"Lun", "Monday"}}, true},
		{"lowercase day", RoutineInput{Title: "Torso", ScheduleDays: []string{"lun"}}, true},
		{"unaccented day", RoutineInput{Title: "Torso", ScheduleDays: []string{"Mie"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("Validate() = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}
